// Package main hosts the ClipForge CLI entrypoint and command graph.
//
// The Cobra-based command tree queues composition jobs and drains them
// in-process, previews composition plans, and covers queue maintenance,
// clip cache management, log tailing, diagnostics, and configuration
// scaffolding. It centralizes configuration resolution and structured
// logging setup so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
