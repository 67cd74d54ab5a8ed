// Package ffmpeg wraps the ffmpeg command line so render stages can execute
// assembled filter graphs and observe structured progress updates.
//
// It exposes a Runner interface and a CLI implementation that launches the
// system binary with a machine-readable progress stream on stdout. Tests can
// swap in fakes to avoid executing the real encoder while still exercising
// workflow behaviour.
package ffmpeg
