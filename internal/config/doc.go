// Package config loads, normalizes, and validates ClipForge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PEXELS_API_KEY. A .env file in the working directory is loaded best-effort
// before environment lookups, so secrets resolve as: process environment,
// then .env, then the config file. The Config type centralizes every knob the
// pipeline and CLI need, allowing cache/state directories and external service
// credentials to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
