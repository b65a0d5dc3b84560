// Package config loads, normalizes, and validates um service configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the service and
// CLI need: IPC endpoint, session limits, worker bounds, client timeouts,
// default processing options, and logging output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
