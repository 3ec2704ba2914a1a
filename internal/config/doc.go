// Package config loads, normalizes, and validates diarscribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours the HF_TOKEN
// environment fallback. Command-line flags are applied on top of the returned
// Config by the CLI.
package config
