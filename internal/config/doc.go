// Package config loads, normalizes, and validates Whorl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// WHORL_SECRET. The Config type centralizes every knob the daemon and CLI
// need: the HTTP bind address, the identity-token secret and age policy, the
// matching thresholds and scan limits, and the state directory layout.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
