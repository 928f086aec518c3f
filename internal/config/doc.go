// Package config loads, normalizes, and validates transcriber configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TRANSCRIBER_API_KEY. The Config type centralizes every knob the daemon and
// CLI need, from upload staging directories to the segmentation and import
// heuristics.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
