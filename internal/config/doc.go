// Package config loads, normalizes, and validates otb configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OTB_PROJECTS_DIR. The Config type centralizes every knob the CLI and the
// export pipeline need, so project, export, and log directories are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
