// Package config loads, normalizes, and validates vigil configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SLACK_ALERT_WEBHOOK_URL and VIGIL_STORE_DSN. The Config type centralizes
// every knob the daemon and CLI need: store selection, SLO thresholds,
// schedule cadence and the alert destination.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
