// Package config loads, normalizes, and validates liquidplan configuration data.
//
// It supplies repository defaults (the Station B deck layout, the reagent
// catalogue, pipette and reservoir geometry), expands user paths (including
// tilde shortcuts), reads TOML files, and honours environment fallbacks such as
// LIQUIDPLAN_NTFY_TOPIC. The Config type centralizes every knob the protocol
// runner and CLI need so a run is fully described by one file.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, filled-in reagent defaults, and clear validation errors.
package config
