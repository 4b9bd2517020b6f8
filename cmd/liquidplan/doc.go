// Package main hosts the liquidplan CLI entrypoint and command graph.
//
// The Cobra-based command tree loads the TOML configuration once, builds the
// slog logger, and hands off to the workflow manager for plans and runs, to
// the history store for past runs, and to preflight for readiness checks.
// Every report command prints a go-pretty table by default and JSON or YAML
// with --json or --yaml.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
