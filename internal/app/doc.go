// Package app contains the service: it loads configuration, owns the
// panels and wires storage, NATS ingest and live viewers around them,
// decoupled from any specific entrypoint like a CLI.
package app
