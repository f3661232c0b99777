// Package daemon coordinates the long-running hotfolder process.
//
// It wires configuration, the work unit store, the step runner and the poll
// scheduler into a single lifecycle with flock-based locking to prevent
// multiple instances. Keep orchestration here: ingestion itself lives in
// package ingest while the daemon focuses on startup, shutdown and status.
//
// When metrics.listen is set the daemon also serves /healthz, /api/status and
// /metrics over plain HTTP.
package daemon
