// Package scheduler triggers ingestion cycles on a cron schedule.
//
// A file lock in the state directory serialises cycles across processes, so
// a manual `hotfolder poll` never overlaps with the daemon's own trigger.
// Panics raised by a cycle are recovered and logged by the cron chain.
package scheduler
