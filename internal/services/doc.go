// Package services defines shared utilities consumed by the ingestion stages
// and their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp hotfolder entry names, unit IDs, stage names,
//     cycle IDs, and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into quarantine reasons (lookup, provisioning, relocation, validation).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
