// Package staging sweeps leftovers of interrupted ingests from managed unit
// storage.
//
// Relocation copies into hidden ".<dir>.staging-<id>" folders next to the
// destination and a unit stays unprovisioned until provisioning completes. A
// crash between those points leaves the folder or the unprovisioned unit behind;
// CleanStale and CleanOrphaned remove them once they are older than a grace
// period so a batch being ingested right now is never touched.
package staging
