// Package ingest turns settled hotfolder batches into provisioned work units.
//
// One poll cycle scans the hotfolder, claims each settled batch folder with a
// marker file, resolves its catalog identifier, clones the configured
// workflow template into a new unit, relocates the image files into the
// unit's master image folder, starts the unit's automatic steps and finally
// removes the source folder. Failures after the claim leave the folder
// quarantined: the marker stays and later cycles skip it until an operator
// releases it.
//
// The workflow system and the catalog are reached through the narrow
// WorkflowSystem, CatalogResolver and StepStarter interfaces so tests can
// substitute fakes for any of them.
package ingest
