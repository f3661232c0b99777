// Package hotfolder implements the filesystem side of batch ingestion: it
// enumerates batch folders deposited by a scanning station, decides when a
// folder has settled, claims it with a create-exclusive marker file, parses
// the catalog identifier from its name, and relocates its payload into managed
// storage through a staging directory.
//
// Nothing here talks to the catalog or the workflow system; the ingest package
// sequences these primitives into the ingestion state machine.
package hotfolder
