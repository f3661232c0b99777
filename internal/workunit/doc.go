// Package workunit is the workflow system that ingested batches become part
// of. It persists units of work in SQLite together with their ordered steps,
// properties and history, stores each unit's bibliographic description next
// to its images, and runs automatic steps.
//
// Templates are ordinary units flagged is_template; provisioning clones one
// into a new unit. The Store owns connections, schema initialization and all
// reads and writes. Runner executes automatic step scripts in the background
// and advances the step chain when a script finishes.
//
// Schema changes bump schemaVersion in schema.go; operators clear the
// database to adopt a new schema.
package workunit
