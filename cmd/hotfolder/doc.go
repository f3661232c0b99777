// Command hotfolder ingests scanner batch folders into work units.
//
// Run `hotfolder daemon` in the foreground (or `hotfolder start` to detach)
// to poll the hotfolder on the configured schedule, or `hotfolder poll` to
// run a single cycle. `hotfolder status` and `hotfolder quarantine list` show
// what the next cycle will do; `hotfolder release <entry>` returns a
// quarantined batch to the queue.
package main
