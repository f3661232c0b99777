// Package preflight provides readiness checks for the filesystem paths and
// services the hotfolder daemon depends on.
//
// These checks run in two contexts:
//   - The orchestrator calls RunAll before every poll cycle. If any check
//     fails, the cycle is skipped as a configuration error.
//   - The CLI "hotfolder status" command shows the same results plus a
//     catalog reachability probe.
package preflight
