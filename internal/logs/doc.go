// Package logs reads the daemon log for `hotfolder logs`.
//
// Last returns the final lines of a file along with the offset it stopped
// at, and Follow streams lines appended after an offset until the context is
// cancelled. Memory use is bounded by the number of lines requested, not by
// the size of the log.
package logs
