// Package catalog resolves catalog identifiers into bibliographic
// descriptions using the library catalog's HTTP search API.
//
// Every failure mode (record not found, service unavailable, malformed
// response) is reported as a single lookup error tagged with
// services.ErrLookup; the underlying cause stays available through
// errors.Is for logging and classification.
package catalog
