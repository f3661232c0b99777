// Package metadata models the bibliographic description attached to a unit:
// a logical and a physical structure element, each carrying an ordered list
// of typed metadata values. Documents are stored as JSON next to the unit.
package metadata
