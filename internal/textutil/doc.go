// Package textutil sanitizes names for use as path segments and header
// tokens.
package textutil
