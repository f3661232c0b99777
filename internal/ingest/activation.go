package ingest

import (
	"runtime"
	"strings"

	"hotfolder/internal/metadata"
)

const (
	activationYes = "ja"
	activationNo  = "nein"
)

// ActivationFlag returns "ja" when any value of field on ds equals one of
// tokens exactly, otherwise "nein".
func ActivationFlag(ds metadata.DocStruct, field string, tokens []string) string {
	for _, value := range ds.Values(field) {
		for _, token := range tokens {
			if value == token {
				return activationYes
			}
		}
	}
	return activationNo
}

// ImagePathURL renders the file URL stored in the image path field for the
// working image folder dir. Windows paths get a single slash after the
// scheme.
func ImagePathURL(dir, goos string) string {
	if goos == "" {
		goos = runtime.GOOS
	}
	if goos == "windows" {
		return "file:/" + strings.ReplaceAll(dir, `\`, "/")
	}
	return "file://" + dir
}
