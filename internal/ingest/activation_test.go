package ingest_test

import (
	"testing"

	"hotfolder/internal/ingest"
	"hotfolder/internal/metadata"
)

func TestActivationFlag(t *testing.T) {
	tokens := []string{"kn", "Konferenzschrift"}
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{name: "short token", values: []string{"kn"}, want: "ja"},
		{name: "long token", values: []string{"Konferenzschrift"}, want: "ja"},
		{name: "token among others", values: []string{"xx", "kn"}, want: "ja"},
		{name: "absent field", want: "nein"},
		{name: "empty value", values: []string{""}, want: "nein"},
		{name: "case differs", values: []string{"KN"}, want: "nein"},
		{name: "substring only", values: []string{"knx"}, want: "nein"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds := metadata.DocStruct{Type: "Monograph"}
			for _, value := range tc.values {
				ds.AddMetadata(metadata.TypeConferenceIndicator, value)
			}
			if got := ingest.ActivationFlag(ds, metadata.TypeConferenceIndicator, tokens); got != tc.want {
				t.Fatalf("ActivationFlag(%v) = %q, want %q", tc.values, got, tc.want)
			}
		})
	}
}

func TestImagePathURL(t *testing.T) {
	if got := ingest.ImagePathURL("/units/7/images/140210016_ScannerA_tif", "linux"); got != "file:///units/7/images/140210016_ScannerA_tif" {
		t.Fatalf("posix url = %q", got)
	}
	if got := ingest.ImagePathURL(`C:\units\7\images\x_tif`, "windows"); got != "file:/C:/units/7/images/x_tif" {
		t.Fatalf("windows url = %q", got)
	}
}
