package hotfolder_test

import (
	"errors"
	"testing"

	"hotfolder/internal/hotfolder"
	"hotfolder/internal/services"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    hotfolder.ParsedIdentifier
		wantErr bool
	}{
		{
			name:  "catalog id and scanner",
			input: "140210016_ScannerA",
			want:  hotfolder.ParsedIdentifier{CatalogID: "140210016", Scanner: "ScannerA", Title: "140210016_ScannerA"},
		},
		{
			name:  "placeholder kept in catalog id",
			input: "89$140210016_ScannerA",
			want:  hotfolder.ParsedIdentifier{CatalogID: "89$140210016", Scanner: "ScannerA", Title: "89_140210016_ScannerA"},
		},
		{
			name:  "splits on first separator only",
			input: "140210016_Scanner_B",
			want:  hotfolder.ParsedIdentifier{CatalogID: "140210016", Scanner: "Scanner_B", Title: "140210016_Scanner_B"},
		},
		{
			name:  "trailing separator leaves scanner empty",
			input: "140210016_",
			want:  hotfolder.ParsedIdentifier{CatalogID: "140210016", Scanner: "", Title: "140210016_"},
		},
		{name: "missing separator", input: "140210016", wantErr: true},
		{name: "empty catalog id", input: "_ScannerA", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := hotfolder.ParseIdentifier(tc.input, hotfolder.DefaultNameRules)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIdentifier: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ParseIdentifier(%q) = %+v, want %+v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseIdentifierCustomRules(t *testing.T) {
	got, err := hotfolder.ParseIdentifier("12#34-Cam", hotfolder.NameRules{Separator: "-", Placeholder: "#"})
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	if got.CatalogID != "12#34" || got.Scanner != "Cam" || got.Title != "12-34-Cam" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestParseIdentifierNormalizesUnicode(t *testing.T) {
	decomposed := "123_ScannerA\u0308"
	got, err := hotfolder.ParseIdentifier(decomposed, hotfolder.DefaultNameRules)
	if err != nil {
		t.Fatalf("ParseIdentifier: %v", err)
	}
	if got.Scanner != "Scanner\u00c4" {
		t.Fatalf("expected NFC scanner name, got %q", got.Scanner)
	}
}
