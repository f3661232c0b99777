package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRenderTableWrapsLongDetails(t *testing.T) {
	detail := strings.TrimSpace(strings.Repeat("relocation failed while copying scans ", 6))
	out := renderTable(
		[]string{"Entry", "Files", "Detail"},
		[][]string{
			{"140210016_ScannerA", "12", detail},
			{"140210017_ScannerA"},
		},
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for _, line := range lines {
		if width := utf8.RuneCountInString(line); width > 2*maxCellWidth {
			t.Fatalf("line is %d runes wide:\n%s", width, out)
		}
	}
	if !strings.Contains(out, "140210017_ScannerA") {
		t.Fatalf("short row missing:\n%s", out)
	}
	if !strings.Contains(out, "relocation failed") {
		t.Fatalf("detail missing:\n%s", out)
	}
	wrapped := 0
	for _, line := range lines {
		if strings.Contains(line, "copying scans") {
			wrapped++
		}
	}
	if wrapped < 2 {
		t.Fatalf("expected detail to wrap over several lines:\n%s", out)
	}
}

func TestRenderTableWithoutHeaders(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
