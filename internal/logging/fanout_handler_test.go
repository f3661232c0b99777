package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevel(t *testing.T) {
	var info, debug bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled because one handler accepts it")
	}

	logger := slog.New(h)
	logger.Debug("quiet detail")
	logger.Info("visible")

	if strings.Contains(info.String(), "quiet detail") {
		t.Fatalf("info handler received debug record: %s", info.String())
	}
	if !strings.Contains(debug.String(), "quiet detail") || !strings.Contains(debug.String(), "visible") {
		t.Fatalf("debug handler missing records: %s", debug.String())
	}
}

func TestFanoutHandlerWithAttrsReachesAllOutputs(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	logger := slog.New(h).With(slog.String(FieldEntry, "140210016_ScannerA")).WithGroup("copy")
	logger.Info("relocated", slog.Int("files", 2))

	for name, buf := range map[string]*bytes.Buffer{"first": &a, "second": &b} {
		out := buf.String()
		if !strings.Contains(out, `"entry":"140210016_ScannerA"`) {
			t.Fatalf("%s output missing entry attr: %s", name, out)
		}
		if !strings.Contains(out, `"copy":{"files":2}`) {
			t.Fatalf("%s output missing grouped attr: %s", name, out)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestFanoutHandlerKeepsWritingAfterOutputFailure(t *testing.T) {
	var ok bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(failingWriter{}, nil),
		slog.NewJSONHandler(&ok, nil),
	)
	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "entry claimed", 0))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected output failure to be reported, got %v", err)
	}
	if !strings.Contains(ok.String(), "entry claimed") {
		t.Fatalf("healthy output missed the record: %q", ok.String())
	}
}
