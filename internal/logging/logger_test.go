package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hotfolder/internal/logging"
	"hotfolder/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (*slog.Logger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "logs", "hotfolder.log")
	logger, err := logging.New(logging.Options{
		Format:      format,
		Level:       level,
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logger, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logger, path := newFileLogger(t, "console", "info")
	logger.Info("message without caller")

	content := readLog(t, path)
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("expected no colour codes in file output, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logger, path := newFileLogger(t, "console", "debug")
	logger.Info("message with caller")

	if content := readLog(t, path); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersSubjectAndFields(t *testing.T) {
	logger, path := newFileLogger(t, "console", "info")
	logger = logging.NewComponentLogger(logger, "ingest")
	logger.Info("unit provisioned",
		logging.String(logging.FieldEntry, "140210016_ScannerA"),
		logging.Int64(logging.FieldUnitID, 12),
		logging.String(logging.FieldStage, "provision"),
		logging.String(logging.FieldEventType, "unit_provisioned"),
		logging.Int64("bytes_copied", 2048),
		logging.String("source_path", "/hot/140210016_ScannerA"),
	)

	content := readLog(t, path)
	for _, want := range []string{
		"INFO [ingest] 140210016_ScannerA · Unit #12 (provision) – unit provisioned",
		"- Event: unit_provisioned",
		"- Copied: 2.0 KiB",
		"+ 1 more field hidden",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in console output:\n%s", want, content)
		}
	}
}

func TestJSONLoggerWritesStructuredRecords(t *testing.T) {
	logger, path := newFileLogger(t, "json", "info")
	logger.Info("json message", logging.String("k", "v"))

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, path))), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["msg"] != "json message" || record["level"] != "info" || record["k"] != "v" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
}

func TestJSONLoggerRendersDurationsAndErrors(t *testing.T) {
	logger, path := newFileLogger(t, "json", "info")
	logger.Info("cycle finished",
		logging.Duration("cycle_duration", 1500*time.Millisecond),
		logging.Error(services.Wrap(services.ErrLookup, "resolve", "search", "no record", services.ErrNotFound)),
	)

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, path))), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["cycle_duration"] != 1.5 {
		t.Fatalf("expected duration in seconds, got %v", record["cycle_duration"])
	}
	msg, ok := record[logging.FieldError].(string)
	if !ok || !strings.Contains(msg, "no record") {
		t.Fatalf("expected error message text, got %v", record[logging.FieldError])
	}
	ts, _ := record["ts"].(string)
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil || !strings.HasSuffix(ts, "Z") {
		t.Fatalf("expected UTC RFC3339 timestamp, got %q", ts)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logger, path := newFileLogger(t, "console", "invalid")
	logger.Debug("hidden")
	logger.Info("shown")
	content := readLog(t, path)
	if strings.Contains(content, "hidden") || !strings.Contains(content, "shown") {
		t.Fatalf("expected info level filtering, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCycleID(ctx, "cycle-1")
	ctx = services.WithEntry(ctx, "140210016_ScannerA")
	ctx = services.WithUnitID(ctx, 123)
	ctx = services.WithStage(ctx, "relocate")
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, base).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		logging.FieldCycleID:       "cycle-1",
		logging.FieldEntry:         "140210016_ScannerA",
		logging.FieldUnitID:        float64(123),
		logging.FieldStage:         "relocate",
		logging.FieldCorrelationID: "req-xyz",
	}
	for key, value := range want {
		if record[key] != value {
			t.Fatalf("field %s = %v, want %v", key, record[key], value)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "entry quarantined", "entry_quarantined",
		logging.String(logging.FieldErrorHint, "release the entry"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "entry_quarantined" {
		t.Fatalf("missing event type: %v", record)
	}
	if record[logging.FieldErrorHint] != "release the entry" {
		t.Fatalf("hint overridden: %v", record)
	}
	if record[logging.FieldImpact] == nil {
		t.Fatalf("expected default impact: %v", record)
	}
}

func TestCleanupOldLogsHonoursExclusions(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().AddDate(0, 0, -10)
	paths := map[string]string{}
	for _, name := range []string{"hotfolder-a.log", "hotfolder-b.log", "other.txt"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
		paths[name] = path
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 5, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "hotfolder-*.log",
		Exclude: []string{paths["hotfolder-b.log"]},
	})
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(paths["hotfolder-a.log"]); !os.IsNotExist(err) {
		t.Fatal("expected old log to be pruned")
	}
	for _, keep := range []string{"hotfolder-b.log", "other.txt"} {
		if _, err := os.Stat(paths[keep]); err != nil {
			t.Fatalf("expected %s to remain: %v", keep, err)
		}
	}
}

func TestErrorWithContextClassifiesPipelineErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	err := services.Wrap(services.ErrRelocation, "relocate", "copy", "a.tif", os.ErrPermission)
	logging.ErrorWithContext(logger, "entry quarantined", "entry_quarantined", logging.Error(err))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldErrorKind] != "relocation" {
		t.Fatalf("error_kind = %v, want relocation", record[logging.FieldErrorKind])
	}
	if record[logging.FieldErrorHint] != services.Hint(err) {
		t.Fatalf("error_hint = %v, want %q", record[logging.FieldErrorHint], services.Hint(err))
	}

	buf.Reset()
	logging.ErrorWithContext(logger, "plain failure", "plain_failure")
	record = map[string]any{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := record[logging.FieldErrorKind]; ok {
		t.Fatalf("unexpected error_kind without error: %v", record)
	}
	if record[logging.FieldErrorHint] != "check logs for details" {
		t.Fatalf("expected default hint, got %v", record[logging.FieldErrorHint])
	}
}
