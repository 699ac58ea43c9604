package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()

	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		" DEBUG ": DebugLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
		"info":    InfoLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}

	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("ev-test", "test", WarnLevel)
	logger.SetOutput(&buf)

	ctx := context.Background()
	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", Fields{"k": "v"})

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Level != "WARN" || entries[0].Message != "warn" {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[0].Fields["k"] != "v" {
		t.Errorf("Fields = %v", entries[0].Fields)
	}
}

func TestStructuredLogger_ErrorCarriesCallerAndContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("ev-test", "test", DebugLevel)
	logger.SetOutput(&buf)

	ctx := WithLoadID(WithRequestID(context.Background(), "req-1"), "load-1")
	logger.Error(ctx, "[TEST_ERROR] failed", Fields{}, errors.New("boom"))

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Error != "boom" {
		t.Errorf("Error = %q, want boom", e.Error)
	}
	if e.RequestID != "req-1" || e.LoadID != "load-1" {
		t.Errorf("RequestID/LoadID = %q/%q", e.RequestID, e.LoadID)
	}
	if !strings.HasSuffix(e.File, "logger_test.go") {
		t.Errorf("File = %q, want logger_test.go", e.File)
	}
	if e.StackTrace != "" {
		t.Error("StackTrace should only be set for fatal entries")
	}
}

func TestStructuredLogger_FatalExits(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("ev-test", "test", InfoLevel)
	logger.SetOutput(&buf)

	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal(context.Background(), "fatal", Fields{}, errors.New("boom"))

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	entries := decodeEntries(t, &buf)
	if len(entries) != 1 || entries[0].StackTrace == "" {
		t.Errorf("fatal entry should carry a stack trace: %+v", entries)
	}
}

func TestContextLogger_MergeFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("ev-test", "test", InfoLevel)
	logger.SetOutput(&buf)

	cl := logger.WithFields(Fields{"component": "ingestion", "source": "file"})
	cl.Info(context.Background(), "loaded", Fields{"source": "url", "records": 2})

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	f := entries[0].Fields
	if f["component"] != "ingestion" || f["source"] != "url" {
		t.Errorf("Fields = %v", f)
	}
	if f["records"] != float64(2) {
		t.Errorf("records = %v, want 2", f["records"])
	}
}
