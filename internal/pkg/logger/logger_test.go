package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "info", "json")

	log.Info("indexing started", "corpus", "docs", "batch", 42)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "indexing started" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["corpus"] != "docs" {
		t.Errorf("corpus = %v", entry["corpus"])
	}
}

func TestNewWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn", "text")

	log.Debug("dropped")
	log.Info("dropped too")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("sub-warn entries leaked: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn entry missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "ERROR", "bogus", ""} {
		if New(level, "text") == nil {
			t.Fatalf("New(%q) returned nil", level)
		}
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "info", "text")

	log.WithContext(context.Background()).Info("no request id")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("request_id attached without a value: %q", buf.String())
	}

	buf.Reset()
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")
	log.WithContext(ctx).Info("with request id")
	if !strings.Contains(buf.String(), "req-123") {
		t.Errorf("request_id missing: %q", buf.String())
	}
}

func TestWithCorpusAndError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "info", "text")

	log.WithCorpus("docs").WithError(context.DeadlineExceeded).Error("ingest failed")

	out := buf.String()
	if !strings.Contains(out, "corpus=docs") {
		t.Errorf("corpus attr missing: %q", out)
	}
	if !strings.Contains(out, "deadline exceeded") {
		t.Errorf("error attr missing: %q", out)
	}
}

func TestWithError_Nil(t *testing.T) {
	log := Default()
	if log.WithError(nil) != log {
		t.Error("WithError(nil) should return the receiver unchanged")
	}
}
