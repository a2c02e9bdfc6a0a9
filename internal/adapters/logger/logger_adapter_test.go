package logger_adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"rental-system/internal/core/port"
	"strings"
	"testing"
)

type fakeFluent struct {
	tags []string
	msgs []port.Fields
}

func (f *fakeFluent) Post(tag string, message interface{}) error {
	f.tags = append(f.tags, tag)
	f.msgs = append(f.msgs, message.(port.Fields))
	return nil
}

func (f *fakeFluent) Close() error { return nil }

func TestSlogAdapterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(SlogConfig{Writer: &buf, IsJSON: true, Level: slog.LevelDebug})

	logger.WithFields(port.Fields{"trace_id": "t-1"}).Error("boom", errors.New("disk full"), port.Fields{"step": "upload"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if entry["msg"] != "boom" || entry["trace_id"] != "t-1" || entry["step"] != "upload" || entry["error"] != "disk full" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(SlogConfig{Writer: &buf, Level: slog.LevelWarn})

	logger.Info("hidden", nil)
	logger.Debug("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("below-level entries written: %q", buf.String())
	}
	logger.Warn("shown", nil)
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn entry missing: %q", buf.String())
	}
}

func TestFluentAdapterFiltersAndMerges(t *testing.T) {
	client := &fakeFluent{}
	adapter, err := NewFluentLoggerAdapter(client, slog.LevelInfo)
	if err != nil {
		t.Fatal(err)
	}

	scoped := adapter.WithFields(port.Fields{"component": "repo"})
	scoped.Debug("dropped", nil)
	scoped.Error("failed", errors.New("x"), port.Fields{"id": 1})

	if len(client.msgs) != 1 {
		t.Fatalf("posted %d entries, want 1", len(client.msgs))
	}
	if client.tags[0] != "error" {
		t.Errorf("tag = %q", client.tags[0])
	}
	msg := client.msgs[0]
	if msg["component"] != "repo" || msg["id"] != 1 || msg["error"] != "x" || msg["message"] != "failed" {
		t.Fatalf("entry = %v", msg)
	}
	if len(adapter.fields) != 0 {
		t.Fatal("WithFields mutated the parent adapter")
	}
}

type countingLogger struct {
	port.LoggerPort
	infos *int
}

func (c countingLogger) Info(string, port.Fields)                { *c.infos++ }
func (c countingLogger) WithFields(port.Fields) port.LoggerPort { return c }

func TestMultiloggerFansOut(t *testing.T) {
	var a, b int
	logger, err := NewMultiloggerAdapter(countingLogger{infos: &a}, nil, countingLogger{infos: &b})
	if err != nil {
		t.Fatal(err)
	}
	logger.WithFields(port.Fields{"k": "v"}).Info("hello", nil)
	if a != 1 || b != 1 {
		t.Fatalf("a=%d b=%d", a, b)
	}

	if _, err := NewMultiloggerAdapter(); err == nil {
		t.Fatal("empty multilogger accepted")
	}
}
