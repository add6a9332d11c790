package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(io.Discard)
		SetDebug(false)
	})
	return &buf
}

func TestWritesJSONLines(t *testing.T) {
	buf := capture(t)
	Info("registry_ready", map[string]any{"models": 5})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v; %s", err, buf.String())
	}
	if line["msg"] != "registry_ready" || line["level"] != "info" {
		t.Fatalf("unexpected line: %v", line)
	}
	if line["models"] != float64(5) {
		t.Fatalf("fields missing: %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Fatalf("timestamp missing: %v", line)
	}
}

func TestDebugIsGated(t *testing.T) {
	buf := capture(t)
	Debug("sql", map[string]any{"query": "SELECT 1"})
	if buf.Len() != 0 {
		t.Fatalf("debug written while disabled: %s", buf.String())
	}

	SetDebug(true)
	Debug("sql", map[string]any{"query": "SELECT 1"})
	if !strings.Contains(buf.String(), `"level":"debug"`) {
		t.Fatalf("debug line missing: %s", buf.String())
	}
}

func TestLevels(t *testing.T) {
	buf := capture(t)
	Warn("w", nil)
	Error("e", nil)
	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"level":"error"`) {
		t.Fatalf("levels missing: %s", out)
	}
}

func TestInitCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { SetOutput(io.Discard) })

	Info("started", nil)
	data, err := os.ReadFile(filepath.Join(dir, "log", "app.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"started"`) {
		t.Fatalf("log file missing line: %s", data)
	}
}

func TestRequestID(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestID(ctx); got != "req-1" {
		t.Fatalf("RequestID = %q", got)
	}
}
