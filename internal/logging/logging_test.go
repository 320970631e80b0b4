package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Config{Format: "json", Level: "warn"})

	l.Info("dropped")
	l.Warn("kept", "k", "v")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "kept" || rec["k"] != "v" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestPartitionLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, Config{Format: "json", Level: "debug"}))
	defer slog.SetDefault(prev)

	ctx := WithCorrelationID(context.Background(), "abc123")
	PartitionLogger(ctx, "ds1", 7).Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["data_source"] != "ds1" {
		t.Errorf("data_source = %v, want ds1", rec["data_source"])
	}
	if rec["partition"] != "partition_0007" {
		t.Errorf("partition = %v, want partition_0007", rec["partition"])
	}
	if rec["correlation_id"] != "abc123" {
		t.Errorf("correlation_id = %v, want abc123", rec["correlation_id"])
	}
}

func TestCorrelationID(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("empty context: got %q", got)
	}

	id := GenerateCorrelationID()
	if len(id) != 16 {
		t.Errorf("GenerateCorrelationID length = %d, want 16", len(id))
	}
	if id == GenerateCorrelationID() {
		t.Error("correlation IDs should differ")
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, Config{Format: "json", Level: "info"}))
	defer slog.SetDefault(prev)

	Component("registry").Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["component"] != "registry" {
		t.Errorf("component = %v, want registry", rec["component"])
	}
}
