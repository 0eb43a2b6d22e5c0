package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupWriterJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetupWriter(Config{Format: "json", Level: "info"}, &buf)

	ctx := WithCorrelationID(context.Background(), "corr-1")
	BuildLogger(ctx, "suzuki", "build-1").Info("built", "entries", 6)
	slog.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "built" || rec["dataset"] != "suzuki" || rec["correlation_id"] != "corr-1" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestCorrelationID(t *testing.T) {
	if CorrelationID(context.Background()) != "" {
		t.Error("empty context should have no correlation ID")
	}
	id := GenerateCorrelationID()
	if len(id) != 16 {
		t.Errorf("correlation ID %q should be 16 hex chars", id)
	}
	if GenerateCorrelationID() == id {
		t.Error("correlation IDs should be unique")
	}
}
