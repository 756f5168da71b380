package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/tabula/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "trace"}, nil); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(config.LoggingConfig{Format: "xml"}, nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("ignored")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("expected warn line, got %q", buf.String())
	}
}

func TestNew_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithExportID(context.Background(), "exp-1")
	ctx = WithJobID(ctx, "job-9")
	ctx = WithSchedule(ctx, "daily")
	logger.With("component", "export.pipeline").InfoContext(ctx, "state transition", "to", "appending")

	line := decodeLine(t, &buf)
	want := map[string]string{
		"export_id": "exp-1",
		"job_id":    "job-9",
		"schedule":  "daily",
		"component": "export.pipeline",
		"to":        "appending",
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("field %q = %v, want %q", k, line[k], v)
		}
	}
	if _, ok := line["trace_id"]; ok {
		t.Error("unexpected trace_id without a span")
	}
}

func TestNew_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("notify", "recipient", "alice@example.com", "api_key", "SG.abcdef", "rows", 3)

	line := decodeLine(t, &buf)
	if line["recipient"] != "a***@example.com" {
		t.Errorf("recipient = %v", line["recipient"])
	}
	if line["api_key"] != "SG.a***" {
		t.Errorf("api_key = %v", line["api_key"])
	}
	if line["rows"] != float64(3) {
		t.Errorf("rows = %v", line["rows"])
	}
}

func TestSetup_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	if _, err := Setup(config.LoggingConfig{Format: "text"}, &buf); err != nil {
		t.Fatal(err)
	}
	slog.Default().Info("hello", "component", "test")
	if !strings.Contains(buf.String(), "component=test") {
		t.Errorf("expected text output through default logger, got %q", buf.String())
	}
}

func TestRedactHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"short secret", RedactSecret("abc"), "***"},
		{"empty secret", RedactSecret(""), ""},
		{"email", RedactEmail("bob@shop.io"), "b***@shop.io"},
		{"not email", RedactEmail("bob"), "bob"},
		{"embedded", RedactEmails("sent to carol@x.org and dan@y.org"), "sent to c***@x.org and d***@y.org"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
