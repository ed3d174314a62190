package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/webserv/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"json", Config{Level: "info", Format: "json"}, false},
		{"text", Config{Level: "debug", Format: "text"}, false},
		{"defaults", Config{}, false},
		{"upper case", Config{Level: "WARN", Format: "JSON"}, false},
		{"invalid level", Config{Level: "loud"}, true},
		{"invalid format", Config{Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Writer = &bytes.Buffer{}
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info record passed a warn logger")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn record missing")
	}
}

func TestContextHandler_AddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	ctx = WithRequestID(ctx, "req-42")

	logger.With("component", "test").InfoContext(ctx, "served")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "req-42" {
		t.Errorf("expected request_id, got %v", entry["request_id"])
	}
	if entry["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" || entry["span_id"] != "00f067aa0ba902b7" {
		t.Errorf("expected trace identifiers, got %v", entry)
	}
	if entry["component"] != "test" {
		t.Errorf("With attributes lost: %v", entry)
	}
}

func TestContextHandler_NoContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Format: "json", Writer: &buf})
	logger.Info("plain")
	if strings.Contains(buf.String(), "request_id") || strings.Contains(buf.String(), "trace_id") {
		t.Errorf("unexpected identifiers in %q", buf.String())
	}
}

func TestSetup_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	if _, err := Setup(Config{Level: "info", Format: "text", Writer: &buf}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	slog.Info("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Error("Setup did not install the default logger")
	}
}

func TestSetLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		_ = SetLevel("info")
	})

	var buf bytes.Buffer
	if _, err := Setup(Config{Level: "warn", Format: "text", Writer: &buf}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	slog.Info("before")
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	slog.Debug("after")

	if strings.Contains(buf.String(), "before") {
		t.Error("info record passed the initial warn threshold")
	}
	if !strings.Contains(buf.String(), "after") {
		t.Error("debug record missing after SetLevel(debug)")
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFromConfig(t *testing.T) {
	c := FromConfig(config.LoggingConfig{Level: "debug", Format: "json", AddSource: true})
	if c.Level != "debug" || c.Format != "json" || !c.AddSource {
		t.Errorf("unexpected mapping %+v", c)
	}
}
