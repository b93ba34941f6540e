package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"qr-ticket-system/internal/config"
)

func TestWith_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "json"}, false)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithStaff(ctx, "door1")
	ctx = WithCredentialID(ctx, "cred-9")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	for k, want := range map[string]string{"trace_id": "trace-1", "staff": "door1", "credential_id": "cred-9", "message": "hello"} {
		if line[k] != want {
			t.Errorf("%s = %v, want %q", k, line[k], want)
		}
	}
	if TraceID(ctx) != "trace-1" || Staff(ctx) != "door1" {
		t.Error("context accessors returned wrong values")
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"}, false)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line should be filtered at warn level, got %q", buf.String())
	}
	l.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatal("warn line missing")
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("a@x.com", false); got != "***" {
		t.Errorf("short value: got %q", got)
	}
	if got := Redact("someone@example.com", false); got != "some...om" {
		t.Errorf("long value: got %q", got)
	}
	if got := Redact("someone@example.com", true); got != "someone@example.com" {
		t.Errorf("dev mode must not redact, got %q", got)
	}
}
