package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return entry
}

func TestErrorWritesFlatJSON(t *testing.T) {
	var buf bytes.Buffer
	defer SetOutput(&buf)()

	Error("analysis.persist_failed", map[string]any{"user_id": "u1", "msg": "shadowed"})
	entry := decodeLine(t, &buf)
	if entry["level"] != "error" || entry["msg"] != "analysis.persist_failed" || entry["user_id"] != "u1" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, err := time.Parse(time.RFC3339, entry["ts"].(string)); err != nil {
		t.Fatalf("bad ts: %v", err)
	}
}

func TestInfoContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	defer SetOutput(&buf)()

	ctx := WithRequestID(context.Background(), "req-9")
	InfoContext(ctx, "analysis.outcome", map[string]any{"outcome": "analyzed"})
	entry := decodeLine(t, &buf)
	if entry["request_id"] != "req-9" || entry["outcome"] != "analyzed" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["trace_id"]; ok {
		t.Fatalf("no span in ctx, trace_id should be absent")
	}
}

func TestDetachKeepsValuesDropsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(WithRequestID(context.Background(), "req-1"))
	detached := Detach(ctx)
	cancel()
	if detached.Err() != nil {
		t.Fatalf("detached context must not be canceled")
	}
	if RequestID(detached) != "req-1" {
		t.Fatalf("request id lost")
	}
	if RequestID(context.Background()) != "" {
		t.Fatalf("expected empty request id")
	}
}
