package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// One JSON object per line, fields flattened next to ts/level/msg.
var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout
)

// SetOutput redirects log lines and returns a func restoring the previous
// writer.
func SetOutput(w io.Writer) func() {
	outMu.Lock()
	prev := out
	out = w
	outMu.Unlock()
	return func() {
		outMu.Lock()
		out = prev
		outMu.Unlock()
	}
}

func Info(msg string, fields map[string]any) {
	write("info", msg, fields)
}

func Error(msg string, fields map[string]any) {
	write("error", msg, fields)
}

// InfoContext is Info plus the request and trace ids carried by ctx.
func InfoContext(ctx context.Context, msg string, fields map[string]any) {
	write("info", msg, withContext(ctx, fields))
}

// ErrorContext is Error plus the request and trace ids carried by ctx.
func ErrorContext(ctx context.Context, msg string, fields map[string]any) {
	write("error", msg, withContext(ctx, fields))
}

func withContext(ctx context.Context, fields map[string]any) map[string]any {
	if ctx == nil {
		return fields
	}
	merged := make(map[string]any, len(fields)+2)
	if id := RequestID(ctx); id != "" {
		merged["request_id"] = id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		merged["trace_id"] = sc.TraceID().String()
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func write(level, msg string, fields map[string]any) {
	now := time.Now().UTC().Format(time.RFC3339)
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = now
	entry["level"] = level
	entry["msg"] = msg

	line, err := json.Marshal(entry)
	if err != nil {
		line = []byte(fmt.Sprintf(`{"ts":%q,"level":"error","msg":"log encode failed","source_msg":%q,"error":%q}`, now, msg, err.Error()))
	}
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(out, string(line))
}
