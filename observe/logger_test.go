package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line as JSON: %v\nLine: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_JSONShape(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "content cached", Field{Key: "key", Value: "summary:42"})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["msg"] != "content cached" {
		t.Errorf("msg = %v", e["msg"])
	}
	if e["level"] != "info" {
		t.Errorf("level = %v", e["level"])
	}
	if e["key"] != "summary:42" {
		t.Errorf("key = %v", e["key"])
	}
	if _, ok := e["timestamp"].(string); !ok {
		t.Errorf("timestamp missing: %v", e)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at warn level, got %d", len(entries))
	}
	if entries[0]["msg"] != "warn" || entries[1]["msg"] != "error" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Info(context.Background(), "calling provider",
		Field{Key: "transcript", Value: "Alice: ship it on Friday"},
		Field{Key: "api_key", Value: "sk-live"},
		Field{Key: "model", Value: "gpt-4"},
	)

	out := buf.String()
	if strings.Contains(out, "ship it") || strings.Contains(out, "sk-live") {
		t.Fatalf("sensitive values leaked: %s", out)
	}
	e := decodeLines(t, &buf)[0]
	if e["transcript"] != "[REDACTED]" || e["api_key"] != "[REDACTED]" {
		t.Errorf("expected redaction, got %v", e)
	}
	if e["model"] != "gpt-4" {
		t.Errorf("model = %v, want gpt-4", e["model"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)
	child := base.With(Field{Key: "component", Value: "cache"})

	child.Info(context.Background(), "child")
	base.Info(context.Background(), "base")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0]["component"] != "cache" {
		t.Errorf("child entry missing component: %v", entries[0])
	}
	if _, ok := entries[1]["component"]; ok {
		t.Errorf("base logger must not inherit child fields: %v", entries[1])
	}
}

func TestLogger_CallFieldsOverrideBase(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(Field{Key: "op", Value: "base"})

	logger.Info(context.Background(), "msg", Field{Key: "op", Value: "call"})

	if e := decodeLines(t, &buf)[0]; e["op"] != "call" {
		t.Errorf("op = %v, want call", e["op"])
	}
}

func TestLogger_ConcurrentWritesStayLineDelimited(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.With(Field{Key: "worker", Value: i}).Info(context.Background(), "tick")
		}(i)
	}
	wg.Wait()

	if got := len(decodeLines(t, &buf)); got != 20 {
		t.Errorf("expected 20 entries, got %d", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Info(context.Background(), "ignored")
	if logger.With(Field{Key: "k", Value: "v"}) == nil {
		t.Fatal("With should return non-nil logger")
	}
}
