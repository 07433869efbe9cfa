package logging

import (
	"bytes"
	"context"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, level LogLevel) *ConsoleLogger {
	return NewConsoleLogger(ConsoleLoggerConfig{
		Writer:           buf,
		Level:            level,
		ColorEnabled:     false,
		TimestampEnabled: false,
	})
}

func TestMultiLogger_LogsToAll(t *testing.T) {
	var buf1, buf2 bytes.Buffer

	multi := NewMultiLogger(newBufferLogger(&buf1, INFO), newBufferLogger(&buf2, INFO))
	multi.Info("test message")

	output1 := buf1.String()
	output2 := buf2.String()

	if output1 == "" {
		t.Error("First logger didn't receive message")
	}
	if output2 == "" {
		t.Error("Second logger didn't receive message")
	}
	if output1 != output2 {
		t.Errorf("Loggers produced different output:\n%s\n%s", output1, output2)
	}
}

func TestMultiLogger_AllLevels(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiLogger(newBufferLogger(&buf, DEBUG))

	multi.Debug("debug message")
	multi.Info("info message")
	multi.Warn("warn message")
	multi.Error("error message")

	if buf.String() == "" {
		t.Error("MultiLogger didn't log anything")
	}
}

func TestMultiLogger_WithTraceID(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiLogger(newBufferLogger(&buf, INFO))

	traced := multi.WithTraceID("trace-123")
	traced.Info("test message")

	if buf.String() == "" {
		t.Error("Traced logger didn't log anything")
	}
}

func TestMultiLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiLogger(newBufferLogger(&buf, INFO))

	ctx := ContextWithTraceID(context.Background(), "ctx-trace")
	traced := multi.WithContext(ctx)
	traced.Info("test message")

	if buf.String() == "" {
		t.Error("Context logger didn't log anything")
	}
}
