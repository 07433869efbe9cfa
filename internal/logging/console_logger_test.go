package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, WARN)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "info message") {
		t.Error("INFO message logged despite WARN level")
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("Expected warn and error messages, got:\n%s", out)
	}
}

func TestRedactSensitiveData(t *testing.T) {
	tests := []struct {
		name  string
		input string
		leak  string
	}{
		{
			name:  "cifs mount option",
			input: "mount -t cifs //nas/share /mnt -o username=bob,password=hunter2,vers=3.0",
			leak:  "hunter2",
		},
		{
			name:  "password field",
			input: `credential: "s3cret"`,
			leak:  "s3cret",
		},
		{
			name:  "sudo stdin",
			input: "sudo -S mypassword",
			leak:  "mypassword",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactSensitiveData(tt.input)
			if strings.Contains(got, tt.leak) {
				t.Errorf("redactSensitiveData(%q) leaked %q: %q", tt.input, tt.leak, got)
			}
			if !strings.Contains(got, "[REDACTED]") {
				t.Errorf("redactSensitiveData(%q) = %q, expected redaction marker", tt.input, got)
			}
		})
	}
}

func TestRedactKeepsUsername(t *testing.T) {
	got := redactSensitiveData("-o username=bob,password=hunter2")
	if !strings.Contains(got, "username=bob") {
		t.Errorf("Username should survive redaction, got %q", got)
	}
}

func TestConsoleLogger_TraceIDPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, INFO)

	traced := logger.WithTraceID("0123456789abcdef")
	traced.Info("hello")

	if !strings.Contains(buf.String(), "[01234567]") {
		t.Errorf("Expected 8-char trace prefix, got %q", buf.String())
	}
}
