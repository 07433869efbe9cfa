package logging

import (
	"context"
	"time"
)

// LogLevel controls logging verbosity
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// String returns the level name
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config log level name to a LogLevel
func ParseLevel(name string) LogLevel {
	switch name {
	case "debug":
		return DEBUG
	case "verbose":
		return DEBUG
	case "quiet":
		return ERROR
	default:
		return INFO
	}
}

// Field is a structured key/value pair attached to a log entry
type Field struct {
	Key   string
	Value interface{}
}

// F creates a log field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// LogEntry is the JSON document written per line by the file logger
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	TraceID   string                 `json:"traceId,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger is the logging interface used throughout nfsync
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithTraceID(traceID string) Logger
	WithContext(ctx context.Context) Logger
	SetLevel(level LogLevel)
	Close() error
}

type traceIDKey struct{}

// ContextWithTraceID returns a context carrying the trace ID
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext extracts the trace ID from the context, if any
func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey{}).(string); ok {
		return v
	}
	return ""
}

// LogConfig configures the logger built by NewLogger
type LogConfig struct {
	Level           LogLevel
	OutputFile      string
	EnableConsole   bool
	EnableDebug     bool
	RedactSensitive bool
	EnableColor     bool
	EnableTimestamp bool
	MaxFileSize     int64
}

// DefaultLogConfig returns the default logging configuration
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:           INFO,
		EnableConsole:   true,
		RedactSensitive: true,
		MaxFileSize:     100 * 1024 * 1024, // 100 MiB
	}
}

// NewLogger builds a logger from the config: console, file, both (multi),
// or a no-op logger when neither output is enabled.
func NewLogger(config LogConfig) (Logger, error) {
	if config.EnableDebug {
		config.Level = DEBUG
	}

	var loggers []Logger

	if config.EnableConsole {
		loggers = append(loggers, NewConsoleLogger(ConsoleLoggerConfig{
			Level:            config.Level,
			ColorEnabled:     config.EnableColor,
			TimestampEnabled: config.EnableTimestamp,
			RedactSensitive:  config.RedactSensitive,
		}))
	}

	if config.OutputFile != "" {
		fileLogger, err := NewFileLogger(FileLoggerConfig{
			FilePath:      config.OutputFile,
			Level:         config.Level,
			MaxFileSize:   config.MaxFileSize,
			RotateEnabled: config.MaxFileSize > 0,
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, fileLogger)
	}

	switch len(loggers) {
	case 0:
		return &NoOpLogger{}, nil
	case 1:
		return loggers[0], nil
	default:
		return NewMultiLogger(loggers...), nil
	}
}

// NoOpLogger discards everything
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, fields ...Field)      {}
func (l *NoOpLogger) Info(msg string, fields ...Field)       {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)       {}
func (l *NoOpLogger) Error(msg string, fields ...Field)      {}
func (l *NoOpLogger) WithTraceID(traceID string) Logger      { return l }
func (l *NoOpLogger) WithContext(ctx context.Context) Logger { return l }
func (l *NoOpLogger) SetLevel(level LogLevel)                {}
func (l *NoOpLogger) Close() error                           { return nil }
