// Package logging provides structured logging for the wallpaper daemon.
//
// It wraps zap with automatic redaction of session secrets. Every request
// the daemon makes carries cookies, bearer tokens, or throwaway account
// credentials, and all of those routinely end up in log fields; the wrapper
// scrubs them before they reach any sink.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with secret redaction and dual console/file output.
type Logger struct {
	zap         *zap.Logger
	development bool
	filePath    string
}

// NewLogger creates a Logger for the given environment.
//
// In development the console output is colored and human-readable at debug
// level; otherwise both sinks emit JSON at info level. The file sink always
// emits JSON and rotates via lumberjack (50MB, 3 backups, 14 days,
// compressed).
func NewLogger(development bool, filePath string) (*Logger, error) {
	level := zapcore.InfoLevel
	if development {
		level = zapcore.DebugLevel
	}
	return NewLoggerWithLevel(development, filePath, level)
}

// NewLoggerWithLevel creates a Logger with an explicit minimum level,
// overriding the environment-based default.
func NewLoggerWithLevel(development bool, filePath string, level zapcore.Level) (*Logger, error) {
	core, err := newTeeCore(level, filePath, development)
	if err != nil {
		return nil, fmt.Errorf("logging: failed to build core: %w", err)
	}

	zl := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)

	return &Logger{
		zap:         zl,
		development: development,
		filePath:    filePath,
	}, nil
}

// Sync flushes any buffered log entries. Call before exiting.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs a message at DebugLevel with optional structured fields.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

// Info logs a message at InfoLevel with optional structured fields.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

// Warn logs a message at WarnLevel with optional structured fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

// Error logs a message at ErrorLevel with optional structured fields.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, redactFields(fields)...)
}

// With creates a child logger carrying additional fields on every entry.
//
// Example:
//
//	attemptLog := logger.With(
//	    zap.String("prompt_id", promptID),
//	    zap.Int("attempt", attempt))
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		zap:         l.zap.With(redactFields(fields)...),
		development: l.development,
		filePath:    l.filePath,
	}
}

// Named adds a sub-logger name identifying the component, e.g. "engine"
// or "leonardo".
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		zap:         l.zap.Named(name),
		development: l.development,
		filePath:    l.filePath,
	}
}

// Zap returns the underlying zap.Logger for the rare integration that
// needs it (the shutdown manager). Fields passed directly bypass redaction.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment returns true if the logger is configured for development mode.
func (l *Logger) IsDevelopment() bool {
	return l.development
}

// FilePath returns the path to the log file.
func (l *Logger) FilePath() string {
	return l.filePath
}

// redactFields scrubs secrets from field values before they reach any sink.
func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}

	result := make([]zap.Field, len(fields))
	for i, field := range fields {
		result[i] = redactField(field)
	}
	return result
}

func redactField(field zap.Field) zap.Field {
	if IsSecretField(field.Key) {
		return zap.String(field.Key, RedactedPlaceholder)
	}
	if field.Type == zapcore.StringType {
		if redacted := RedactSecrets(field.String); redacted != field.String {
			return zap.String(field.Key, redacted)
		}
	}
	return field
}
