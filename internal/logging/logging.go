// Package logging is the process-wide slog logger together with one helper
// per event digitalsee emits, so that field names stay consistent between
// the CLI and the API server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/FocuswithJustin/digitalsee/core/errors"
)

// ContextKey keys values this package stores in a request context.
type ContextKey string

// RequestIDKey holds the X-Request-ID of an API request.
const RequestIDKey ContextKey = "request_id"

var defaultLogger *slog.Logger

func init() {
	// Command output goes to stdout, so logs default to stderr.
	InitLogger(LevelInfo, FormatText, os.Stderr)
}

// Level is the minimum severity written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Format selects the slog handler.
type Format int

const (
	FormatJSON Format = iota
	FormatText
)

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat parses text or json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("unknown log format %q", s)
}

// InitLogger replaces the process logger, which is also installed as the
// slog default. Timestamps are written as RFC 3339.
func InitLogger(level Level, format Format, w io.Writer) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// LoggerFromContext returns a logger with context values attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := defaultLogger
	if requestID := GetRequestID(ctx); requestID != "" {
		logger = logger.With("request_id", requestID)
	}
	return logger
}

func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// InfoContext logs with the request ID carried by ctx, if any.
func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Info(msg, args...)
}

// ErrorContext logs with the request ID carried by ctx, if any.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Error(msg, args...)
}

// CorpusLoaded logs a finished corpus load.
func CorpusLoaded(dir string, documents, failures int, duration time.Duration, args ...any) {
	allArgs := []any{
		"dir", dir,
		"documents", documents,
		"failures", failures,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("corpus_loaded", allArgs...)
}

// ParseFailure logs one file that was excluded from the corpus.
func ParseFailure(file, message string, args ...any) {
	allArgs := []any{
		"file", file,
		"error", message,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Warn("parse_failure", allArgs...)
}

// ParseFailures logs each file excluded from a load.
func ParseFailures(failures []*errors.ParseError) {
	for _, f := range failures {
		ParseFailure(f.Path, f.Message)
	}
}

// CorpusChanged logs a batch of watched file changes.
func CorpusChanged(dir string, files []string, args ...any) {
	allArgs := []any{
		"dir", dir,
		"files", files,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("corpus_changed", allArgs...)
}

// ExportWritten logs a written export artifact.
func ExportWritten(kind, path string, documents int, args ...any) {
	allArgs := []any{
		"kind", kind,
		"path", path,
		"documents", documents,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("export_written", allArgs...)
}

// HTTPRequestContext logs one served API request.
func HTTPRequestContext(ctx context.Context, method, path, remoteAddr string, statusCode int, duration time.Duration, args ...any) {
	allArgs := []any{
		"method", method,
		"path", path,
		"remote_addr", remoteAddr,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Info("http_request", allArgs...)
}

// WebSocketEvent logs a change in the WebSocket client set.
func WebSocketEvent(event string, clientCount int, args ...any) {
	allArgs := []any{
		"event", event,
		"client_count", clientCount,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("websocket_event", allArgs...)
}

// ServerStartup logs the listening address of a server.
func ServerStartup(serverType, protocol string, port int, args ...any) {
	allArgs := []any{
		"server_type", serverType,
		"protocol", protocol,
		"port", port,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Info("server_startup", allArgs...)
}
