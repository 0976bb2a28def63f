// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// MessageIDKey is the context key for the external message id being processed
	MessageIDKey contextKey = "message_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and message_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if messageID, ok := ctx.Value(MessageIDKey).(string); ok && messageID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("message_id", messageID))}
	}

	return newLogger
}

// WithMessageID returns a logger with the external message id attached.
func (l *Logger) WithMessageID(messageID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("message_id", messageID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// MessageProcessed logs the outcome of one ingestion pass.
func (l *Logger) MessageProcessed(messageID, status string, bookings int) {
	l.Info("message_processed",
		slog.String("message_id", messageID),
		slog.String("status", status),
		slog.Int("bookings_touched", bookings),
	)
}

// ParserMiss logs a message no parser could handle, with the diagnostic report.
func (l *Logger) ParserMiss(messageID, report string) {
	l.Warn("parser_miss",
		slog.String("message_id", messageID),
		slog.String("report", report),
	)
}

// TimelineRebuild logs a rebuild triggered by an out-of-order event.
func (l *Logger) TimelineRebuild(platform, platformBookingID string, replayed int) {
	l.Info("timeline_rebuild",
		slog.String("platform", platform),
		slog.String("platform_booking_id", platformBookingID),
		slog.Int("messages_replayed", replayed),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
