package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RequestIDMiddleware adds request ID to logger context
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := extractRequestID(r)
			logger := FromContext(r.Context()).With(FieldRequestID, requestID)
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StructuredLogger provides structured logging methods for recurring events
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogDatasetLoaded logs a successful dataset load at startup
func (sl *StructuredLogger) LogDatasetLoaded(ctx context.Context, backend string, rows, years, categories int) {
	fields := NewFields().WithOperation(OpLoad)
	fields[FieldBackend] = backend
	fields[FieldRowCount] = rows
	fields["years"] = years
	fields["category_count"] = categories

	sl.logger.WithComponent(ComponentDataset).InfoContext(ctx, "Dataset loaded", fields.ToSlice()...)
}

// LogComputed logs one dashboard computation
func (sl *StructuredLogger) LogComputed(ctx context.Context, year int, categories []string, start, end string, selected int, top string, cacheHit bool) {
	fields := NewFields().
		WithCriteria(year, categories, start, end).
		WithOperation(OpCompute)
	fields[FieldSelected] = selected
	fields[FieldTopCategory] = top
	fields[FieldCacheHit] = cacheHit

	sl.logger.WithComponent(ComponentAnalytics).DebugContext(ctx, "Dashboard computed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)

	sl.logger.WithComponent(component).ErrorContext(ctx, msg, allFields.ToSlice()...)
}
