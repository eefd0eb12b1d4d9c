package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the request logger, or one backed by the slog default
// when ctx carries none.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Middleware stores logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger writes the fixed-shape events shared by the HTTP layer,
// the catalog service and the order worker.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPStart logs the start of an HTTP request
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).InfoContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the completed request at a level derived from the status.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).log(ctx, statusLevel(statusCode), "HTTP request completed", fields.ToSlice())
}

func statusLevel(code int) slog.Level {
	switch {
	case code >= 500:
		return slog.LevelError
	case code >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

func (sl *StructuredLogger) LogOrderCreated(ctx context.Context, id string, total float64, productCount int) {
	fields := NewFields().
		WithOrder(id, total, productCount).
		WithOperation(OpCreate)

	sl.logger.WithComponent(ComponentOrder).InfoContext(ctx, "Order created", fields.ToSlice()...)
}

// LogOrderProcessed logs an order handled by the worker. ref is the
// spreadsheet row reference and is omitted when the export was skipped.
func (sl *StructuredLogger) LogOrderProcessed(ctx context.Context, id string, total float64, productCount int, ref string) {
	fields := NewFields().
		WithOrder(id, total, productCount).
		WithOperation(OpProcess)
	if ref != "" {
		fields[FieldSheetsRef] = ref
	}

	sl.logger.WithComponent(ComponentWorker).InfoContext(ctx, "Order processed", fields.ToSlice()...)
}
