package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerContextKey    contextKey = "logger"
	requestIDContextKey contextKey = "request_id"
)

// WithContext attaches a logger to the context
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext returns the logger attached to the context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in the context and returns the context
// together with a logger that stamps the ID on every entry
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDContextKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID returns the request ID carried by the context, or ""
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// ContextLogger couples a context with a logger so call sites get request
// correlation without threading the request ID by hand.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L returns a ContextLogger drawing its logger from the context
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger returns a ContextLogger around an explicit logger
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: logger}
}

func (cl *ContextLogger) resolve() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	if requestID := GetRequestID(cl.ctx); requestID != "" {
		l = l.With(zap.String("request_id", requestID))
	}
	return l
}

// With returns a child ContextLogger carrying extra fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

// Debug logs at debug level with request correlation
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.resolve().Debug(msg, fields...)
}

// Info logs at info level with request correlation
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.resolve().Info(msg, fields...)
}

// Warn logs at warn level with request correlation
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.resolve().Warn(msg, fields...)
}

// Error logs at error level with request correlation
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.resolve().Error(msg, fields...)
}

// Zap returns the underlying zap logger enriched with context fields
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.resolve()
}
