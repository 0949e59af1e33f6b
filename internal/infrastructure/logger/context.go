package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey string

// Context keys for the request-scoped identifiers. The middleware sets them;
// Fields and the GORM logger read them back.
const (
	RequestIDKey ctxKey = "request_id"
	StoreIDKey   ctxKey = "store_id"
	SubjectKey   ctxKey = "subject"

	loggerKey ctxKey = "logger"
)

var scopeKeys = [...]ctxKey{RequestIDKey, StoreIDKey, SubjectKey}

// WithContext attaches log to ctx
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger attached by WithContext, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// WithRequestID stores the request id and returns a logger carrying it, which
// is also attached to the returned context.
func WithRequestID(ctx context.Context, log *zap.Logger, id string) (context.Context, *zap.Logger) {
	return scope(ctx, log, RequestIDKey, id)
}

func WithStoreID(ctx context.Context, log *zap.Logger, storeID string) (context.Context, *zap.Logger) {
	return scope(ctx, log, StoreIDKey, storeID)
}

func WithSubject(ctx context.Context, log *zap.Logger, subject string) (context.Context, *zap.Logger) {
	return scope(ctx, log, SubjectKey, subject)
}

func scope(ctx context.Context, log *zap.Logger, key ctxKey, value string) (context.Context, *zap.Logger) {
	log = log.With(zap.String(string(key), value))
	ctx = context.WithValue(ctx, key, value)
	return WithContext(ctx, log), log
}

func GetRequestID(ctx context.Context) string { return lookup(ctx, RequestIDKey) }
func GetStoreID(ctx context.Context) string   { return lookup(ctx, StoreIDKey) }
func GetSubject(ctx context.Context) string   { return lookup(ctx, SubjectKey) }

func lookup(ctx context.Context, key ctxKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// GetTraceID is the hex trace id of the span in ctx, or ""
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID is the hex span id of the span in ctx, or ""
func GetSpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}

// Fields returns the scope identifiers and trace correlation ids present in
// ctx. Absent values are skipped.
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, len(scopeKeys)+2)
	for _, key := range scopeKeys {
		if v := lookup(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return fields
}

// Ctx returns base annotated with Fields(ctx). Services hold a base logger
// built at startup and call Ctx per operation, so entries written under a
// request carry its ids.
func Ctx(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	fields := Fields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
