package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Keys under which request-scoped values are stored on the gin context.
const (
	GinRequestIDKey = "request_id"
	GinStoreIDKey   = "store_id"
	ginLoggerKey    = "logger"
)

// GinOption adjusts GinMiddleware
type GinOption func(*ginOptions)

type ginOptions struct {
	quiet map[string]struct{}
}

// WithQuietPaths logs successful requests to the given paths at debug
// instead of info. Probe endpoints hit every few seconds go here.
func WithQuietPaths(paths ...string) GinOption {
	return func(o *ginOptions) {
		for _, p := range paths {
			o.quiet[p] = struct{}{}
		}
	}
}

// GinMiddleware logs one "HTTP Request" entry per request once the chain has
// run, so values set further down (store_id, handler errors) are included.
// Handlers get a request-bound logger through GetGinLogger.
func GinMiddleware(base *zap.Logger, opts ...GinOption) gin.HandlerFunc {
	o := ginOptions{quiet: map[string]struct{}{}}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request
		reqLog := base.With(
			zap.String("request_id", c.GetString(GinRequestIDKey)),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
		)
		c.Set(ginLoggerKey, reqLog)

		c.Next()

		status := c.Writer.Status()
		level := statusLevel(status)
		if _, ok := o.quiet[req.URL.Path]; ok && level == zapcore.InfoLevel {
			level = zapcore.DebugLevel
		}
		ce := reqLog.Check(level, "HTTP Request")
		if ce == nil {
			return
		}
		ce.Write(completionFields(c, status, time.Since(start))...)
	}
}

func statusLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func completionFields(c *gin.Context, status int, latency time.Duration) []zap.Field {
	fields := make([]zap.Field, 0, 10)
	fields = append(fields,
		zap.Int("status", status),
		zap.Duration("latency", latency),
		zap.String("client_ip", c.ClientIP()),
		zap.Int("body_size", c.Writer.Size()),
	)
	optional := []struct{ key, value string }{
		{"route", c.FullPath()},
		{"store_id", c.GetString(GinStoreIDKey)},
		{"trace_id", GetTraceID(c.Request.Context())},
		{"query", c.Request.URL.RawQuery},
	}
	for _, f := range optional {
		if f.value != "" {
			fields = append(fields, zap.String(f.key, f.value))
		}
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
	}
	return fields
}

// Recovery turns a handler panic into a logged 500 with the standard error
// envelope.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			base.Error("Panic recovered",
				zap.String("request_id", c.GetString(GinRequestIDKey)),
				zap.String("store_id", c.GetString(GinStoreIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("error", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   gin.H{"code": "INTERNAL_ERROR", "message": "An internal error occurred"},
			})
		}()
		c.Next()
	}
}

// GetGinLogger returns the logger GinMiddleware bound to this request, or a
// no-op logger outside that middleware.
func GetGinLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(ginLoggerKey); ok {
		if zl, ok := v.(*zap.Logger); ok {
			return zl
		}
	}
	return zap.NewNop()
}
