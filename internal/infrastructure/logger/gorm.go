package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormConfig controls which statements reach the log
type GormConfig struct {
	Level gormlogger.LogLevel
	// SlowThreshold of zero disables slow-query warnings
	SlowThreshold time.Duration
	// LogNotFound reports gorm.ErrRecordNotFound as an error. Off by default:
	// lookups of unknown keys are routine.
	LogNotFound bool
	// Contention matches errors the caller retries, such as lock timeouts.
	// They are logged as warnings.
	Contention func(error) bool
}

// GormLogger routes GORM's statement log into zap, tagged with the request
// and trace identifiers carried by ctx
type GormLogger struct {
	log *zap.Logger
	cfg GormConfig
}

// NewGormLogger creates a GormLogger on a "gorm" child of base
func NewGormLogger(base *zap.Logger, cfg GormConfig) *GormLogger {
	return &GormLogger{log: base.Named("gorm"), cfg: cfg}
}

// ParseGormLevel maps the configured database log level onto GORM's levels.
// Unknown values fall back to warn.
func ParseGormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	}
	return gormlogger.Warn
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.cfg.Level = level
	return &clone
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(min gormlogger.LogLevel, level zapcore.Level, msg string, data []any) {
	if l.cfg.Level < min {
		return
	}
	l.log.Sugar().Logf(level, msg, data...)
}

// Trace is called once per statement
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	level, msg, ok := l.classify(elapsed, err)
	if !ok {
		return
	}

	ce := l.log.Check(level, msg)
	if ce == nil {
		return
	}
	stmt, rows := fc()
	fields := append(Fields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", stmt),
	)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

// classify decides whether a statement is logged, and how
func (l *GormLogger) classify(elapsed time.Duration, err error) (zapcore.Level, string, bool) {
	switch {
	case l.cfg.Level <= gormlogger.Silent:
		return 0, "", false
	case err != nil:
		if l.cfg.Level < gormlogger.Error ||
			(!l.cfg.LogNotFound && errors.Is(err, gormlogger.ErrRecordNotFound)) {
			return 0, "", false
		}
		if l.cfg.Contention != nil && l.cfg.Contention(err) {
			return zapcore.WarnLevel, "sql contention", true
		}
		return zapcore.ErrorLevel, "sql error", true
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold && l.cfg.Level >= gormlogger.Warn:
		return zapcore.WarnLevel, "slow sql", true
	case l.cfg.Level >= gormlogger.Info:
		return zapcore.DebugLevel, "sql", true
	}
	return 0, "", false
}
