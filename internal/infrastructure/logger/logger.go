// Package logger builds the service's zap loggers and carries request-scoped
// identifiers (request, store, trace) from context into log entries.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and destination
type Config struct {
	Level string
	// Format is json or console; anything else is json
	Format string
	// Output is stdout, stderr or a file path. Files are appended to.
	Output string
	// TimeFormat is a time layout; empty means RFC 3339 with milliseconds
	TimeFormat string
	Service    string
	Env        string
}

// New builds a logger from cfg. Console output uses colored levels; error
// entries carry a stack trace.
func New(cfg Config) (*zap.Logger, error) {
	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(ParseLevel(cfg.Level)),
		Encoding:          "json",
		EncoderConfig:     encoderConfig(cfg.TimeFormat),
		OutputPaths:       []string{outputPath(cfg.Output)},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: false,
		InitialFields:     map[string]any{},
	}
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if cfg.Service != "" {
		zc.InitialFields["service"] = cfg.Service
	}
	if cfg.Env != "" {
		zc.InitialFields["env"] = cfg.Env
	}

	log, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", cfg.Output, err)
	}
	return log, nil
}

// ParseLevel accepts zap's level names, case-insensitively, plus "warning".
// Anything unrecognised is info.
func ParseLevel(level string) zapcore.Level {
	level = strings.ToLower(level)
	if level == "warning" {
		return zapcore.WarnLevel
	}
	if l, err := zapcore.ParseLevel(level); err == nil {
		return l
	}
	return zapcore.InfoLevel
}

func outputPath(output string) string {
	if output == "" {
		return "stdout"
	}
	return output
}

func encoderConfig(timeLayout string) zapcore.EncoderConfig {
	if timeLayout == "" {
		timeLayout = "2006-01-02T15:04:05.000Z07:00"
	}
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}
