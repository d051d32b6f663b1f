// Package monitoring builds the loggers used by the command-line tools and
// defines the Logf hook that library packages accept instead of a global.
package monitoring

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logf is a printf-style diagnostic sink. Library code takes one in its
// options; a nil Logf means silence.
type Logf func(format string, v ...interface{})

// Discard is a Logf that drops everything.
func Discard(string, ...interface{}) {}

// OrDiscard returns f, or Discard when f is nil.
func OrDiscard(f Logf) Logf {
	if f == nil {
		return Discard
	}
	return f
}

// NewLogger returns a zap logger for mode. "production" logs JSON at info
// level; "development" (and "") logs colored console output at debug level.
func NewLogger(mode string) (*zap.Logger, error) {
	var cfg zap.Config

	switch mode {
	case "production":
		cfg = zap.NewProductionConfig()
	case "development", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
	// Tool output goes to stdout; keep diagnostics on stderr.
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// Printf adapts logger to a Logf at info level.
func Printf(logger *zap.Logger) Logf {
	if logger == nil {
		return Discard
	}
	return logger.Sugar().Infof
}
