// Package logging builds the logr.Logger shared by the CLI and the deploy engine.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a zap-backed logger writing to stderr at the given level.
func New(level string) (logr.Logger, error) {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(level string, w io.Writer) (logr.Logger, error) {
	zapLevel, development, err := parseLevel(level)
	if err != nil {
		return logr.Logger{}, err
	}

	var encCfg zapcore.EncoderConfig
	if development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	atomic := zap.NewAtomicLevelAt(zapLevel)
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), atomic)

	opts := []zap.Option{zap.ErrorOutput(zapcore.AddSync(w))}
	if development {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}
	return zapr.NewLogger(zap.New(core, opts...)), nil
}

func parseLevel(level string) (zapcore.Level, bool, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, true, nil
	case "info", "":
		return zapcore.InfoLevel, false, nil
	case "warn", "warning":
		return zapcore.WarnLevel, false, nil
	case "error":
		return zapcore.ErrorLevel, false, nil
	default:
		return zapcore.InfoLevel, false, fmt.Errorf("unknown log level %q (expected debug, info, warn, or error)", level)
	}
}
