// Package logging builds the logr.Logger used across devdiag.
package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the zap backend.
type Options struct {
	// Format is "console" or "json".
	Format string
	// Verbosity enables logr V-levels up to this value.
	Verbosity int
	// OutputPath is a file path, or "stderr" when empty.
	OutputPath string
}

// New returns a zap-backed logr.Logger and a flush function.
func New(opts Options) (logr.Logger, func(), error) {
	var zc zap.Config
	switch opts.Format {
	case "json":
		zc = zap.NewProductionConfig()
		zc.Sampling = nil
	case "", "console":
		zc = zap.NewDevelopmentConfig()
		zc.Development = false
	default:
		return logr.Discard(), func() {}, fmt.Errorf("unknown log format %q", opts.Format)
	}

	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-opts.Verbosity))
	out := "stderr"
	if opts.OutputPath != "" {
		out = opts.OutputPath
	}
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{out}

	zapLog, err := zc.Build()
	if err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("build logger: %w", err)
	}
	return zapr.NewLogger(zapLog), func() { _ = zapLog.Sync() }, nil
}
