// Package logging builds the zap logger used across haloprep.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to stderr. verbose lowers the level to
// debug; jsonOutput switches from console to JSON encoding.
func New(verbose, jsonOutput bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if !jsonOutput {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = !verbose
	return cfg.Build()
}
