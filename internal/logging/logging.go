// Package logging builds the zap logger used by the server and adapts it to
// the service's Logger interface.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"doglog/internal/config"
)

// New builds a zap logger from cfg. verbose forces debug level.
func New(cfg config.LogConfig, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Adapter satisfies core.Logger with a sugared zap logger.
type Adapter struct {
	s *zap.SugaredLogger
}

// NewAdapter wraps logger. A nil logger discards everything.
func NewAdapter(logger *zap.Logger) Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Adapter{s: logger.Sugar()}
}

func (a Adapter) Debug(msg string, args ...any) { a.s.Debugw(msg, args...) }
func (a Adapter) Info(msg string, args ...any)  { a.s.Infow(msg, args...) }
func (a Adapter) Warn(msg string, args ...any)  { a.s.Warnw(msg, args...) }
func (a Adapter) Error(msg string, args ...any) { a.s.Errorw(msg, args...) }
