// Package logging builds the zap loggers handed to stores and the client.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger flavor. Level is a zap level name ("debug",
// "info", "warn", "error"); empty means "warn".
type Config struct {
	Level       string   `yaml:"level,omitempty" mapstructure:"level"`
	Development bool     `yaml:"development,omitempty" mapstructure:"development"`
	OutputPaths []string `yaml:"output_paths,omitempty" mapstructure:"output_paths"`
}

// DefaultLevel applies when Config.Level is empty.
const DefaultLevel = "warn"

// New returns a sugared logger: console encoding for development, JSON
// otherwise. Output goes to stderr unless OutputPaths says otherwise.
func New(cfg Config) (*zap.SugaredLogger, error) {
	name := cfg.Level
	if name == "" {
		name = DefaultLevel
	}
	level, err := zap.ParseAtomicLevel(name)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", name, err)
	}

	var z zap.Config
	if cfg.Development {
		z = zap.NewDevelopmentConfig()
	} else {
		z = zap.NewProductionConfig()
		z.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	z.Level = level
	z.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		z.OutputPaths = cfg.OutputPaths
	}

	logger, err := z.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger { return zap.NewNop().Sugar() }
