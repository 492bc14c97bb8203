package logging

import (
	"fmt"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the service logger from logging.level and logging.format.
// Unknown levels fall back to info.
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.GetString("logging.level"))
	if err != nil {
		level = zapcore.InfoLevel
	}
	return build(level, cfg.GetString("logging.format") == "json")
}

// InitConsoleLogger builds the CLI logger
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	if verbose {
		return build(zapcore.DebugLevel, jsonFormat)
	}
	return build(zapcore.InfoLevel, jsonFormat)
}

func build(level zapcore.Level, jsonFormat bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if jsonFormat {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building %s logger: %w", level, err)
	}
	return logger, nil
}
