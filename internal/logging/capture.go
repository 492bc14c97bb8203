package logging

import (
	"bytes"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunCapture records the log lines emitted during one workflow run
type RunCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements zapcore.WriteSyncer
func (c *RunCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Sync implements zapcore.WriteSyncer
func (c *RunCapture) Sync() error {
	return nil
}

// Lines returns the captured lines without the trailing empty line
func (c *RunCapture) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	text := strings.TrimRight(c.buf.String(), "\n")
	if text == "" {
		return []string{}
	}
	return strings.Split(text, "\n")
}

// NewRunCapture returns a logger that writes to base and also to an in-memory
// buffer with a plain message-only layout.
func NewRunCapture(base *zap.Logger) (*zap.Logger, *RunCapture) {
	capture := &RunCapture{}

	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), capture, zapcore.InfoLevel)

	logger := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, core)
	}))
	return logger, capture
}
