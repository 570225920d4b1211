package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/slayer-suite/internal/config"
)

// Logger is the printf-style surface every suite component logs through.
// *zap.SugaredLogger satisfies it directly.
type Logger interface {
	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return zap.NewNop().Sugar()
}

// File appends structured JSON lines to .slayer/logs/slayer.log so users
// can inspect failures after the host exits.
type File struct {
	*zap.SugaredLogger
	base *zap.Logger
	path string
}

// New creates (or reuses) the log file for the current project directory.
func New(projectDir, level string) (*File, error) {
	logDir := filepath.Join(projectDir, config.SlayerDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "slayer.log")
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil || strings.TrimSpace(level) == "" {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "json"
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	base, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &File{SugaredLogger: base.Sugar(), base: base, path: path}, nil
}

// Path returns the file backing this logger.
func (l *File) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Named returns a child logger tagged with the component name.
func (l *File) Named(component string) Logger {
	if l == nil {
		return Nop()
	}
	return l.SugaredLogger.Named(component)
}

// Close flushes buffered entries.
func (l *File) Close() error {
	if l == nil || l.base == nil {
		return nil
	}
	return l.base.Sync()
}
