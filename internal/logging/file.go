package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig controls log file rotation.
type FileConfig struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// FileLogger writes JSON records to a size-rotated log file, and to the
// console logger as well when one is configured.
type FileLogger struct {
	Logger
	rotator  *lumberjack.Logger
	filePath string
}

// NewFileLogger creates a logger writing to wikimark.log under fc.Dir. When
// config.Output is set, records also go to that writer in config.Format.
func NewFileLogger(config *LoggerConfig, fc FileConfig) (*FileLogger, error) {
	if fc.Dir == "" {
		return nil, fmt.Errorf("log directory cannot be empty")
	}
	if strings.Contains(filepath.ToSlash(fc.Dir), "..") {
		return nil, fmt.Errorf("invalid log directory %q: path traversal", fc.Dir)
	}
	if err := os.MkdirAll(fc.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if config == nil {
		config = DefaultConfig()
	}

	filePath := filepath.Join(fc.Dir, "wikimark.log")
	rotator := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    fc.MaxSizeMB,
		MaxBackups: fc.MaxBackups,
		MaxAge:     fc.MaxAgeDays,
		Compress:   fc.Compress,
	}

	fileConfig := *config
	fileConfig.Format = "json"
	fileConfig.Output = rotator

	var logger Logger = NewLogger(&fileConfig)
	if config.Output != nil {
		logger = NewMultiLogger(logger, NewLogger(config))
	}

	return &FileLogger{
		Logger:   logger,
		rotator:  rotator,
		filePath: filePath,
	}, nil
}

// Path returns the active log file path.
func (f *FileLogger) Path() string {
	return f.filePath
}

// Rotate closes the current file and starts a new one.
func (f *FileLogger) Rotate() error {
	return f.rotator.Rotate()
}

// Close closes the file logger
func (f *FileLogger) Close() error {
	return f.rotator.Close()
}
