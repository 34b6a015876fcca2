// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/acl-rts-tracker/internal/domain"
)

// Output targets
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
	OutputFile   = "file"
	OutputBoth   = "both"
)

// NewLogger creates a logrus logger from the logging configuration. File output is rotated
// with lumberjack. The returned closer releases the log file and is safe to call when no
// file is open.
func NewLogger(cfg domain.LoggingConfig) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetLevel(GetLevel(cfg.Level))

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	if cfg.Redact {
		logger.AddHook(NewRedactHook())
	}

	var closer io.Closer = nopCloser{}
	output := strings.ToLower(cfg.Output)
	switch output {
	case "", OutputStdout:
		logger.SetOutput(os.Stdout)
	case OutputStderr:
		logger.SetOutput(os.Stderr)
	case OutputFile, OutputBoth:
		rotator, err := newRotator(cfg)
		if err != nil {
			return nil, nil, err
		}
		closer = rotator
		if output == OutputBoth {
			logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
		} else {
			logger.SetOutput(rotator)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported log output %q", cfg.Output)
	}

	return logger, closer, nil
}

func newRotator(cfg domain.LoggingConfig) (*lumberjack.Logger, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("log filename is required for %s output", cfg.Output)
	}
	filename := cfg.Filename
	if !strings.HasSuffix(filename, ".log") {
		filename += ".log"
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 50 // megabytes
	}
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  false, // UTC
	}, nil
}

// GetLevel parses a level name, falling back to info.
func GetLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
