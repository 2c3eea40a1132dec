// Package logger adapts github.com/baditaflorin/l to ports.Logger,
// writing the pipeline's append-only "log" file inside a build's
// working directory (word index built or reused, sequencer pass done,
// aggregation done), optionally mirrored to the console.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/baditaflorin/glmkit/internal/ports"
	"github.com/baditaflorin/l"
)

// LogFileName is the append-only log file written at the root of a
// build's working directory.
const LogFileName = "log"

// StdLogger adapts the l.Logger to the ports.Logger interface.
type StdLogger struct {
	logger l.Logger
}

// NewStdLogger creates a new standard logger adapter with default configuration.
func NewStdLogger() (ports.Logger, error) {
	logger, err := l.NewStandardFactory().CreateLogger(l.Config{
		Output:      os.Stdout,
		JsonFormat:  false,
		AsyncWrite:  true,
		BufferSize:  1024 * 1024,      // 1MB buffer
		MaxFileSize: 10 * 1024 * 1024, // 10MB max file size
		MaxBackups:  5,
		AddSource:   true,
		Metrics:     true,
	})

	if err != nil {
		return nil, err
	}

	return &StdLogger{logger: logger}, nil
}

// NewCustomStdLogger creates a new standard logger with custom configuration.
func NewCustomStdLogger(config l.Config) (ports.Logger, error) {
	logger, err := l.NewStandardFactory().CreateLogger(config)
	if err != nil {
		return nil, err
	}

	return &StdLogger{logger: logger}, nil
}

// Debug logs a debug message.
func (l *StdLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

// Info logs an info message.
func (l *StdLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

// Warn logs a warning message.
func (l *StdLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}

// Error logs an error message.
func (l *StdLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

// Close closes the logger.
func (l *StdLogger) Close() error {
	return l.logger.Close()
}

// FromExisting creates a new StdLogger from an existing l.Logger.
func FromExisting(logger l.Logger) ports.Logger {
	return &StdLogger{logger: logger}
}

// NewWorkdirLogger opens (creating if absent) LogFileName inside workDir
// in append mode and returns a JSON, asynchronously-written logger over
// it, matching the teacher's cmd/server createLogger construction. When
// alsoConsole is true, writes are duplicated to stdout as well.
func NewWorkdirLogger(workDir string, alsoConsole bool) (ports.Logger, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	path := filepath.Join(workDir, LogFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var output = io.Writer(file)
	if alsoConsole {
		output = io.MultiWriter(file, os.Stdout)
	}

	logger, err := l.NewStandardFactory().CreateLogger(l.Config{
		Output:      output,
		JsonFormat:  true,
		AsyncWrite:  true,
		BufferSize:  1024 * 1024,
		MaxFileSize: 100 * 1024 * 1024,
		MaxBackups:  5,
		AddSource:   true,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &StdLogger{logger: logger}, nil
}
