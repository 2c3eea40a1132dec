package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWorkdirLoggerWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	log, err := NewWorkdirLogger(dir, false)
	if err != nil {
		t.Fatalf("NewWorkdirLogger: %v", err)
	}
	log.Info("pipeline started", "patterns", 2)
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := filepath.Join(dir, LogFileName)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat log file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("log file is empty after Info and Close")
	}
}
