package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestFileLoggerCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "run.rlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if logger.Path() != path {
		t.Errorf("Path: got %q, want %q", logger.Path(), path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file missing: %v", err)
	}
}

func TestFileLoggerConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.rlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				logger.Log(Event{SessionID: "s", Category: CategoryRouting})
			}
		}()
	}
	wg.Wait()

	if logger.Count() != 100 {
		t.Errorf("Count: got %d, want 100", logger.Count())
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events := readAll(t, path, Filter{})
	if len(events) != 100 {
		t.Errorf("read %d events, want 100", len(events))
	}
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "run.rlog"))
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	// Ignored after close.
	logger.Log(Event{})
	if logger.Count() != 0 {
		t.Errorf("Count after close: got %d, want 0", logger.Count())
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.rlog")
	for i := 0; i < 2; i++ {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{SessionID: "s"})
		logger.Close()
	}

	if got := len(readAll(t, path, Filter{})); got != 2 {
		t.Errorf("got %d events, want 2", got)
	}
}
