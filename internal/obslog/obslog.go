// Package obslog is a thin facade over the exchange's text log sink: a
// *log.Logger writing to a size-rotated file, in the same spirit as
// go-feed's direct stdlib log.SetFlags/log.Printf usage in cmd/feedsim.
// The dashboard's observability surface is deliberately out of core
// scope — this package exists only so cmd/exchange has somewhere to
// point its logger without growing a single file without bound.
package obslog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MaxSizeBytes is the rotation threshold for the active log file.
const MaxSizeBytes = 10 * 1024 * 1024

// RotatingWriter is an io.Writer that rolls the target file to a
// timestamped sibling once it exceeds MaxSizeBytes.
type RotatingWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	size int64
}

// NewRotatingWriter opens (or creates) path for append and prepares
// rotation bookkeeping.
func NewRotatingWriter(path string) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("obslog: mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("obslog: open: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("obslog: stat: %w", err)
	}
	return &RotatingWriter{path: path, file: f, size: info.Size()}, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > MaxSizeBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingWriter) rotate() error {
	w.file.Close()
	rolled := w.path + "." + time.Now().Format("20060102T150405")
	if err := os.Rename(w.path, rolled); err != nil {
		return fmt.Errorf("obslog: rotate: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("obslog: reopen: %w", err)
	}
	w.file = f
	w.size = 0
	return nil
}

// Close closes the underlying file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// New builds a *log.Logger writing to path with rotation, using the
// same date/time/microsecond flag set as go-feed's cmd/feedsim logger.
func New(path string) (*log.Logger, *RotatingWriter, error) {
	w, err := NewRotatingWriter(path)
	if err != nil {
		return nil, nil, err
	}
	return log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds), w, nil
}
