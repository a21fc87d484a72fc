package obslog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingWriterRotatesPastThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exchange.log")
	w, err := NewRotatingWriter(path)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer w.Close()

	chunk := bytes.Repeat([]byte("x"), MaxSizeBytes/2+1)
	if _, err := w.Write(chunk); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	if _, err := w.Write(chunk); err != nil {
		t.Fatalf("write 2: %v", err)
	}
	if w.size >= MaxSizeBytes {
		t.Fatalf("size after rotation should reset, got %d", w.size)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected a rolled sibling file, got %d entries", len(entries))
	}
}

func TestNewReturnsUsableLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "exchange.log")
	logger, w, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	logger.Println("hello")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("expected log output to be written")
	}
}
