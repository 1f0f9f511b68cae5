package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatcherDebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()

	var reported []string
	var mu sync.Mutex
	onPaper := func(path string) {
		mu.Lock()
		reported = append(reported, path)
		mu.Unlock()
	}

	w := NewWatcher([]string{dir}, []string{".pdf"}, false, onPaper, zap.NewNop(),
		WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	pdfPath := filepath.Join(dir, "2021-p07-q08-solutions.pdf")
	if err := os.WriteFile(pdfPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-matching extension must not be reported.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(reported) < 1 {
		t.Fatalf("expected at least one callback, got %d", len(reported))
	}
	for _, p := range reported {
		if filepath.Clean(p) != filepath.Clean(pdfPath) {
			t.Errorf("unexpected path reported: %s", p)
		}
	}
}

func TestWatcherCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "drop")

	w := NewWatcher([]string{root}, nil, false, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root should have been created: %v", err)
	}
}

func TestSyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "2020-p01-q01-solutions.pdf")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var reported []string
	var mu sync.Mutex
	w := NewWatcher([]string{dir}, []string{".pdf"}, false, func(path string) {
		mu.Lock()
		reported = append(reported, path)
		mu.Unlock()
	}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExistingFiles()

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 || filepath.Clean(reported[0]) != filepath.Clean(existing) {
		t.Errorf("reported = %v", reported)
	}
}

func TestMatchExtension(t *testing.T) {
	w := NewWatcher(nil, []string{".pdf", "docx"}, false, nil, zap.NewNop())

	tests := []struct {
		path string
		want bool
	}{
		{"a.pdf", true},
		{"a.PDF", true},
		{"a.docx", true},
		{"a.txt", false},
		{"a", false},
	}
	for _, tt := range tests {
		if got := w.matchExtension(tt.path); got != tt.want {
			t.Errorf("matchExtension(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	all := NewWatcher(nil, nil, false, nil, zap.NewNop())
	if !all.matchExtension("anything.xyz") {
		t.Error("empty extension list should match everything")
	}
}
