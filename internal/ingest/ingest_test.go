package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/chalkline/papergraph/internal/store"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		paper   int
		course  string
		wantErr bool
	}{
		{name: "2021-p07-q08-solutions.pdf", year: 2021, paper: 7, course: "q08"},
		{name: "1998-p12-q03-solutions.docx", year: 1998, paper: 12, course: "q03"},
		{name: "2020-P01-Q10-SOLUTIONS.XLSX", year: 2020, paper: 1, course: "q10"},
		{name: "2021-p7-q8-solutions.pdf", wantErr: true},
		{name: "notes.pdf", wantErr: true},
		{name: "2021-p07-q08-solutions.txt", wantErr: true},
	}

	for _, tt := range tests {
		p, err := ParseFilename(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrBadFilename) {
				t.Errorf("%s: expected ErrBadFilename, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if p.Year != tt.year || p.PaperNumber != tt.paper || p.Course != tt.course {
			t.Errorf("%s: got %+v", tt.name, p)
		}
	}
}

func newTestIngestor(t *testing.T) (*Ingestor, string) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	dir := t.TempDir()
	return NewIngestor(s, dir, zap.NewNop()), dir
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFindNew(t *testing.T) {
	in, dir := newTestIngestor(t)
	ctx := context.Background()

	writeFiles(t, dir,
		"2021-p07-q08-solutions.pdf",
		"2020-p01-q02-solutions.pdf",
		"README.md",
		".hidden.pdf",
	)

	fresh, err := in.FindNew(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2020-p01-q02-solutions.pdf", "2021-p07-q08-solutions.pdf"}
	if len(fresh) != 2 || fresh[0] != want[0] || fresh[1] != want[1] {
		t.Errorf("got %v, want %v", fresh, want)
	}
}

func TestRegisterNewSkipsAlreadyRegistered(t *testing.T) {
	in, dir := newTestIngestor(t)
	ctx := context.Background()

	writeFiles(t, dir, "2021-p07-q08-solutions.pdf")

	papers, err := in.RegisterNew(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}

	// Second scan finds nothing new.
	papers, err = in.RegisterNew(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 0 {
		t.Errorf("expected no new papers, got %d", len(papers))
	}
}

func TestRegisterIdempotent(t *testing.T) {
	in, _ := newTestIngestor(t)
	ctx := context.Background()

	first, err := in.Register(ctx, "2021-p07-q08-solutions.pdf")
	if err != nil {
		t.Fatal(err)
	}
	second, err := in.Register(ctx, "2021-p07-q08-solutions.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("re-register should return same paper, got %d and %d", first.ID, second.ID)
	}
}
