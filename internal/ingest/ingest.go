// Package ingest discovers past-paper files on disk and registers them in
// the store so the analysis pipeline can pick them up.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/chalkline/papergraph/internal/models"
	"github.com/chalkline/papergraph/internal/store"
)

// filenamePattern encodes the paper naming convention:
// YYYY-pNN-qNN-solutions.<ext>, e.g. 2021-p07-q08-solutions.pdf.
var filenamePattern = regexp.MustCompile(`(?i)^(\d{4})-p(\d{2})-q(\d{2})-solutions\.(pdf|docx|xlsx)$`)

// ErrBadFilename is returned when a filename does not follow the paper
// naming convention.
var ErrBadFilename = errors.New("filename does not match YYYY-pNN-qNN-solutions pattern")

// Ingestor scans a directory for paper files and registers new ones.
type Ingestor struct {
	store  store.Store
	dir    string
	logger *zap.Logger
}

// NewIngestor creates an Ingestor scanning dir.
func NewIngestor(s store.Store, dir string, logger *zap.Logger) *Ingestor {
	return &Ingestor{store: s, dir: dir, logger: logger}
}

// ParseFilename parses a paper filename into a Paper. The question number
// becomes the course field ("qNN") so occurrences can be grouped by question.
func ParseFilename(name string) (*models.Paper, error) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrBadFilename, name)
	}
	year, _ := strconv.Atoi(m[1])
	paperNum, _ := strconv.Atoi(m[2])
	return &models.Paper{
		Year:        year,
		Course:      "q" + m[3],
		PaperNumber: paperNum,
		Filename:    name,
	}, nil
}

// FindNew returns the filenames in the directory that match the naming
// convention and are not yet registered, sorted for stable processing order.
func (in *Ingestor) FindNew(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return nil, fmt.Errorf("read paper directory: %w", err)
	}

	known, err := in.store.RegisteredFilenames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registered papers: %w", err)
	}

	var fresh []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !filenamePattern.MatchString(name) {
			if !strings.HasPrefix(name, ".") {
				in.logger.Debug("skipping unrecognized file", zap.String("file", name))
			}
			continue
		}
		if _, ok := known[name]; ok {
			continue
		}
		fresh = append(fresh, name)
	}
	sort.Strings(fresh)
	return fresh, nil
}

// Register parses and registers a single paper file by name. Registration is
// idempotent: an already registered filename returns the stored paper.
func (in *Ingestor) Register(ctx context.Context, name string) (*models.Paper, error) {
	paper, err := ParseFilename(name)
	if err != nil {
		return nil, err
	}
	err = in.store.RegisterPaper(ctx, paper)
	if errors.Is(err, store.ErrDuplicatePaper) {
		return in.store.PaperByFilename(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("register paper %q: %w", name, err)
	}
	in.logger.Info("registered paper",
		zap.String("file", name),
		zap.Int("year", paper.Year),
		zap.String("question", paper.Course))
	return paper, nil
}

// RegisterNew scans the directory and registers every new paper file.
// It returns the papers registered in this pass.
func (in *Ingestor) RegisterNew(ctx context.Context) ([]*models.Paper, error) {
	fresh, err := in.FindNew(ctx)
	if err != nil {
		return nil, err
	}
	papers := make([]*models.Paper, 0, len(fresh))
	for _, name := range fresh {
		paper, err := in.Register(ctx, name)
		if err != nil {
			in.logger.Warn("skipping file", zap.String("file", name), zap.Error(err))
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// Path returns the absolute path of a registered paper's file.
func (in *Ingestor) Path(paper *models.Paper) string {
	return filepath.Join(in.dir, paper.Filename)
}
