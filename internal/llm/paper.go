package llm

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/chalkline/papergraph/internal/extract"
	"github.com/chalkline/papergraph/internal/models"
)

// PaperExtractor reads a paper's file, extracts its text locally, and runs
// the text through the model. It is the production implementation of the
// consolidation engine's extractor.
type PaperExtractor struct {
	processor *Processor
	extractor *extract.Extractor
	dir       string
}

// NewPaperExtractor creates a PaperExtractor reading files from dir.
func NewPaperExtractor(processor *Processor, extractor *extract.Extractor, dir string) *PaperExtractor {
	return &PaperExtractor{processor: processor, extractor: extractor, dir: dir}
}

// ExtractPaper extracts concept candidates for the paper.
func (pe *PaperExtractor) ExtractPaper(ctx context.Context, paper *models.Paper) ([]models.RawCandidate, error) {
	path := filepath.Join(pe.dir, paper.Filename)
	text, err := pe.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("extract text from %s: %w", paper.Filename, err)
	}
	return pe.processor.ExtractConcepts(ctx, text)
}
