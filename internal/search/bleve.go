// Package search provides a Bleve full-text index over concept names,
// categories, and descriptions.
package search

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/chalkline/papergraph/internal/models"
)

// ConceptHit is one search result.
type ConceptHit struct {
	ConceptID int64   `json:"concept_id"`
	Score     float64 `json:"score"`
}

// conceptDoc is the indexed shape of a concept.
type conceptDoc struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// ConceptIndex wraps a Bleve index keyed by concept ID.
type ConceptIndex struct {
	index bleve.Index
}

// NewConceptIndex creates or opens a Bleve index at path. An existing index
// is reused; remove the directory to force a rebuild after mapping changes.
func NewConceptIndex(path string) (*ConceptIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &ConceptIndex{index: index}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so a query for
	// "recursion" matches the indexed word exactly.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("category", textFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &ConceptIndex{index: index}, nil
}

// IndexConcepts indexes or re-indexes the given concepts.
func (b *ConceptIndex) IndexConcepts(ctx context.Context, concepts []*models.Concept) error {
	batch := b.index.NewBatch()
	for _, c := range concepts {
		doc := conceptDoc{Name: c.Name, Category: c.Category, Description: c.Description}
		if err := batch.Index(strconv.FormatInt(c.ID, 10), doc); err != nil {
			return fmt.Errorf("batch index concept %d: %w", c.ID, err)
		}
	}
	return b.index.Batch(batch)
}

// Search runs a match query over all concept fields and returns up to limit
// hits ordered by score.
func (b *ConceptIndex) Search(ctx context.Context, query string, limit int) ([]*ConceptHit, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	hits := make([]*ConceptHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, &ConceptHit{ConceptID: id, Score: hit.Score})
	}
	return hits, nil
}

// Count returns the number of indexed concepts.
func (b *ConceptIndex) Count() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the underlying index.
func (b *ConceptIndex) Close() error {
	return b.index.Close()
}
