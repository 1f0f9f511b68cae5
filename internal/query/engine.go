// Package query composes the store's report queries into the analysis views
// exposed by the query command and the HTTP API.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/chalkline/papergraph/internal/models"
	"github.com/chalkline/papergraph/internal/store"
)

// Reporter is the read side of the store used by the engine. *SQLiteStore
// implements it.
type Reporter interface {
	ConceptFrequencies(ctx context.Context, limit int) ([]*store.ConceptFrequency, error)
	ConceptFrequenciesByYear(ctx context.Context, year int) ([]*store.ConceptFrequency, error)
	ConceptFrequenciesByPaper(ctx context.Context, paperID int64) ([]*store.ConceptFrequency, error)
	RelatedConcepts(ctx context.Context, conceptID int64) ([]*store.RelatedConcept, error)
	ChildConcepts(ctx context.Context, conceptID int64) ([]*models.Concept, error)
	ConceptByID(ctx context.Context, id int64) (*models.Concept, error)
	ConceptByName(ctx context.Context, name string) (*models.Concept, error)
	SearchConceptsLike(ctx context.Context, query string, limit int) ([]*models.Concept, error)
	TrendRows(ctx context.Context, topN int) ([]*store.TrendRow, error)
	CoOccurrences(ctx context.Context, limit int) ([]*store.CoOccurrence, error)
	OccurrencesByConcept(ctx context.Context, conceptID int64) ([]*store.OccurrenceDetail, error)
}

// Engine answers analysis questions about the stored concept graph.
type Engine struct {
	store Reporter
}

// NewEngine creates an Engine over the given reporter.
func NewEngine(s Reporter) *Engine {
	return &Engine{store: s}
}

// TopConcepts returns concepts ordered by how many distinct papers they
// appear in. limit <= 0 returns all.
func (e *Engine) TopConcepts(ctx context.Context, limit int) ([]*store.ConceptFrequency, error) {
	return e.store.ConceptFrequencies(ctx, limit)
}

// CategoryGroup is one category's concepts in the by-category report.
type CategoryGroup struct {
	Category string                    `json:"category"`
	Concepts []*store.ConceptFrequency `json:"concepts"`
}

// ConceptsByCategory groups the frequency report by category. Concepts
// without a category are grouped under "Uncategorized"; groups are sorted by
// name with Uncategorized last.
func (e *Engine) ConceptsByCategory(ctx context.Context) ([]*CategoryGroup, error) {
	freqs, err := e.store.ConceptFrequencies(ctx, 0)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]*store.ConceptFrequency)
	for _, f := range freqs {
		cat := f.Category
		if cat == "" {
			cat = "Uncategorized"
		}
		byCategory[cat] = append(byCategory[cat], f)
	}

	groups := make([]*CategoryGroup, 0, len(byCategory))
	for cat, concepts := range byCategory {
		groups = append(groups, &CategoryGroup{Category: cat, Concepts: concepts})
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].Category, groups[j].Category
		if a == "Uncategorized" {
			return false
		}
		if b == "Uncategorized" {
			return true
		}
		return a < b
	})
	return groups, nil
}

// ConceptsByYear returns concepts occurring in papers of one year.
func (e *Engine) ConceptsByYear(ctx context.Context, year int) ([]*store.ConceptFrequency, error) {
	return e.store.ConceptFrequenciesByYear(ctx, year)
}

// ConceptsByPaper returns concepts occurring in one paper.
func (e *Engine) ConceptsByPaper(ctx context.Context, paperID int64) ([]*store.ConceptFrequency, error) {
	return e.store.ConceptFrequenciesByPaper(ctx, paperID)
}

// Detail is everything known about one concept.
type Detail struct {
	Concept     *models.Concept           `json:"concept"`
	Parent      *models.Concept           `json:"parent,omitempty"`
	Children    []*models.Concept         `json:"children,omitempty"`
	Related     []*store.RelatedConcept   `json:"related,omitempty"`
	Occurrences []*store.OccurrenceDetail `json:"occurrences,omitempty"`
}

// ConceptDetail assembles the full view of a concept by name.
func (e *Engine) ConceptDetail(ctx context.Context, name string) (*Detail, error) {
	concept, err := e.store.ConceptByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.detail(ctx, concept)
}

// ConceptDetailByID assembles the full view of a concept by ID.
func (e *Engine) ConceptDetailByID(ctx context.Context, id int64) (*Detail, error) {
	concept, err := e.store.ConceptByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.detail(ctx, concept)
}

func (e *Engine) detail(ctx context.Context, concept *models.Concept) (*Detail, error) {
	d := &Detail{Concept: concept}

	if concept.ParentID != nil {
		parent, err := e.store.ConceptByID(ctx, *concept.ParentID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("load parent: %w", err)
		}
		d.Parent = parent
	}

	var err error
	if d.Children, err = e.store.ChildConcepts(ctx, concept.ID); err != nil {
		return nil, fmt.Errorf("load children: %w", err)
	}
	if d.Related, err = e.store.RelatedConcepts(ctx, concept.ID); err != nil {
		return nil, fmt.Errorf("load related: %w", err)
	}
	if d.Occurrences, err = e.store.OccurrencesByConcept(ctx, concept.ID); err != nil {
		return nil, fmt.Errorf("load occurrences: %w", err)
	}
	return d, nil
}

// Trends is the per-year occurrence pivot for the most frequent concepts.
type Trends struct {
	Years  []int                    `json:"years"`
	Counts map[string]map[int]int64 `json:"counts"` // concept name -> year -> count
}

// Trends pivots the trend rows into a year-by-concept table covering the topN
// concepts by total occurrences.
func (e *Engine) Trends(ctx context.Context, topN int) (*Trends, error) {
	rows, err := e.store.TrendRows(ctx, topN)
	if err != nil {
		return nil, err
	}

	t := &Trends{Counts: make(map[string]map[int]int64)}
	yearSet := make(map[int]bool)
	for _, r := range rows {
		if t.Counts[r.Name] == nil {
			t.Counts[r.Name] = make(map[int]int64)
		}
		t.Counts[r.Name][r.Year] = r.Count
		yearSet[r.Year] = true
	}
	for year := range yearSet {
		t.Years = append(t.Years, year)
	}
	sort.Ints(t.Years)
	return t, nil
}

// CoOccurrences returns the most frequent concept pairs sharing a paper.
func (e *Engine) CoOccurrences(ctx context.Context, limit int) ([]*store.CoOccurrence, error) {
	return e.store.CoOccurrences(ctx, limit)
}

// Search finds concepts by name, category, or description substring.
func (e *Engine) Search(ctx context.Context, q string, limit int) ([]*models.Concept, error) {
	return e.store.SearchConceptsLike(ctx, q, limit)
}
