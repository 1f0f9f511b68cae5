package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chalkline/papergraph/internal/models"
)

// Report row shapes returned by the read-side queries. The query engine
// composes these into its report structures.

// ConceptFrequency is one row of the frequency report: how widely and how
// often a concept appears across papers.
type ConceptFrequency struct {
	ConceptID     int64   `json:"concept_id"`
	Name          string  `json:"name"`
	Category      string  `json:"category,omitempty"`
	PaperCount    int64   `json:"paper_count"`
	Occurrences   int64   `json:"occurrences"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// RelatedConcept is one edge endpoint as seen from a concept, including the
// direction of the stored edge.
type RelatedConcept struct {
	ConceptID    int64   `json:"concept_id"`
	Name         string  `json:"name"`
	RelationType string  `json:"relation_type"`
	Strength     float64 `json:"strength"`
	Direction    string  `json:"direction"` // "out" or "in"
}

// TrendRow is one (concept, year) occurrence count.
type TrendRow struct {
	Name  string `json:"name"`
	Year  int    `json:"year"`
	Count int64  `json:"count"`
}

// CoOccurrence counts papers in which two concepts appear together.
type CoOccurrence struct {
	AName string `json:"a"`
	BName string `json:"b"`
	Count int64  `json:"count"`
}

// OccurrenceDetail is an occurrence joined with its paper metadata.
type OccurrenceDetail struct {
	PaperID    int64   `json:"paper_id"`
	Filename   string  `json:"filename"`
	Year       int     `json:"year"`
	Question   string  `json:"question,omitempty"`
	Context    string  `json:"context,omitempty"`
	Confidence float64 `json:"confidence"`
}

const frequencySelect = `
	SELECT c.id, c.name, COALESCE(c.category, ''),
	       COUNT(DISTINCT o.paper_id), COUNT(o.id), COALESCE(AVG(o.confidence), 0)
	FROM concepts c
	JOIN occurrences o ON o.concept_id = c.id`

// ConceptFrequencies returns concepts ordered by the number of distinct
// papers they occur in, most frequent first. limit <= 0 means no limit.
func (s *SQLiteStore) ConceptFrequencies(ctx context.Context, limit int) ([]*ConceptFrequency, error) {
	q := frequencySelect + `
	GROUP BY c.id ORDER BY COUNT(DISTINCT o.paper_id) DESC, c.name`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryFrequencies(ctx, q, args...)
}

// ConceptFrequenciesByYear returns the frequency report restricted to papers
// from one year.
func (s *SQLiteStore) ConceptFrequenciesByYear(ctx context.Context, year int) ([]*ConceptFrequency, error) {
	q := frequencySelect + `
	JOIN papers p ON p.id = o.paper_id
	WHERE p.year = ?
	GROUP BY c.id ORDER BY COUNT(o.id) DESC, c.name`
	return s.queryFrequencies(ctx, q, year)
}

// ConceptFrequenciesByPaper returns concepts occurring in one paper.
func (s *SQLiteStore) ConceptFrequenciesByPaper(ctx context.Context, paperID int64) ([]*ConceptFrequency, error) {
	q := frequencySelect + `
	WHERE o.paper_id = ?
	GROUP BY c.id ORDER BY COUNT(o.id) DESC, c.name`
	return s.queryFrequencies(ctx, q, paperID)
}

func (s *SQLiteStore) queryFrequencies(ctx context.Context, q string, args ...interface{}) ([]*ConceptFrequency, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ConceptFrequency
	for rows.Next() {
		var f ConceptFrequency
		if err := rows.Scan(&f.ConceptID, &f.Name, &f.Category, &f.PaperCount, &f.Occurrences, &f.AvgConfidence); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// RelatedConcepts returns both outgoing and incoming edges of a concept.
func (s *SQLiteStore) RelatedConcepts(ctx context.Context, conceptID int64) ([]*RelatedConcept, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, r.relation_type, r.strength, 'out'
		FROM concept_relations r JOIN concepts c ON c.id = r.target_id
		WHERE r.source_id = ?
		UNION ALL
		SELECT c.id, c.name, r.relation_type, r.strength, 'in'
		FROM concept_relations r JOIN concepts c ON c.id = r.source_id
		WHERE r.target_id = ?
		ORDER BY 2`, conceptID, conceptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RelatedConcept
	for rows.Next() {
		var rc RelatedConcept
		if err := rows.Scan(&rc.ConceptID, &rc.Name, &rc.RelationType, &rc.Strength, &rc.Direction); err != nil {
			return nil, err
		}
		out = append(out, &rc)
	}
	return out, rows.Err()
}

// ChildConcepts returns concepts whose parent is the given concept.
func (s *SQLiteStore) ChildConcepts(ctx context.Context, conceptID int64) ([]*models.Concept, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, description, parent_id FROM concepts WHERE parent_id = ? ORDER BY name`,
		conceptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConcepts(rows)
}

// ConceptByID returns a concept by ID outside any transaction, or ErrNotFound.
func (s *SQLiteStore) ConceptByID(ctx context.Context, id int64) (*models.Concept, error) {
	c, err := scanConcept(s.db.QueryRowContext(ctx,
		`SELECT id, name, category, description, parent_id FROM concepts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: concept %d", ErrNotFound, id)
	}
	return c, err
}

// ConceptByName returns a concept by exact name outside any transaction, or
// ErrNotFound.
func (s *SQLiteStore) ConceptByName(ctx context.Context, name string) (*models.Concept, error) {
	c, err := scanConcept(s.db.QueryRowContext(ctx,
		`SELECT id, name, category, description, parent_id FROM concepts WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: concept %q", ErrNotFound, name)
	}
	return c, err
}

// SearchConceptsLike returns concepts whose name, category, or description
// contains the query substring. This is the fallback when no Bleve index is
// available.
func (s *SQLiteStore) SearchConceptsLike(ctx context.Context, query string, limit int) ([]*models.Concept, error) {
	pattern := "%" + query + "%"
	q := `SELECT id, name, category, description, parent_id FROM concepts
	      WHERE name LIKE ? OR category LIKE ? OR description LIKE ?
	      ORDER BY name`
	args := []interface{}{pattern, pattern, pattern}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConcepts(rows)
}

// TrendRows returns per-year occurrence counts for the topN concepts ranked
// by total occurrences.
func (s *SQLiteStore) TrendRows(ctx context.Context, topN int) ([]*TrendRow, error) {
	if topN <= 0 {
		topN = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, p.year, COUNT(o.id)
		FROM occurrences o
		JOIN concepts c ON c.id = o.concept_id
		JOIN papers p ON p.id = o.paper_id
		WHERE c.id IN (
			SELECT concept_id FROM occurrences GROUP BY concept_id
			ORDER BY COUNT(*) DESC LIMIT ?
		)
		GROUP BY c.id, p.year
		ORDER BY c.name, p.year`, topN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*TrendRow
	for rows.Next() {
		var tr TrendRow
		if err := rows.Scan(&tr.Name, &tr.Year, &tr.Count); err != nil {
			return nil, err
		}
		out = append(out, &tr)
	}
	return out, rows.Err()
}

// CoOccurrences returns the most frequent concept pairs appearing in the same
// paper. Pairs are unordered; each is reported once with a < b by concept ID.
func (s *SQLiteStore) CoOccurrences(ctx context.Context, limit int) ([]*CoOccurrence, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ca.name, cb.name, COUNT(DISTINCT oa.paper_id)
		FROM occurrences oa
		JOIN occurrences ob ON ob.paper_id = oa.paper_id AND ob.concept_id > oa.concept_id
		JOIN concepts ca ON ca.id = oa.concept_id
		JOIN concepts cb ON cb.id = ob.concept_id
		GROUP BY oa.concept_id, ob.concept_id
		ORDER BY COUNT(DISTINCT oa.paper_id) DESC, ca.name
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CoOccurrence
	for rows.Next() {
		var co CoOccurrence
		if err := rows.Scan(&co.AName, &co.BName, &co.Count); err != nil {
			return nil, err
		}
		out = append(out, &co)
	}
	return out, rows.Err()
}

// OccurrencesByConcept returns all occurrences of a concept joined with paper
// metadata, newest papers first.
func (s *SQLiteStore) OccurrencesByConcept(ctx context.Context, conceptID int64) ([]*OccurrenceDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.filename, p.year, COALESCE(o.question, ''), COALESCE(o.context, ''), o.confidence
		FROM occurrences o
		JOIN papers p ON p.id = o.paper_id
		WHERE o.concept_id = ?
		ORDER BY p.year DESC, p.id`, conceptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*OccurrenceDetail
	for rows.Next() {
		var od OccurrenceDetail
		if err := rows.Scan(&od.PaperID, &od.Filename, &od.Year, &od.Question, &od.Context, &od.Confidence); err != nil {
			return nil, err
		}
		out = append(out, &od)
	}
	return out, rows.Err()
}
