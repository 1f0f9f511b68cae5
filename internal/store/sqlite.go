package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/chalkline/papergraph/internal/models"
)

// SQLiteStore implements Store using SQLite. Uniqueness of concept names and
// of directed relation pairs is enforced by the schema, not just by
// check-then-act in the engine, so the data stays consistent even if callers
// race.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS papers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year INTEGER NOT NULL,
		course TEXT NOT NULL,
		paper_number INTEGER NOT NULL,
		filename TEXT NOT NULL UNIQUE,
		processed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_papers_year ON papers(year);
	CREATE INDEX IF NOT EXISTS idx_papers_processed ON papers(processed_at);

	CREATE TABLE IF NOT EXISTS concepts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		category TEXT,
		description TEXT,
		parent_id INTEGER REFERENCES concepts(id)
	);

	CREATE INDEX IF NOT EXISTS idx_concepts_category ON concepts(category);

	CREATE TABLE IF NOT EXISTS concept_relations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id INTEGER NOT NULL REFERENCES concepts(id),
		target_id INTEGER NOT NULL REFERENCES concepts(id),
		relation_type TEXT NOT NULL,
		strength REAL NOT NULL DEFAULT 1.0,
		UNIQUE(source_id, target_id)
	);

	CREATE TABLE IF NOT EXISTS occurrences (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		concept_id INTEGER NOT NULL REFERENCES concepts(id),
		paper_id INTEGER NOT NULL REFERENCES papers(id),
		question TEXT,
		context TEXT,
		confidence REAL NOT NULL DEFAULT 1.0
	);

	CREATE INDEX IF NOT EXISTS idx_occurrences_concept ON occurrences(concept_id);
	CREATE INDEX IF NOT EXISTS idx_occurrences_paper ON occurrences(paper_id);
	`
	_, err := db.Exec(schema)
	return err
}

// IsConstraintViolation reports whether err is a SQLite constraint error
// (unique, foreign key, etc.). Find-or-create paths use this to distinguish a
// recoverable duplicate insert from a fatal storage error.
func IsConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// nullable returns s as a NULL-able value: empty string maps to NULL so that
// "unset" is representable and first-write-wins guards can test for it.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// RegisterPaper inserts a paper and fills in its ID. Returns ErrDuplicatePaper
// if the filename is already registered.
func (s *SQLiteStore) RegisterPaper(ctx context.Context, p *models.Paper) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (year, course, paper_number, filename) VALUES (?, ?, ?, ?)`,
		p.Year, p.Course, p.PaperNumber, p.Filename,
	)
	if err != nil {
		if IsConstraintViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicatePaper, p.Filename)
		}
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

func scanPaper(row interface{ Scan(...interface{}) error }) (*models.Paper, error) {
	var p models.Paper
	var processedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Year, &p.Course, &p.PaperNumber, &p.Filename, &processedAt); err != nil {
		return nil, err
	}
	if processedAt.Valid {
		t := processedAt.Time
		p.ProcessedAt = &t
	}
	return &p, nil
}

const paperColumns = `id, year, course, paper_number, filename, processed_at`

// PaperByID returns a paper by ID, or ErrNotFound.
func (s *SQLiteStore) PaperByID(ctx context.Context, id int64) (*models.Paper, error) {
	p, err := scanPaper(s.db.QueryRowContext(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: paper %d", ErrNotFound, id)
	}
	return p, err
}

// PaperByFilename returns a paper by filename, or ErrNotFound.
func (s *SQLiteStore) PaperByFilename(ctx context.Context, filename string) (*models.Paper, error) {
	p, err := scanPaper(s.db.QueryRowContext(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE filename = ?`, filename))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: paper %s", ErrNotFound, filename)
	}
	return p, err
}

// RegisteredFilenames returns the set of all registered paper filenames.
func (s *SQLiteStore) RegisteredFilenames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename FROM papers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = struct{}{}
	}
	return names, rows.Err()
}

// UnprocessedPapers returns papers whose processed flag is unset, oldest
// first. limit <= 0 means no limit.
func (s *SQLiteStore) UnprocessedPapers(ctx context.Context, limit int) ([]*models.Paper, error) {
	q := `SELECT ` + paperColumns + ` FROM papers WHERE processed_at IS NULL ORDER BY id`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryPapers(ctx, q, args...)
}

// ListPapers returns papers, optionally filtered by year (nonzero) and course
// (non-empty).
func (s *SQLiteStore) ListPapers(ctx context.Context, year int, course string) ([]*models.Paper, error) {
	q := `SELECT ` + paperColumns + ` FROM papers WHERE 1=1`
	args := []interface{}{}
	if year != 0 {
		q += ` AND year = ?`
		args = append(args, year)
	}
	if course != "" {
		q += ` AND course = ?`
		args = append(args, course)
	}
	q += ` ORDER BY year, paper_number`
	return s.queryPapers(ctx, q, args...)
}

func (s *SQLiteStore) queryPapers(ctx context.Context, q string, args ...interface{}) ([]*models.Paper, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var papers []*models.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// WithGraphTx runs fn inside a transaction, committing on nil and rolling
// back on error or panic.
func (s *SQLiteStore) WithGraphTx(ctx context.Context, fn func(tx GraphTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&graphTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// ListConcepts returns all concepts ordered by name.
func (s *SQLiteStore) ListConcepts(ctx context.Context) ([]*models.Concept, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, description, parent_id FROM concepts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConcepts(rows)
}

// ConceptsByIDs returns the concepts with the given IDs; missing IDs are
// silently skipped.
func (s *SQLiteStore) ConceptsByIDs(ctx context.Context, ids []int64) ([]*models.Concept, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT id, name, category, description, parent_id FROM concepts WHERE id IN (?` +
		repeatPlaceholder(len(ids)-1) + `)`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectConcepts(rows)
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ",?"
	}
	return out
}

func collectConcepts(rows *sql.Rows) ([]*models.Concept, error) {
	var concepts []*models.Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

func scanConcept(row interface{ Scan(...interface{}) error }) (*models.Concept, error) {
	var c models.Concept
	var category, description sql.NullString
	var parentID sql.NullInt64
	if err := row.Scan(&c.ID, &c.Name, &category, &description, &parentID); err != nil {
		return nil, err
	}
	c.Category = category.String
	c.Description = description.String
	if parentID.Valid {
		id := parentID.Int64
		c.ParentID = &id
	}
	return &c, nil
}

// Stats returns row counts for the status command.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM papers),
			(SELECT COUNT(*) FROM papers WHERE processed_at IS NOT NULL),
			(SELECT COUNT(*) FROM concepts),
			(SELECT COUNT(*) FROM concept_relations),
			(SELECT COUNT(*) FROM occurrences)`)
	if err := row.Scan(&st.Papers, &st.ProcessedPapers, &st.Concepts, &st.Relations, &st.Occurrences); err != nil {
		return nil, err
	}
	return &st, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// graphTx implements GraphTx over an open *sql.Tx.
type graphTx struct {
	tx *sql.Tx
}

func (g *graphTx) ConceptByName(ctx context.Context, name string) (*models.Concept, error) {
	c, err := scanConcept(g.tx.QueryRowContext(ctx,
		`SELECT id, name, category, description, parent_id FROM concepts WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: concept %q", ErrNotFound, name)
	}
	return c, err
}

func (g *graphTx) ConceptByID(ctx context.Context, id int64) (*models.Concept, error) {
	c, err := scanConcept(g.tx.QueryRowContext(ctx,
		`SELECT id, name, category, description, parent_id FROM concepts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: concept %d", ErrNotFound, id)
	}
	return c, err
}

func (g *graphTx) CreateConcept(ctx context.Context, c *models.Concept) error {
	var parentID sql.NullInt64
	if c.ParentID != nil {
		parentID = sql.NullInt64{Int64: *c.ParentID, Valid: true}
	}
	res, err := g.tx.ExecContext(ctx,
		`INSERT INTO concepts (name, category, description, parent_id) VALUES (?, ?, ?, ?)`,
		c.Name, nullable(c.Category), nullable(c.Description), parentID,
	)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (g *graphTx) SetConceptCategory(ctx context.Context, id int64, category string) error {
	_, err := g.tx.ExecContext(ctx,
		`UPDATE concepts SET category = ? WHERE id = ? AND (category IS NULL OR category = '')`,
		category, id)
	return err
}

func (g *graphTx) SetConceptDescription(ctx context.Context, id int64, description string) error {
	_, err := g.tx.ExecContext(ctx,
		`UPDATE concepts SET description = ? WHERE id = ? AND (description IS NULL OR description = '')`,
		description, id)
	return err
}

func (g *graphTx) SetConceptParent(ctx context.Context, id, parentID int64) error {
	_, err := g.tx.ExecContext(ctx,
		`UPDATE concepts SET parent_id = ? WHERE id = ? AND parent_id IS NULL`,
		parentID, id)
	return err
}

func (g *graphTx) HasRelation(ctx context.Context, sourceID, targetID int64) (bool, error) {
	var one int
	err := g.tx.QueryRowContext(ctx,
		`SELECT 1 FROM concept_relations WHERE source_id = ? AND target_id = ?`,
		sourceID, targetID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *graphTx) CreateRelation(ctx context.Context, r *models.ConceptRelation) error {
	res, err := g.tx.ExecContext(ctx,
		`INSERT INTO concept_relations (source_id, target_id, relation_type, strength) VALUES (?, ?, ?, ?)`,
		r.SourceID, r.TargetID, r.RelationType, r.Strength,
	)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (g *graphTx) CreateOccurrence(ctx context.Context, o *models.Occurrence) error {
	res, err := g.tx.ExecContext(ctx,
		`INSERT INTO occurrences (concept_id, paper_id, question, context, confidence) VALUES (?, ?, ?, ?, ?)`,
		o.ConceptID, o.PaperID, nullable(o.Question), nullable(o.Context), o.Confidence,
	)
	if err != nil {
		return err
	}
	o.ID, err = res.LastInsertId()
	return err
}

func (g *graphTx) MarkPaperProcessed(ctx context.Context, paperID int64, at time.Time) error {
	res, err := g.tx.ExecContext(ctx,
		`UPDATE papers SET processed_at = ? WHERE id = ?`, at, paperID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: paper %d", ErrNotFound, paperID)
	}
	return nil
}
