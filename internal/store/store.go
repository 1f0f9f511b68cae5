// Package store defines the persistence interface for papers and the concept
// graph, and its SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/chalkline/papergraph/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicatePaper is returned by RegisterPaper when a paper with the same
// filename is already registered.
var ErrDuplicatePaper = errors.New("paper already registered")

// GraphTx is the set of write operations available inside one document's
// consolidation transaction. Writes made through a GraphTx are visible to
// subsequent reads on the same GraphTx before commit, so a concept created for
// one candidate can serve as a foreign-key target for the next.
type GraphTx interface {
	ConceptByName(ctx context.Context, name string) (*models.Concept, error)
	ConceptByID(ctx context.Context, id int64) (*models.Concept, error)
	// CreateConcept inserts the concept and fills in its ID. The name unique
	// constraint is enforced by the schema; violations surface as errors for
	// which IsConstraintViolation reports true.
	CreateConcept(ctx context.Context, c *models.Concept) error
	// SetConceptCategory fills category only if currently unset (first-write-wins).
	SetConceptCategory(ctx context.Context, id int64, category string) error
	// SetConceptDescription fills description only if currently unset.
	SetConceptDescription(ctx context.Context, id int64, description string) error
	// SetConceptParent assigns the parent only if no parent is set yet.
	SetConceptParent(ctx context.Context, id, parentID int64) error
	HasRelation(ctx context.Context, sourceID, targetID int64) (bool, error)
	CreateRelation(ctx context.Context, r *models.ConceptRelation) error
	CreateOccurrence(ctx context.Context, o *models.Occurrence) error
	MarkPaperProcessed(ctx context.Context, paperID int64, at time.Time) error
}

// Store defines paper registration and concept graph persistence.
type Store interface {
	// Paper operations
	RegisterPaper(ctx context.Context, p *models.Paper) error
	PaperByID(ctx context.Context, id int64) (*models.Paper, error)
	PaperByFilename(ctx context.Context, filename string) (*models.Paper, error)
	RegisteredFilenames(ctx context.Context) (map[string]struct{}, error)
	UnprocessedPapers(ctx context.Context, limit int) ([]*models.Paper, error)
	ListPapers(ctx context.Context, year int, course string) ([]*models.Paper, error)

	// WithGraphTx runs fn inside a single transaction: commit on nil return,
	// rollback on error. This is the atomicity boundary for one document's
	// consolidation.
	WithGraphTx(ctx context.Context, fn func(tx GraphTx) error) error

	// ListConcepts returns all concepts, for search index rebuilds.
	ListConcepts(ctx context.Context) ([]*models.Concept, error)
	ConceptsByIDs(ctx context.Context, ids []int64) ([]*models.Concept, error)

	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// Stats summarizes stored state for the status command and API.
type Stats struct {
	Papers          int64 `json:"papers"`
	ProcessedPapers int64 `json:"processed_papers"`
	Concepts        int64 `json:"concepts"`
	Relations       int64 `json:"relations"`
	Occurrences     int64 `json:"occurrences"`
}
