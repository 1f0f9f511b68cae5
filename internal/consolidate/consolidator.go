package consolidate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chalkline/papergraph/internal/models"
	"github.com/chalkline/papergraph/internal/store"
)

// Extractor produces concept candidates for a paper. The LLM pipeline
// implements this; tests substitute a canned extractor.
type Extractor interface {
	ExtractPaper(ctx context.Context, paper *models.Paper) ([]models.RawCandidate, error)
}

// ConceptIndexer receives concepts touched by a committed paper so a search
// index can stay current. Indexing happens after commit and its failure does
// not affect the stored graph.
type ConceptIndexer interface {
	IndexConcepts(ctx context.Context, concepts []*models.Concept) error
}

// Options configures edge defaults for the Consolidator.
type Options struct {
	DefaultConfidence float64
	RelationType      string
	RelationStrength  float64
}

// Result summarizes one paper's consolidation run.
type Result struct {
	RunID        string
	PaperID      int64
	Filename     string
	Received     int // candidates returned by extraction
	Accepted     int // candidates that passed validation
	Rejected     int // candidates dropped by validation
	Stored       int // candidates whose occurrence was written
	NewRelations int
	Committed    bool
}

// Consolidator drives the candidate pipeline for each paper: extract,
// validate, resolve, link, record, then commit. Each paper is one
// transaction; a paper is marked processed only in the same commit that
// stores its concepts.
type Consolidator struct {
	store     store.Store
	extractor Extractor
	validator *Validator
	indexer   ConceptIndexer // optional
	opts      Options
	logger    *zap.Logger
}

// NewConsolidator creates a Consolidator. indexer may be nil.
func NewConsolidator(s store.Store, extractor Extractor, indexer ConceptIndexer, opts Options, logger *zap.Logger) *Consolidator {
	if opts.RelationType == "" {
		opts.RelationType = "related"
	}
	return &Consolidator{
		store:     s,
		extractor: extractor,
		validator: NewValidator(opts.DefaultConfidence),
		indexer:   indexer,
		opts:      opts,
		logger:    logger,
	}
}

// ProcessPaper consolidates one paper. Candidate-level failures (validation
// rejections, unrecoverable name resolution) skip the candidate; storage
// failures roll the whole paper back and return an error. A paper whose
// candidates all fail commits nothing and stays unprocessed.
func (c *Consolidator) ProcessPaper(ctx context.Context, paper *models.Paper) (*Result, error) {
	result := &Result{
		RunID:    uuid.NewString(),
		PaperID:  paper.ID,
		Filename: paper.Filename,
	}
	log := c.logger.With(zap.String("run_id", result.RunID), zap.String("paper", paper.Filename))
	log.Info("extracting concepts")

	rawCandidates, err := c.extractor.ExtractPaper(ctx, paper)
	if err != nil {
		return result, fmt.Errorf("extract %s: %w", paper.Filename, err)
	}
	result.Received = len(rawCandidates)

	var touchedIDs []int64
	err = c.store.WithGraphTx(ctx, func(tx store.GraphTx) error {
		r := &resolver{tx: tx, logger: log}

		for i, raw := range rawCandidates {
			cand, err := c.validator.Validate(raw)
			if errors.Is(err, ErrRejected) {
				log.Warn("rejecting candidate", zap.Int("index", i), zap.Error(err))
				result.Rejected++
				continue
			}
			result.Accepted++

			concept, err := r.resolve(ctx, cand)
			if errors.Is(err, errResolution) {
				log.Warn("skipping unresolvable candidate",
					zap.String("name", cand.Name), zap.Error(err))
				continue
			}
			if err != nil {
				return err
			}

			if err := r.recordOccurrence(ctx, concept, paper, cand); err != nil {
				return err
			}
			result.Stored++
			touchedIDs = append(touchedIDs, concept.ID)

			n, err := r.linkRelated(ctx, concept, cand.Related, c.opts.RelationType, c.opts.RelationStrength)
			if err != nil {
				return err
			}
			result.NewRelations += n
		}

		if result.Stored == 0 {
			return ErrNoConceptsStored
		}
		return tx.MarkPaperProcessed(ctx, paper.ID, time.Now().UTC())
	})

	switch {
	case errors.Is(err, ErrNoConceptsStored):
		log.Info("no concepts stored, paper left unprocessed",
			zap.Int("received", result.Received),
			zap.Int("rejected", result.Rejected))
		return result, nil
	case err != nil:
		log.Error("paper rolled back", zap.Error(err))
		return result, err
	}

	result.Committed = true
	log.Info("paper committed",
		zap.Int("received", result.Received),
		zap.Int("accepted", result.Accepted),
		zap.Int("rejected", result.Rejected),
		zap.Int("stored", result.Stored),
		zap.Int("new_relations", result.NewRelations))

	c.indexTouched(ctx, log, touchedIDs)
	return result, nil
}

// Run consolidates up to limit unprocessed papers (0 means all), serially.
// Paper-level failures are logged and the batch continues; a canceled context
// halts it.
func (c *Consolidator) Run(ctx context.Context, limit int) ([]*Result, error) {
	papers, err := c.store.UnprocessedPapers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed papers: %w", err)
	}

	results := make([]*Result, 0, len(papers))
	for _, paper := range papers {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		result, err := c.ProcessPaper(ctx, paper)
		if err != nil {
			c.logger.Warn("paper failed, continuing batch",
				zap.String("paper", paper.Filename), zap.Error(err))
		}
		results = append(results, result)
	}
	return results, nil
}

// indexTouched pushes committed concepts to the search index, best effort.
func (c *Consolidator) indexTouched(ctx context.Context, log *zap.Logger, ids []int64) {
	if c.indexer == nil || len(ids) == 0 {
		return
	}
	concepts, err := c.store.ConceptsByIDs(ctx, ids)
	if err != nil {
		log.Warn("loading concepts for indexing failed", zap.Error(err))
		return
	}
	if err := c.indexer.IndexConcepts(ctx, concepts); err != nil {
		log.Warn("search indexing failed", zap.Error(err))
	}
}
