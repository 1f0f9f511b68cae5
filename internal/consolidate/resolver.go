package consolidate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chalkline/papergraph/internal/models"
	"github.com/chalkline/papergraph/internal/store"
)

// resolver maps candidate names onto concept rows within one transaction.
// Names match case-sensitively and exactly; "Recursion" and "recursion" are
// distinct concepts by contract.
type resolver struct {
	tx     store.GraphTx
	logger *zap.Logger
}

// resolve finds or creates the concept for a validated candidate, fills
// unset category and description, and assigns the parent concept if one is
// named. Fields that already have a value are never overwritten.
func (r *resolver) resolve(ctx context.Context, cand *models.Candidate) (*models.Concept, error) {
	concept, err := r.findOrCreate(ctx, cand.Name)
	if err != nil {
		return nil, err
	}

	if cand.Category != "" && concept.Category == "" {
		if err := r.tx.SetConceptCategory(ctx, concept.ID, cand.Category); err != nil {
			return nil, fmt.Errorf("set category: %w", err)
		}
		concept.Category = cand.Category
	}
	if cand.Description != "" && concept.Description == "" {
		if err := r.tx.SetConceptDescription(ctx, concept.ID, cand.Description); err != nil {
			return nil, fmt.Errorf("set description: %w", err)
		}
		concept.Description = cand.Description
	}

	if cand.ParentConcept != "" && cand.ParentConcept != cand.Name {
		if err := r.assignParent(ctx, concept, cand.ParentConcept); err != nil {
			return nil, err
		}
	}
	return concept, nil
}

// findOrCreate returns the concept with the given name, creating a bare row
// if none exists. A unique violation on create means another candidate in
// this transaction created the row first; the re-query recovers it.
func (r *resolver) findOrCreate(ctx context.Context, name string) (*models.Concept, error) {
	concept, err := r.tx.ConceptByName(ctx, name)
	if err == nil {
		return concept, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("look up concept %q: %w", name, err)
	}

	concept = &models.Concept{Name: name}
	err = r.tx.CreateConcept(ctx, concept)
	if err == nil {
		return concept, nil
	}
	if !store.IsConstraintViolation(err) {
		return nil, fmt.Errorf("create concept %q: %w", name, err)
	}

	concept, err = r.tx.ConceptByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q vanished after unique violation", errResolution, name)
	}
	if err != nil {
		return nil, fmt.Errorf("re-query concept %q: %w", name, err)
	}
	return concept, nil
}

// assignParent links the concept under parentName unless the concept already
// has a parent or the assignment would close an ancestry cycle. Cycles are
// skipped with a warning rather than stored.
func (r *resolver) assignParent(ctx context.Context, concept *models.Concept, parentName string) error {
	parent, err := r.findOrCreate(ctx, parentName)
	if err != nil {
		return err
	}
	if concept.ParentID != nil || parent.ID == concept.ID {
		return nil
	}

	cyclic, err := r.isAncestor(ctx, concept.ID, parent.ID)
	if err != nil {
		return err
	}
	if cyclic {
		r.logger.Warn("skipping cyclic parent assignment",
			zap.String("concept", concept.Name),
			zap.String("parent", parentName))
		return nil
	}

	if err := r.tx.SetConceptParent(ctx, concept.ID, parent.ID); err != nil {
		return fmt.Errorf("set parent of %q: %w", concept.Name, err)
	}
	concept.ParentID = &parent.ID
	return nil
}

// isAncestor reports whether conceptID appears in the ancestor chain starting
// at fromID. The visited set guards against pre-existing loops in the data.
func (r *resolver) isAncestor(ctx context.Context, conceptID, fromID int64) (bool, error) {
	visited := map[int64]bool{}
	current := fromID
	for {
		if current == conceptID {
			return true, nil
		}
		if visited[current] {
			return false, nil
		}
		visited[current] = true

		c, err := r.tx.ConceptByID(ctx, current)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("walk ancestors: %w", err)
		}
		if c.ParentID == nil {
			return false, nil
		}
		current = *c.ParentID
	}
}
