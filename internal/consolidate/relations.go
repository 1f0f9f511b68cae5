package consolidate

import (
	"context"
	"fmt"
	"strings"

	"github.com/chalkline/papergraph/internal/models"
	"github.com/chalkline/papergraph/internal/store"
	"github.com/chalkline/papergraph/pkg/utils"
)

// linkRelated creates directed edges from source to each named related
// concept, creating bare target concepts as needed. An existing edge for the
// same ordered pair is left untouched; the reverse direction would be a
// separate edge and is not created here. Returns the number of new edges.
func (r *resolver) linkRelated(ctx context.Context, source *models.Concept, related []string, relationType string, strength float64) (int, error) {
	created := 0
	for _, name := range related {
		name = strings.TrimSpace(name)
		if name == "" || name == source.Name {
			continue
		}

		target, err := r.findOrCreate(ctx, name)
		if err != nil {
			return created, err
		}
		if target.ID == source.ID {
			continue
		}

		exists, err := r.tx.HasRelation(ctx, source.ID, target.ID)
		if err != nil {
			return created, fmt.Errorf("check relation: %w", err)
		}
		if exists {
			continue
		}

		rel := &models.ConceptRelation{
			SourceID:     source.ID,
			TargetID:     target.ID,
			RelationType: relationType,
			Strength:     utils.Clamp01(strength),
		}
		err = r.tx.CreateRelation(ctx, rel)
		if store.IsConstraintViolation(err) {
			// Another candidate created the same edge in this transaction.
			continue
		}
		if err != nil {
			return created, fmt.Errorf("create relation %q->%q: %w", source.Name, name, err)
		}
		created++
	}
	return created, nil
}
