package consolidate

import (
	"context"
	"fmt"

	"github.com/chalkline/papergraph/internal/models"
	"github.com/chalkline/papergraph/pkg/utils"
)

// recordOccurrence appends one occurrence row linking the concept to the
// paper. Occurrences are evidence, not state: they are never deduplicated,
// so a concept mentioned twice in one paper yields two rows.
func (r *resolver) recordOccurrence(ctx context.Context, concept *models.Concept, paper *models.Paper, cand *models.Candidate) error {
	occ := &models.Occurrence{
		ConceptID:  concept.ID,
		PaperID:    paper.ID,
		Question:   paper.Question(),
		Context:    cand.Context,
		Confidence: utils.Clamp01(cand.Confidence),
	}
	if err := r.tx.CreateOccurrence(ctx, occ); err != nil {
		return fmt.Errorf("record occurrence of %q: %w", concept.Name, err)
	}
	return nil
}
