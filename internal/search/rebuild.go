package search

import (
	"context"
	"fmt"

	"github.com/chalkline/papergraph/internal/store"
)

// Rebuild re-indexes every stored concept. Used by the reindex command and
// after schema or mapping changes.
func (b *ConceptIndex) Rebuild(ctx context.Context, s store.Store) (int, error) {
	concepts, err := s.ListConcepts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list concepts: %w", err)
	}
	if err := b.IndexConcepts(ctx, concepts); err != nil {
		return 0, err
	}
	return len(concepts), nil
}
