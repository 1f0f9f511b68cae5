package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chalkline/papergraph/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRegisterPaper(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Paper{Year: 2021, Course: "q08", PaperNumber: 7, Filename: "2021-p07-q08-solutions.pdf"}
	if err := s.RegisterPaper(ctx, p); err != nil {
		t.Fatal(err)
	}
	if p.ID == 0 {
		t.Error("ID should be set after register")
	}

	dup := &models.Paper{Year: 2021, Course: "q08", PaperNumber: 7, Filename: "2021-p07-q08-solutions.pdf"}
	err := s.RegisterPaper(ctx, dup)
	if !errors.Is(err, ErrDuplicatePaper) {
		t.Errorf("expected ErrDuplicatePaper, got %v", err)
	}

	got, err := s.PaperByFilename(ctx, p.Filename)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != p.ID || got.Year != 2021 || got.Processed() {
		t.Errorf("got %+v", got)
	}
}

func TestUnprocessedAndMarkProcessed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &models.Paper{Year: 2020, Course: "q01", PaperNumber: 1, Filename: "a.pdf"}
	b := &models.Paper{Year: 2021, Course: "q02", PaperNumber: 2, Filename: "b.pdf"}
	for _, p := range []*models.Paper{a, b} {
		if err := s.RegisterPaper(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	papers, err := s.UnprocessedPapers(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 2 {
		t.Fatalf("expected 2 unprocessed, got %d", len(papers))
	}

	err = s.WithGraphTx(ctx, func(tx GraphTx) error {
		return tx.MarkPaperProcessed(ctx, a.ID, time.Now().UTC())
	})
	if err != nil {
		t.Fatal(err)
	}

	papers, _ = s.UnprocessedPapers(ctx, 0)
	if len(papers) != 1 || papers[0].ID != b.ID {
		t.Errorf("expected only paper b unprocessed, got %+v", papers)
	}

	got, _ := s.PaperByID(ctx, a.ID)
	if !got.Processed() {
		t.Error("paper a should be processed")
	}
}

func TestConceptNameUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithGraphTx(ctx, func(tx GraphTx) error {
		if err := tx.CreateConcept(ctx, &models.Concept{Name: "Recursion"}); err != nil {
			return err
		}
		err := tx.CreateConcept(ctx, &models.Concept{Name: "Recursion"})
		if err == nil {
			t.Error("expected unique violation on duplicate name")
		}
		if !IsConstraintViolation(err) {
			t.Errorf("expected constraint violation, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestFirstWriteWinsGuards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var id int64
	err := s.WithGraphTx(ctx, func(tx GraphTx) error {
		c := &models.Concept{Name: "Graphs"}
		if err := tx.CreateConcept(ctx, c); err != nil {
			return err
		}
		id = c.ID
		if err := tx.SetConceptCategory(ctx, id, "Algorithms"); err != nil {
			return err
		}
		// Second write must not overwrite.
		return tx.SetConceptCategory(ctx, id, "Data Structures")
	})
	if err != nil {
		t.Fatal(err)
	}

	c, err := s.ConceptByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if c.Category != "Algorithms" {
		t.Errorf("category = %q, want Algorithms", c.Category)
	}
}

func TestSetConceptParentOnlyWhenUnset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var child, p1, p2 int64
	err := s.WithGraphTx(ctx, func(tx GraphTx) error {
		for name, dst := range map[string]*int64{"child": &child, "p1": &p1, "p2": &p2} {
			c := &models.Concept{Name: name}
			if err := tx.CreateConcept(ctx, c); err != nil {
				return err
			}
			*dst = c.ID
		}
		if err := tx.SetConceptParent(ctx, child, p1); err != nil {
			return err
		}
		return tx.SetConceptParent(ctx, child, p2)
	})
	if err != nil {
		t.Fatal(err)
	}

	c, _ := s.ConceptByID(ctx, child)
	if c.ParentID == nil || *c.ParentID != p1 {
		t.Errorf("parent = %v, want %d", c.ParentID, p1)
	}
}

func TestRelationOrderedPairUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var a, b int64
	err := s.WithGraphTx(ctx, func(tx GraphTx) error {
		ca := &models.Concept{Name: "Recursion"}
		cb := &models.Concept{Name: "Induction"}
		if err := tx.CreateConcept(ctx, ca); err != nil {
			return err
		}
		if err := tx.CreateConcept(ctx, cb); err != nil {
			return err
		}
		a, b = ca.ID, cb.ID

		if err := tx.CreateRelation(ctx, &models.ConceptRelation{SourceID: a, TargetID: b, RelationType: "related", Strength: 1.0}); err != nil {
			return err
		}
		// Same ordered pair violates the constraint.
		err := tx.CreateRelation(ctx, &models.ConceptRelation{SourceID: a, TargetID: b, RelationType: "related", Strength: 1.0})
		if !IsConstraintViolation(err) {
			t.Errorf("expected constraint violation for duplicate pair, got %v", err)
		}
		// Reverse direction is a distinct edge.
		return tx.CreateRelation(ctx, &models.ConceptRelation{SourceID: b, TargetID: a, RelationType: "related", Strength: 1.0})
	})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := s.hasRelationOutsideTx(ctx, a, b)
	if err != nil || !ok {
		t.Errorf("a->b should exist: %v", err)
	}
	ok, _ = s.hasRelationOutsideTx(ctx, b, a)
	if !ok {
		t.Error("b->a should exist")
	}
}

// hasRelationOutsideTx is a test helper reading committed relation state.
func (s *SQLiteStore) hasRelationOutsideTx(ctx context.Context, sourceID, targetID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM concept_relations WHERE source_id = ? AND target_id = ?`,
		sourceID, targetID).Scan(&one)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func TestGraphTxRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithGraphTx(ctx, func(tx GraphTx) error {
		if err := tx.CreateConcept(ctx, &models.Concept{Name: "Doomed"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.ConceptByName(ctx, "Doomed"); !errors.Is(err, ErrNotFound) {
		t.Errorf("concept should have been rolled back, got %v", err)
	}
}

func TestReadYourWritesInTx(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithGraphTx(ctx, func(tx GraphTx) error {
		c := &models.Concept{Name: "Parsing"}
		if err := tx.CreateConcept(ctx, c); err != nil {
			return err
		}
		got, err := tx.ConceptByName(ctx, "Parsing")
		if err != nil {
			return err
		}
		if got.ID != c.ID {
			t.Errorf("read-your-writes: got %d want %d", got.ID, c.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStatsAndReports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1 := &models.Paper{Year: 2020, Course: "q01", PaperNumber: 1, Filename: "p1.pdf"}
	p2 := &models.Paper{Year: 2021, Course: "q02", PaperNumber: 2, Filename: "p2.pdf"}
	for _, p := range []*models.Paper{p1, p2} {
		if err := s.RegisterPaper(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	var recursion, induction int64
	err := s.WithGraphTx(ctx, func(tx GraphTx) error {
		a := &models.Concept{Name: "Recursion", Category: "Algorithms"}
		b := &models.Concept{Name: "Induction", Category: "Proofs"}
		if err := tx.CreateConcept(ctx, a); err != nil {
			return err
		}
		if err := tx.CreateConcept(ctx, b); err != nil {
			return err
		}
		recursion, induction = a.ID, b.ID
		if err := tx.CreateRelation(ctx, &models.ConceptRelation{SourceID: a.ID, TargetID: b.ID, RelationType: "related", Strength: 1.0}); err != nil {
			return err
		}
		for _, o := range []*models.Occurrence{
			{ConceptID: a.ID, PaperID: p1.ID, Confidence: 0.9},
			{ConceptID: a.ID, PaperID: p2.ID, Confidence: 0.7},
			{ConceptID: b.ID, PaperID: p1.ID, Confidence: 0.8},
		} {
			if err := tx.CreateOccurrence(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Papers != 2 || st.Concepts != 2 || st.Relations != 1 || st.Occurrences != 3 {
		t.Errorf("stats = %+v", st)
	}

	freqs, err := s.ConceptFrequencies(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(freqs) != 2 {
		t.Fatalf("expected 2 frequency rows, got %d", len(freqs))
	}
	if freqs[0].Name != "Recursion" || freqs[0].PaperCount != 2 {
		t.Errorf("top frequency = %+v", freqs[0])
	}

	related, err := s.RelatedConcepts(ctx, induction)
	if err != nil {
		t.Fatal(err)
	}
	if len(related) != 1 || related[0].Direction != "in" || related[0].ConceptID != recursion {
		t.Errorf("related = %+v", related)
	}

	co, err := s.CoOccurrences(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(co) != 1 || co[0].Count != 1 {
		t.Errorf("co-occurrences = %+v", co)
	}

	trends, err := s.TrendRows(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(trends) != 3 {
		t.Errorf("expected 3 trend rows, got %d", len(trends))
	}

	hits, err := s.SearchConceptsLike(ctx, "recur", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Name != "Recursion" {
		t.Errorf("like search = %+v", hits)
	}
}
