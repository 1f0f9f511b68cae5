package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chalkline/papergraph/internal/models"
	"github.com/chalkline/papergraph/internal/store"
)

// seedGraph stores two papers with overlapping concepts for the report tests.
func seedGraph(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	p2020 := &models.Paper{Year: 2020, Course: "q01", PaperNumber: 1, Filename: "2020-p01-q01-solutions.pdf"}
	p2021 := &models.Paper{Year: 2021, Course: "q02", PaperNumber: 1, Filename: "2021-p01-q02-solutions.pdf"}
	for _, p := range []*models.Paper{p2020, p2021} {
		if err := s.RegisterPaper(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	err = s.WithGraphTx(ctx, func(tx store.GraphTx) error {
		sorting := &models.Concept{Name: "Sorting", Category: "Algorithms"}
		quicksort := &models.Concept{Name: "Quicksort", Category: "Algorithms"}
		logic := &models.Concept{Name: "Logic"}
		for _, c := range []*models.Concept{sorting, quicksort, logic} {
			if err := tx.CreateConcept(ctx, c); err != nil {
				return err
			}
		}
		if err := tx.SetConceptParent(ctx, quicksort.ID, sorting.ID); err != nil {
			return err
		}
		if err := tx.CreateRelation(ctx, &models.ConceptRelation{
			SourceID: quicksort.ID, TargetID: sorting.ID, RelationType: "related", Strength: 1.0,
		}); err != nil {
			return err
		}
		for _, o := range []*models.Occurrence{
			{ConceptID: sorting.ID, PaperID: p2020.ID, Confidence: 0.9},
			{ConceptID: sorting.ID, PaperID: p2021.ID, Confidence: 0.8},
			{ConceptID: quicksort.ID, PaperID: p2021.ID, Question: "q02", Confidence: 0.7},
			{ConceptID: logic.ID, PaperID: p2020.ID, Confidence: 0.6},
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
	return s
}

func TestTopConcepts(t *testing.T) {
	e := NewEngine(seedGraph(t))

	freqs, err := e.TopConcepts(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(freqs) != 2 {
		t.Fatalf("got %d rows", len(freqs))
	}
	if freqs[0].Name != "Sorting" || freqs[0].PaperCount != 2 {
		t.Errorf("top = %+v", freqs[0])
	}
}

func TestConceptsByCategory(t *testing.T) {
	e := NewEngine(seedGraph(t))

	groups, err := e.ConceptsByCategory(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups", len(groups))
	}
	if groups[0].Category != "Algorithms" || len(groups[0].Concepts) != 2 {
		t.Errorf("first group = %+v", groups[0])
	}
	if groups[1].Category != "Uncategorized" {
		t.Errorf("uncategorized must sort last, got %q", groups[1].Category)
	}
}

func TestConceptsByYear(t *testing.T) {
	e := NewEngine(seedGraph(t))

	freqs, err := e.ConceptsByYear(context.Background(), 2020)
	if err != nil {
		t.Fatal(err)
	}
	if len(freqs) != 2 {
		t.Fatalf("2020 should have 2 concepts, got %d", len(freqs))
	}
	for _, f := range freqs {
		if f.Name == "Quicksort" {
			t.Error("Quicksort only occurs in 2021")
		}
	}
}

func TestConceptDetail(t *testing.T) {
	e := NewEngine(seedGraph(t))
	ctx := context.Background()

	d, err := e.ConceptDetail(ctx, "Quicksort")
	if err != nil {
		t.Fatal(err)
	}
	if d.Parent == nil || d.Parent.Name != "Sorting" {
		t.Errorf("parent = %+v", d.Parent)
	}
	if len(d.Related) != 1 || d.Related[0].Name != "Sorting" || d.Related[0].Direction != "out" {
		t.Errorf("related = %+v", d.Related)
	}
	if len(d.Occurrences) != 1 || d.Occurrences[0].Year != 2021 || d.Occurrences[0].Question != "q02" {
		t.Errorf("occurrences = %+v", d.Occurrences)
	}

	d, err = e.ConceptDetail(ctx, "Sorting")
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Children) != 1 || d.Children[0].Name != "Quicksort" {
		t.Errorf("children = %+v", d.Children)
	}

	if _, err := e.ConceptDetail(ctx, "Nonexistent"); err == nil {
		t.Error("expected error for unknown concept")
	}
}

func TestTrendsPivot(t *testing.T) {
	e := NewEngine(seedGraph(t))

	tr, err := e.Trends(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Years) != 2 || tr.Years[0] != 2020 || tr.Years[1] != 2021 {
		t.Errorf("years = %v", tr.Years)
	}
	if tr.Counts["Sorting"][2020] != 1 || tr.Counts["Sorting"][2021] != 1 {
		t.Errorf("sorting counts = %v", tr.Counts["Sorting"])
	}
	if _, ok := tr.Counts["Quicksort"][2020]; ok {
		t.Error("Quicksort has no 2020 occurrences")
	}
}

func TestSearch(t *testing.T) {
	e := NewEngine(seedGraph(t))

	hits, err := e.Search(context.Background(), "sort", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("got %d hits, want Sorting and Quicksort", len(hits))
	}
}
