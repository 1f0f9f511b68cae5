package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/chalkline/papergraph/internal/models"
	"github.com/chalkline/papergraph/internal/query"
	"github.com/chalkline/papergraph/internal/store"
)

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != OutputText {
		t.Errorf("empty: %v %v", f, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != OutputJSON {
		t.Errorf("json: %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteFrequenciesText(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrequencies(&buf, []*store.ConceptFrequency{
		{Name: "Recursion", Category: "Algorithms", PaperCount: 3, Occurrences: 5, AvgConfidence: 0.85},
	}, OutputText)
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Recursion") || !strings.Contains(out, "Algorithms") {
		t.Errorf("output: %s", out)
	}
}

func TestWriteFrequenciesJSON(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrequencies(&buf, []*store.ConceptFrequency{
		{Name: "Recursion", PaperCount: 3},
	}, OutputJSON)
	if err != nil {
		t.Fatal(err)
	}
	var out []*store.ConceptFrequency
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Name != "Recursion" {
		t.Errorf("roundtrip = %+v", out)
	}
}

func TestWriteDetailText(t *testing.T) {
	parentID := int64(2)
	var buf bytes.Buffer
	err := WriteDetail(&buf, &query.Detail{
		Concept: &models.Concept{ID: 1, Name: "Quicksort", Category: "Algorithms", ParentID: &parentID},
		Parent:  &models.Concept{ID: 2, Name: "Sorting"},
		Related: []*store.RelatedConcept{
			{ConceptID: 2, Name: "Sorting", RelationType: "related", Strength: 1.0, Direction: "out"},
		},
		Occurrences: []*store.OccurrenceDetail{
			{Filename: "2021-p01-q01-solutions.pdf", Year: 2021, Confidence: 0.9},
		},
	}, OutputText)
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Quicksort", "Parent: Sorting", "Related:", "2021"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestWriteTrendsText(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTrends(&buf, &query.Trends{
		Years:  []int{2020, 2021},
		Counts: map[string]map[int]int64{"Sorting": {2020: 1, 2021: 2}},
	}, OutputText)
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "2020") || !strings.Contains(out, "Sorting") {
		t.Errorf("output: %s", out)
	}
}
