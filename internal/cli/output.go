// Package cli formats query reports for the papergraph command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/chalkline/papergraph/internal/query"
	"github.com/chalkline/papergraph/internal/store"
)

// OutputFormat selects how reports are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat converts a flag value into an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteFrequencies writes a concept frequency report.
func WriteFrequencies(w io.Writer, freqs []*store.ConceptFrequency, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, freqs)
	}
	fmt.Fprintf(w, "  %-35s %-20s %6s %6s %6s\n", "CONCEPT", "CATEGORY", "PAPERS", "OCCUR", "CONF")
	for _, f := range freqs {
		fmt.Fprintf(w, "  %-35s %-20s %6d %6d %6.2f\n",
			f.Name, f.Category, f.PaperCount, f.Occurrences, f.AvgConfidence)
	}
	return nil
}

// WriteCategories writes the by-category grouping.
func WriteCategories(w io.Writer, groups []*query.CategoryGroup, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, groups)
	}
	for _, g := range groups {
		fmt.Fprintf(w, "%s:\n", g.Category)
		for _, f := range g.Concepts {
			fmt.Fprintf(w, "  %-35s %d paper(s)\n", f.Name, f.PaperCount)
		}
	}
	return nil
}

// WriteDetail writes the full view of one concept.
func WriteDetail(w io.Writer, d *query.Detail, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, d)
	}
	fmt.Fprintf(w, "%s\n", d.Concept.Name)
	if d.Concept.Category != "" {
		fmt.Fprintf(w, "  Category: %s\n", d.Concept.Category)
	}
	if d.Concept.Description != "" {
		fmt.Fprintf(w, "  Description: %s\n", d.Concept.Description)
	}
	if d.Parent != nil {
		fmt.Fprintf(w, "  Parent: %s\n", d.Parent.Name)
	}
	if len(d.Children) > 0 {
		names := make([]string, len(d.Children))
		for i, c := range d.Children {
			names[i] = c.Name
		}
		fmt.Fprintf(w, "  Children: %s\n", strings.Join(names, ", "))
	}
	if len(d.Related) > 0 {
		fmt.Fprintln(w, "  Related:")
		for _, r := range d.Related {
			fmt.Fprintf(w, "    %-30s (%s, %s, strength %.2f)\n",
				r.Name, r.RelationType, r.Direction, r.Strength)
		}
	}
	if len(d.Occurrences) > 0 {
		fmt.Fprintln(w, "  Occurrences:")
		for _, o := range d.Occurrences {
			fmt.Fprintf(w, "    %s (%d) confidence %.2f\n", o.Filename, o.Year, o.Confidence)
		}
	}
	return nil
}

// WriteTrends writes the per-year trend pivot.
func WriteTrends(w io.Writer, t *query.Trends, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, t)
	}
	fmt.Fprintf(w, "  %-35s", "CONCEPT")
	for _, y := range t.Years {
		fmt.Fprintf(w, " %6d", y)
	}
	fmt.Fprintln(w)
	for name, counts := range t.Counts {
		fmt.Fprintf(w, "  %-35s", name)
		for _, y := range t.Years {
			fmt.Fprintf(w, " %6d", counts[y])
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteCoOccurrences writes the co-occurring pair report.
func WriteCoOccurrences(w io.Writer, pairs []*store.CoOccurrence, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, pairs)
	}
	for _, p := range pairs {
		fmt.Fprintf(w, "  %-30s %-30s %d paper(s)\n", p.AName, p.BName, p.Count)
	}
	return nil
}
