// Package models defines core data structures for papers, concepts, and their
// relationships.
package models

import (
	"strings"
	"time"
)

// Paper represents a registered past-paper document. A paper is the unit of
// ingestion: it is registered once (filename is unique) and marked processed
// after at least one concept has been durably stored for it.
type Paper struct {
	ID          int64      `json:"id"`
	Year        int        `json:"year"`
	Course      string     `json:"course"` // stores the question tag ("qNN") for the solutions-file naming scheme
	PaperNumber int        `json:"paper_number"`
	Filename    string     `json:"filename"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Processed reports whether the paper has been analyzed and committed.
func (p *Paper) Processed() bool {
	return p.ProcessedAt != nil
}

// Question returns the question identifier carried in the course field
// ("q08"), or empty if the paper was registered without one.
func (p *Paper) Question() string {
	if strings.HasPrefix(p.Course, "q") {
		return p.Course
	}
	return ""
}

// Concept is a deduplicated named node in the knowledge graph. Name is the
// sole merge key and is unique, case-sensitively. Category and Description
// follow first-write-wins: empty means unset and may be filled later, a
// non-empty value is never overwritten. ParentID forms a forest via
// self-reference; cycle-closing assignments are refused at resolution time.
type Concept struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	ParentID    *int64 `json:"parent_id,omitempty"`
}

// ConceptRelation is a directed, typed, weighted edge between two concepts.
// At most one edge exists per ordered (source, target) pair; the reverse
// direction is a distinct edge. Type and strength are fixed at creation.
type ConceptRelation struct {
	ID           int64   `json:"id"`
	SourceID     int64   `json:"source_id"`
	TargetID     int64   `json:"target_id"`
	RelationType string  `json:"relation_type"`
	Strength     float64 `json:"strength"`
}

// Occurrence records that a concept was mentioned in a specific paper.
// Occurrences are append-only evidence: the same concept may occur multiple
// times in the same paper and every row is preserved.
type Occurrence struct {
	ID         int64   `json:"id"`
	ConceptID  int64   `json:"concept_id"`
	PaperID    int64   `json:"paper_id"`
	Question   string  `json:"question,omitempty"`
	Context    string  `json:"context,omitempty"`
	Confidence float64 `json:"confidence"`
}
