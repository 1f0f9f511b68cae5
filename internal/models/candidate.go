package models

// RawCandidate is one unvalidated concept mention as returned by the LLM
// extraction step. Field types mirror what the model actually emits rather
// than what we wish it emitted: confidence arrives as a number or a string,
// related_concepts as a single string or a list. Nothing downstream of the
// validator touches a RawCandidate.
type RawCandidate struct {
	Name            string      `json:"name"`
	Category        string      `json:"category,omitempty"`
	Description     string      `json:"description,omitempty"`
	Context         string      `json:"context,omitempty"`
	Confidence      interface{} `json:"confidence,omitempty"`
	RelatedConcepts interface{} `json:"related_concepts,omitempty"`
	ParentConcept   string      `json:"parent_concept,omitempty"`
}

// Candidate is the validated, normalized form of a RawCandidate. Name is
// non-empty and trimmed, Confidence is clamped to [0,1], and Related is a
// deduplicated list of non-empty names.
type Candidate struct {
	Name          string
	Category      string
	Description   string
	Context       string
	Confidence    float64
	Related       []string
	ParentConcept string
}
