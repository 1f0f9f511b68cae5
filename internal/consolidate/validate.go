package consolidate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chalkline/papergraph/internal/models"
	"github.com/chalkline/papergraph/pkg/utils"
)

// Validator normalizes raw candidates into storable form. Validation is a
// pure function of its input: it touches no storage and has no side effects.
type Validator struct {
	defaultConfidence float64
}

// NewValidator creates a Validator. defaultConfidence is applied when a
// candidate's confidence is missing or not coercible to a number.
func NewValidator(defaultConfidence float64) *Validator {
	return &Validator{defaultConfidence: defaultConfidence}
}

// Validate checks and normalizes one raw candidate. A missing or blank name
// is the only rejection; everything else is repaired: confidence is coerced
// and clamped to [0,1], related concepts are flattened and deduplicated.
func (v *Validator) Validate(raw models.RawCandidate) (*models.Candidate, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrRejected)
	}

	return &models.Candidate{
		Name:          name,
		Category:      strings.TrimSpace(raw.Category),
		Description:   strings.TrimSpace(raw.Description),
		Context:       strings.TrimSpace(raw.Context),
		Confidence:    utils.Clamp01(v.confidence(raw.Confidence)),
		Related:       normalizeRelated(raw.RelatedConcepts),
		ParentConcept: strings.TrimSpace(raw.ParentConcept),
	}, nil
}

// confidence coerces the raw confidence value. JSON numbers arrive as
// float64; models sometimes emit the number as a string instead.
func (v *Validator) confidence(raw interface{}) float64 {
	switch t := raw.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return v.defaultConfidence
}

// normalizeRelated flattens related_concepts (a list, a single string, or
// absent) into a deduplicated list of trimmed non-empty names.
func normalizeRelated(raw interface{}) []string {
	var names []string
	appendName := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		for _, existing := range names {
			if existing == s {
				return
			}
		}
		names = append(names, s)
	}

	switch t := raw.(type) {
	case []interface{}:
		for _, e := range t {
			if s, ok := e.(string); ok {
				appendName(s)
			}
		}
	case []string:
		for _, s := range t {
			appendName(s)
		}
	case string:
		appendName(t)
	}
	return names
}
