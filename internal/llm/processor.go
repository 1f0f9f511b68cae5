package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/chalkline/papergraph/internal/models"
	"github.com/chalkline/papergraph/pkg/utils"
)

// defaultPrompt is used when no prompt template file is configured. The
// {text} placeholder is replaced with the extracted paper text.
const defaultPrompt = `You are analyzing a past exam paper from a computer science course.
Identify the key technical concepts tested or discussed in the text below.

For each concept, report:
- name: the canonical concept name
- category: a broad area such as "Algorithms", "Data Structures", "Theory", "Systems"
- description: one sentence describing the concept
- context: a short quote or paraphrase of where it appears in the paper
- confidence: a number between 0 and 1 for how certain you are the concept is actually tested
- related_concepts: names of other concepts in this paper it connects to
- parent_concept: the name of a broader concept it belongs under, if any

Respond with JSON only, in this shape:
{"concepts": [{"name": "...", "category": "...", "description": "...", "context": "...", "confidence": 0.9, "related_concepts": ["..."], "parent_concept": "..."}]}

Paper text:
{text}`

var jsonFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")

// Processor turns extracted paper text into concept candidates. It owns the
// prompt template and the provider rate limit; parsing is deliberately
// tolerant because models wrap JSON in prose and code fences.
type Processor struct {
	client         Client
	limiter        *rate.Limiter
	prompt         string
	maxPromptChars int
	logger         *zap.Logger
}

// NewProcessor creates a Processor. promptPath may be empty to use the
// built-in template; callsPerMinute caps the request rate (0 disables the
// limit).
func NewProcessor(client Client, promptPath string, maxPromptChars, callsPerMinute int, logger *zap.Logger) (*Processor, error) {
	prompt := defaultPrompt
	if promptPath != "" {
		data, err := os.ReadFile(promptPath)
		if err != nil {
			return nil, fmt.Errorf("read prompt template: %w", err)
		}
		prompt = string(data)
		if !strings.Contains(prompt, "{text}") {
			return nil, fmt.Errorf("prompt template %s has no {text} placeholder", promptPath)
		}
	}

	var limiter *rate.Limiter
	if callsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), 1)
	}

	return &Processor{
		client:         client,
		limiter:        limiter,
		prompt:         prompt,
		maxPromptChars: maxPromptChars,
		logger:         logger,
	}, nil
}

// ExtractConcepts sends text to the model and returns the parsed candidates.
// Same-name mentions within the response are merged before returning so the
// consolidation step sees one candidate per distinct concept per paper.
func (p *Processor) ExtractConcepts(ctx context.Context, text string) ([]models.RawCandidate, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if p.maxPromptChars > 0 && len(text) > p.maxPromptChars {
		p.logger.Warn("truncating paper text for prompt",
			zap.Int("chars", len(text)),
			zap.Int("limit", p.maxPromptChars))
		text = text[:p.maxPromptChars]
	}

	response, err := p.client.Generate(ctx, strings.Replace(p.prompt, "{text}", text, 1))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	candidates, err := ParseCandidates(response)
	if err != nil {
		p.logger.Debug("unparseable model response", zap.String("response", utils.Truncate(response, 500)))
		return nil, err
	}
	return MergeByName(candidates), nil
}

// conceptEnvelope is the expected top-level response shape.
type conceptEnvelope struct {
	Concepts []models.RawCandidate `json:"concepts"`
}

// ParseCandidates extracts concept candidates from a model response.
// It tries, in order: a fenced code block, the outermost JSON object, and the
// raw text; a bare array is accepted as the concepts list.
func ParseCandidates(response string) ([]models.RawCandidate, error) {
	jsonStr := response
	if m := jsonFence.FindStringSubmatch(response); m != nil {
		jsonStr = m[1]
	} else if start := strings.Index(response, "{"); start >= 0 {
		if end := strings.LastIndex(response, "}"); end > start {
			jsonStr = response[start : end+1]
		}
	}
	jsonStr = strings.TrimSpace(jsonStr)

	var env conceptEnvelope
	if err := json.Unmarshal([]byte(jsonStr), &env); err == nil {
		return env.Concepts, nil
	}

	// Some models return the array without the envelope.
	if start := strings.Index(jsonStr, "["); start >= 0 {
		if end := strings.LastIndex(jsonStr, "]"); end > start {
			var list []models.RawCandidate
			if err := json.Unmarshal([]byte(jsonStr[start:end+1]), &list); err == nil {
				return list, nil
			}
		}
	}

	return nil, fmt.Errorf("no parseable concept JSON in response (%d chars)", len(response))
}

// MergeByName merges candidates that share a name, case-insensitively.
// The merged candidate keeps the highest confidence, concatenates distinct
// contexts, and unions related concept lists. Field order within the input is
// preserved for the first mention of each name.
func MergeByName(candidates []models.RawCandidate) []models.RawCandidate {
	byName := make(map[string]int)
	var merged []models.RawCandidate

	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		i, seen := byName[key]
		if !seen {
			byName[key] = len(merged)
			merged = append(merged, c)
			continue
		}

		prev := &merged[i]
		if coerce(c.Confidence) > coerce(prev.Confidence) {
			prev.Confidence = c.Confidence
		}
		if c.Context != "" && c.Context != prev.Context {
			if prev.Context == "" {
				prev.Context = c.Context
			} else {
				prev.Context = prev.Context + "\n\n" + c.Context
			}
		}
		prev.RelatedConcepts = unionRelated(prev.RelatedConcepts, c.RelatedConcepts)
		if prev.Category == "" {
			prev.Category = c.Category
		}
		if prev.Description == "" {
			prev.Description = c.Description
		}
		if prev.ParentConcept == "" {
			prev.ParentConcept = c.ParentConcept
		}
	}
	return merged
}

// coerce reads a confidence value that may be a number or numeric string.
// Unparseable values coerce to 0 so any real number wins the merge.
func coerce(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(t), "%g", &f); err == nil {
			return f
		}
	case int:
		return float64(t)
	}
	return 0
}

// unionRelated merges two related_concepts values, each of which may be a
// list, a single string, or absent, preserving first-seen order.
func unionRelated(a, b interface{}) interface{} {
	names := relatedNames(a)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range relatedNames(b) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	if names == nil {
		return nil
	}
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

// relatedNames flattens a related_concepts value into strings.
func relatedNames(v interface{}) []string {
	var names []string
	switch t := v.(type) {
	case []interface{}:
		for _, e := range t {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				names = append(names, s)
			}
		}
	case []string:
		for _, s := range t {
			if strings.TrimSpace(s) != "" {
				names = append(names, s)
			}
		}
	case string:
		if strings.TrimSpace(t) != "" {
			names = append(names, t)
		}
	}
	return names
}
