// Package llm sends extracted paper text to a language model and parses the
// concept candidates it returns.
package llm

import "context"

// Client generates a completion for a prompt. Implementations wrap one
// provider's chat API.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
