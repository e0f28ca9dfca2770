// Package llm wraps the text-generation service used for ranking and
// captioning. The service is non-deterministic and unreliable; callers must
// validate output shape rather than trust it.
package llm

import "context"

// Request describes one generation call.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GenerateFunc adapts a function to the Generator interface.
type GenerateFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GenerateFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
