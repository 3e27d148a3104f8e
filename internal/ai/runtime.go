package ai

import "context"

// Generator is implemented by runtimes that stream completions.
type Generator interface {
	GenerateStream(ctx context.Context, prompt string) (*Stream, error)
}

var _ Generator = (*OllamaClient)(nil)
