package repositories

import "context"

// CompletionRequest is a single-shot prompt against a hosted language model.
type CompletionRequest struct {
	// System sets the model's role and constraints for this call.
	System string
	// Prompt is the user-facing content to act on.
	Prompt string
	// Temperature controls sampling randomness; zero means provider default.
	Temperature float32
	// MaxOutputTokens caps the response length; zero means provider default.
	MaxOutputTokens int
}

// LargeLanguageModel abstracts any hosted text-generation provider. The
// correction, generation and translation services are all built on this one
// operation.
type LargeLanguageModel interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
