package llm

import (
	"context"
	"strings"

	"github.com/castpress/castpress/domain/repositories"
)

// MockLLM is a placeholder language model for local development without API
// credentials. It echoes a recognizable canned response per call shape.
type MockLLM struct{}

// NewMockLLM creates a new mock language model.
func NewMockLLM() repositories.LargeLanguageModel {
	return &MockLLM{}
}

// Complete implements repositories.LargeLanguageModel.
func (m *MockLLM) Complete(ctx context.Context, req repositories.CompletionRequest) (string, error) {
	switch {
	case strings.Contains(req.Prompt, "SEO-optimized metadata"):
		return "SEO Title: Placeholder Article Title\nMeta Description: A placeholder description.\nKeywords: music, podcast, article\nURL Slug: placeholder-article", nil
	case strings.Contains(req.Prompt, "Transform the following podcast transcript"):
		return "# Placeholder Article\n\nThis is placeholder article content generated without a configured model.", nil
	case strings.Contains(req.Prompt, "Translate"):
		return "[translated] " + req.Prompt, nil
	default:
		return "Placeholder model response.", nil
	}
}
