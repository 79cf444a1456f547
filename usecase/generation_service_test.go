package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/entities"
)

const sampleArticle = `# How Independent Artists Win on Streaming

Intro paragraph about streaming.

## Takeaways

- Build your profile
- Pitch curators early`

func TestGenerateArticleLongForm(t *testing.T) {
	llm := &scriptedLLM{response: sampleArticle}
	service := NewGenerationService(llm, "gemini-2.0-flash", zap.NewNop())

	article, err := service.GenerateArticle(context.Background(), GenerateArticleRequest{
		Transcript:     "podcast transcript text",
		EditorialAngle: "streaming strategy",
	})
	if err != nil {
		t.Fatalf("GenerateArticle() error = %v", err)
	}

	if article.Title != "How Independent Artists Win on Streaming" {
		t.Errorf("Title = %q, want the leading H1", article.Title)
	}
	if article.Style != entities.ArticleStyleLong {
		t.Errorf("Style = %s, want %s (default)", article.Style, entities.ArticleStyleLong)
	}
	if article.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q, want the configured model", article.Model)
	}
	if article.WordCount == 0 {
		t.Error("WordCount should be computed from content")
	}

	req := llm.lastRequest()
	if !strings.Contains(req.Prompt, "2000-2500 words") {
		t.Errorf("Long-form prompt should target 2000-2500 words: %q", req.Prompt)
	}
	if !strings.Contains(req.Prompt, "streaming strategy") {
		t.Error("Prompt should carry the editorial angle")
	}
	if req.MaxOutputTokens != 4000 {
		t.Errorf("MaxOutputTokens = %d, want 4000", req.MaxOutputTokens)
	}
}

func TestGenerateArticleShortForm(t *testing.T) {
	llm := &scriptedLLM{response: sampleArticle}
	service := NewGenerationService(llm, "gemini-2.0-flash", zap.NewNop())

	article, err := service.GenerateArticle(context.Background(), GenerateArticleRequest{
		Transcript: "podcast transcript text",
		Style:      entities.ArticleStyleShort,
	})
	if err != nil {
		t.Fatalf("GenerateArticle() error = %v", err)
	}
	if article.Style != entities.ArticleStyleShort {
		t.Errorf("Style = %s, want %s", article.Style, entities.ArticleStyleShort)
	}

	req := llm.lastRequest()
	if !strings.Contains(req.Prompt, "500-800 words") {
		t.Errorf("Short-form prompt should target 500-800 words: %q", req.Prompt)
	}
	if req.MaxOutputTokens != 2000 {
		t.Errorf("MaxOutputTokens = %d, want 2000", req.MaxOutputTokens)
	}
}

func TestGenerateArticleRejectsEmptyTranscript(t *testing.T) {
	service := NewGenerationService(&scriptedLLM{}, "m", zap.NewNop())

	if _, err := service.GenerateArticle(context.Background(), GenerateArticleRequest{Transcript: "   "}); err == nil {
		t.Error("GenerateArticle() should reject an empty transcript")
	}
}

func TestGenerateArticlePropagatesModelFailure(t *testing.T) {
	service := NewGenerationService(&scriptedLLM{err: errors.New("quota exceeded")}, "m", zap.NewNop())

	if _, err := service.GenerateArticle(context.Background(), GenerateArticleRequest{Transcript: "text"}); err == nil {
		t.Error("GenerateArticle() should surface model failures")
	}
}

func TestParseSEOMetadata(t *testing.T) {
	response := `SEO Title: Win on Streaming in 2026
Meta Description: Learn how to grow. Start today!
Keywords: streaming, playlists, indie artists
URL Slug: win-on-streaming
Some trailing commentary line`

	meta := ParseSEOMetadata(response)

	if meta.Title != "Win on Streaming in 2026" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.Description != "Learn how to grow. Start today!" {
		t.Errorf("Description = %q", meta.Description)
	}
	if len(meta.Keywords) != 3 || meta.Keywords[0] != "streaming" || meta.Keywords[2] != "indie artists" {
		t.Errorf("Keywords = %v", meta.Keywords)
	}
	if meta.Slug != "win-on-streaming" {
		t.Errorf("Slug = %q", meta.Slug)
	}
}

func TestParseSEOMetadataIgnoresUnknownLines(t *testing.T) {
	meta := ParseSEOMetadata("no structured content here\n\njust prose")
	if meta.Title != "" || meta.Description != "" || len(meta.Keywords) != 0 {
		t.Errorf("Expected empty metadata, got %+v", meta)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "leading H1",
			content: "# My Title\n\nBody",
			want:    "My Title",
		},
		{
			name:    "H1 after preamble",
			content: "intro line\n# Later Title\nBody",
			want:    "Later Title",
		},
		{
			name:    "no H1",
			content: "## Only a subheading\nBody",
			want:    "Untitled Article",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.content); got != tt.want {
				t.Errorf("ExtractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSEOMetadataUsesArticlePreview(t *testing.T) {
	llm := &scriptedLLM{response: "SEO Title: Short\nMeta Description: Desc\nKeywords: a, b\nURL Slug: short"}
	service := NewGenerationService(llm, "m", zap.NewNop())

	article := entities.NewArticle("Title", strings.Repeat("x", 5000), entities.ArticleStyleLong)
	meta, err := service.SEOMetadata(context.Background(), article)
	if err != nil {
		t.Fatalf("SEOMetadata() error = %v", err)
	}
	if meta.Title != "Short" {
		t.Errorf("Title = %q", meta.Title)
	}

	req := llm.lastRequest()
	if len(req.Prompt) > 2000 {
		t.Errorf("Prompt length %d suggests the article was not truncated to a preview", len(req.Prompt))
	}
}
