package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/entities"
	"github.com/castpress/castpress/domain/repositories"
)

// houseStyleGuide anchors every generation prompt so articles come out in a
// consistent editorial voice.
const houseStyleGuide = `Writing style:
- Casual, friendly, and conversational tone
- Direct address to musicians and artists ("you")
- Use of emojis strategically for visual breaks and emphasis
- Short, punchy paragraphs for easy reading
- Practical, actionable advice
- Mix of inspiration and pragmatism
- Industry insights made accessible
- Examples and real-world scenarios
- Summary sections with bullet points using emojis
- Clear structure with headers
- Focus on empowering independent artists`

const generationSystemPrompt = houseStyleGuide + `

You are a content writer for a music promotion platform. Your job is to transform podcast transcripts into engaging blog articles that help musicians grow their careers.`

// GenerateArticleRequest carries the options for one article generation.
type GenerateArticleRequest struct {
	Transcript         string
	Style              entities.ArticleStyle
	EditorialAngle     string
	CustomInstructions string
}

// GenerationService turns corrected transcripts into blog articles and
// produces the surrounding editorial artifacts (angles, SEO metadata,
// social snippets).
type GenerationService struct {
	llm    repositories.LargeLanguageModel
	model  string
	logger *zap.Logger
}

// NewGenerationService creates a generation service. model is recorded on
// produced articles for traceability.
func NewGenerationService(llm repositories.LargeLanguageModel, model string, logger *zap.Logger) *GenerationService {
	return &GenerationService{llm: llm, model: model, logger: logger}
}

// GenerateArticle produces one article from a transcript. The title is
// pulled from the article's leading H1 when present.
func (s *GenerationService) GenerateArticle(ctx context.Context, req GenerateArticleRequest) (*entities.Article, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, fmt.Errorf("transcript is empty")
	}
	style := req.Style
	if style == "" {
		style = entities.ArticleStyleLong
	}

	wordTarget := "2000-2500"
	maxTokens := 4000
	if style == entities.ArticleStyleShort {
		wordTarget = "500-800"
		maxTokens = 2000
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Transform the following podcast transcript into a compelling blog article.\n\n")
	fmt.Fprintf(&sb, "TARGET WORD COUNT: %s words\n\n", wordTarget)
	if req.EditorialAngle != "" {
		fmt.Fprintf(&sb, "EDITORIAL ANGLE: %s\n\n", req.EditorialAngle)
	}
	if req.CustomInstructions != "" {
		fmt.Fprintf(&sb, "ADDITIONAL INSTRUCTIONS: %s\n\n", req.CustomInstructions)
	}
	sb.WriteString(`REQUIREMENTS:
1. Create an engaging, SEO-friendly title as a top-level markdown header
2. Write in a casual, musician-friendly tone
3. Structure with clear headers and sections
4. Use emojis strategically for visual breaks
5. Include actionable takeaways for musicians
6. Add a compelling summary/intro section with bullet points
7. End with a strong call-to-action or bottom line
8. Make complex industry concepts accessible
9. Use "you" to directly address the reader (musicians)
10. Keep paragraphs short and punchy

PODCAST TRANSCRIPT:
`)
	sb.WriteString(req.Transcript)

	content, err := s.llm.Complete(ctx, repositories.CompletionRequest{
		System:          generationSystemPrompt,
		Prompt:          sb.String(),
		Temperature:     0.7,
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("article generation failed: %w", err)
	}

	article := entities.NewArticle(ExtractTitle(content), content, style)
	article.EditorialAngle = req.EditorialAngle
	article.Model = s.model

	s.logger.Info("Article generated",
		zap.String("articleID", article.ID),
		zap.String("style", string(style)),
		zap.Int("wordCount", article.WordCount))

	return article, nil
}

// SuggestAngles asks the model for editorial angle ideas for a transcript.
func (s *GenerationService) SuggestAngles(ctx context.Context, transcript string, count int) (string, error) {
	if count < 1 {
		count = 3
	}
	prompt := fmt.Sprintf(`Analyze this podcast transcript and suggest %d different editorial angles for blog articles.

For each angle:
1. Provide a compelling article title
2. Describe the key focus/angle
3. Explain why this would resonate with musicians
4. Suggest 3-5 main talking points

TRANSCRIPT:
%s

Return your analysis in a clear, structured format.`, count, transcript)

	return s.llm.Complete(ctx, repositories.CompletionRequest{
		Prompt:          prompt,
		Temperature:     0.8,
		MaxOutputTokens: 2000,
	})
}

// SEOMetadata generates search metadata for an article and parses it from
// the model's line-oriented response.
func (s *GenerationService) SEOMetadata(ctx context.Context, article *entities.Article) (*entities.SEOMetadata, error) {
	preview := article.Content
	if len(preview) > 1000 {
		preview = preview[:1000] + "..."
	}
	prompt := fmt.Sprintf(`Based on this blog article, generate SEO-optimized metadata:

1. SEO Title (max 60 characters, compelling and keyword-rich)
2. Meta Description (max 160 characters, engaging summary with call-to-action)
3. 5-7 relevant keywords/tags
4. Suggested URL slug

ARTICLE:
%s

Return in this exact format:
SEO Title: [title]
Meta Description: [description]
Keywords: [keyword1, keyword2, ...]
URL Slug: [slug]`, preview)

	response, err := s.llm.Complete(ctx, repositories.CompletionRequest{
		Prompt:          prompt,
		Temperature:     0.5,
		MaxOutputTokens: 500,
	})
	if err != nil {
		return nil, fmt.Errorf("seo metadata generation failed: %w", err)
	}

	return ParseSEOMetadata(response), nil
}

// SocialSnippets generates short social media posts promoting an article.
func (s *GenerationService) SocialSnippets(ctx context.Context, article *entities.Article) (string, error) {
	prompt := fmt.Sprintf(`Create social media snippets promoting this blog article:

1. A tweet (max 280 characters) with 1-2 hashtags
2. An Instagram caption (2-3 sentences, engaging, with emojis)
3. A LinkedIn post (professional but accessible, 3-4 sentences)

ARTICLE TITLE: %s

ARTICLE:
%s`, article.Title, article.Content)

	return s.llm.Complete(ctx, repositories.CompletionRequest{
		Prompt:          prompt,
		Temperature:     0.7,
		MaxOutputTokens: 1000,
	})
}

// ParseSEOMetadata pulls structured fields out of the model's "Key: value"
// response lines. Unrecognized lines are ignored.
func ParseSEOMetadata(response string) *entities.SEOMetadata {
	meta := &entities.SEOMetadata{}
	for _, line := range strings.Split(response, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "seo title", "title":
			meta.Title = value
		case "meta description", "description":
			meta.Description = value
		case "keywords":
			for _, kw := range strings.Split(value, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					meta.Keywords = append(meta.Keywords, kw)
				}
			}
		case "url slug", "slug":
			meta.Slug = value
		}
	}
	return meta
}

// ExtractTitle returns the first markdown H1 in content, or a fallback.
func ExtractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return "Untitled Article"
}
