package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/entities"
	"github.com/castpress/castpress/domain/repositories"
)

// DefaultMaxTranslationWorkers bounds the per-article translation fan-out.
const DefaultMaxTranslationWorkers = 3

// SupportedLanguages maps ISO 639-1 codes to display names for the
// translation targets the pipeline offers.
var SupportedLanguages = map[string]string{
	"en": "English",
	"fr": "French",
	"es": "Spanish",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese (Simplified)",
}

var detectorLanguages = []lingua.Language{
	lingua.English, lingua.French, lingua.Spanish, lingua.German,
	lingua.Italian, lingua.Portuguese, lingua.Dutch, lingua.Japanese,
	lingua.Korean, lingua.Chinese,
}

const translationSystemPromptFmt = `You are an expert translator specializing in music industry content.
Translate the following content to %s, maintaining:
1. The original tone and style (casual, musician-friendly)
2. Cultural appropriateness and context
3. Industry-specific terminology
4. SEO optimization
5. Markdown formatting (headers, lists, emphasis)

IMPORTANT RULES:
- Preserve emojis exactly as they are
- Maintain markdown formatting (# ## ### * ** etc.)
- Keep technical terms and product names in their original form when appropriate
- Adapt idioms and cultural references to make sense in the target language
- Preserve URLs and links exactly
- Keep the same structure and flow`

// TranslationService localizes generated articles, fanning out one model
// call per target language under its own concurrency bound.
type TranslationService struct {
	llm        repositories.LargeLanguageModel
	detector   lingua.LanguageDetector
	maxWorkers int
	logger     *zap.Logger
}

// NewTranslationService creates a translation service. maxWorkers values
// below one fall back to the default bound.
func NewTranslationService(llm repositories.LargeLanguageModel, maxWorkers int, logger *zap.Logger) *TranslationService {
	if maxWorkers < 1 {
		maxWorkers = DefaultMaxTranslationWorkers
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(detectorLanguages...).
		Build()
	return &TranslationService{
		llm:        llm,
		detector:   detector,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// DetectLanguage returns the ISO 639-1 code of the text's language, or
// "unknown" when detection is inconclusive.
func (s *TranslationService) DetectLanguage(text string) string {
	lang, ok := s.detector.DetectLanguageOf(text)
	if !ok {
		return "unknown"
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// Translate localizes content into one target language, preserving the
// given SEO keywords.
func (s *TranslationService) Translate(ctx context.Context, content, targetLang string, keywords []string) (entities.Translation, error) {
	langName, ok := SupportedLanguages[targetLang]
	if !ok {
		return entities.Translation{LanguageCode: targetLang},
			fmt.Errorf("unsupported target language %q", targetLang)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Translate this music industry article to %s.\n\n", langName)
	if len(keywords) > 0 {
		fmt.Fprintf(&sb, "SEO KEYWORDS TO PRESERVE: %s\n\n", strings.Join(keywords, ", "))
	}
	fmt.Fprintf(&sb, "CONTENT TO TRANSLATE:\n%s\n\nProvide ONLY the translated content, maintaining all formatting.", content)

	translated, err := s.llm.Complete(ctx, repositories.CompletionRequest{
		System:          fmt.Sprintf(translationSystemPromptFmt, langName),
		Prompt:          sb.String(),
		Temperature:     0.3,
		MaxOutputTokens: 8000,
	})
	if err != nil {
		return entities.Translation{
			LanguageCode: targetLang,
			LanguageName: langName,
			Error:        err.Error(),
		}, err
	}

	return entities.Translation{
		LanguageCode: targetLang,
		LanguageName: langName,
		Content:      translated,
		SourceLang:   s.DetectLanguage(content),
	}, nil
}

// TranslateParallel localizes content into every target language
// concurrently, bounded by the worker limit. Per-language failures are
// recorded on their own result and never abort the batch. Results come back
// sorted by language code regardless of completion order.
func (s *TranslationService) TranslateParallel(ctx context.Context, content string, targetLangs []string, keywords []string) []entities.Translation {
	results := make([]entities.Translation, len(targetLangs))
	sem := make(chan struct{}, s.maxWorkers)

	var wg sync.WaitGroup
	for i, lang := range targetLangs {
		wg.Add(1)
		go func(slot int, lang string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[slot] = entities.Translation{LanguageCode: lang, Error: ctx.Err().Error()}
				return
			}

			translation, err := s.Translate(ctx, content, lang, keywords)
			if err != nil {
				s.logger.Warn("Translation failed",
					zap.String("language", lang),
					zap.Error(err))
			}
			results[slot] = translation
		}(i, lang)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].LanguageCode < results[j].LanguageCode
	})
	return results
}

// TranslateSEOMetadata localizes search metadata while keeping it within
// search-engine display limits.
func (s *TranslationService) TranslateSEOMetadata(ctx context.Context, meta *entities.SEOMetadata, targetLang string) (*entities.SEOMetadata, error) {
	langName, ok := SupportedLanguages[targetLang]
	if !ok {
		return nil, fmt.Errorf("unsupported target language %q", targetLang)
	}

	prompt := fmt.Sprintf(`Translate these SEO elements to %s, maintaining:
- Character limits (title: 60 chars, description: 160 chars)
- SEO optimization and keyword relevance
- Call-to-action appeal

TITLE: %s
META DESCRIPTION: %s
KEYWORDS: %s

Provide translations in this format:
Title: [translated title]
Description: [translated description]
Keywords: [translated keywords, comma-separated]`,
		langName, meta.Title, meta.Description, strings.Join(meta.Keywords, ", "))

	response, err := s.llm.Complete(ctx, repositories.CompletionRequest{
		Prompt:          prompt,
		Temperature:     0.3,
		MaxOutputTokens: 500,
	})
	if err != nil {
		return nil, fmt.Errorf("seo metadata translation failed: %w", err)
	}

	translated := ParseSEOMetadata(response)
	translated.Slug = meta.Slug
	return translated, nil
}
