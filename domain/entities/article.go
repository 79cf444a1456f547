package entities

import (
	"time"

	"github.com/google/uuid"
)

// ArticleStyle selects the target length and depth of a generated article.
type ArticleStyle string

const (
	ArticleStyleLong  ArticleStyle = "long"
	ArticleStyleShort ArticleStyle = "short"
)

// SEOMetadata holds the search metadata generated for an article.
type SEOMetadata struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Slug        string   `json:"slug,omitempty"`
}

// Article is a blog article generated from a corrected transcript.
type Article struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Content        string       `json:"content"`
	WordCount      int          `json:"word_count"`
	Style          ArticleStyle `json:"style"`
	EditorialAngle string       `json:"editorial_angle,omitempty"`
	Model          string       `json:"model,omitempty"`
	SEO            *SEOMetadata `json:"seo,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// NewArticle creates an article with a fresh identifier.
func NewArticle(title, content string, style ArticleStyle) *Article {
	return &Article{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		WordCount: countWords(content),
		Style:     style,
		CreatedAt: time.Now(),
	}
}

// Translation is one localized rendition of an article.
type Translation struct {
	LanguageCode string `json:"language_code"`
	LanguageName string `json:"language_name"`
	Content      string `json:"content"`
	SourceLang   string `json:"source_language,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Succeeded reports whether the translation produced content.
func (t Translation) Succeeded() bool {
	return t.Error == "" && t.Content != ""
}

func countWords(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			inWord = false
		default:
			if !inWord {
				count++
			}
			inWord = true
		}
	}
	return count
}
