package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/castpress/castpress/domain/entities"
)

// ExportFormat selects the output serialization for an article bundle.
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatHTML     ExportFormat = "html"
	ExportFormatText     ExportFormat = "text"
	ExportFormatJSON     ExportFormat = "json"
)

// Document is one exported rendition of an article, ready to download.
type Document struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

const htmlPageStyle = `<style>
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
    line-height: 1.6;
    color: #333;
    max-width: 800px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { color: #2c3e50; border-bottom: 3px solid #3498db; padding-bottom: 10px; }
  h2 { color: #34495e; margin-top: 30px; }
  h3 { color: #7f8c8d; }
  p { margin-bottom: 15px; }
  blockquote { border-left: 4px solid #3498db; margin-left: 0; padding-left: 20px; color: #555; }
  ul, ol { margin-bottom: 15px; }
</style>`

var (
	mdHeading   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdEmphasis  = regexp.MustCompile(`(\*\*|__|\*|_)([^*_]+)(\*\*|__|\*|_)`)
	mdLink      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdListItem  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)
)

// ExportService converts generated articles into downloadable documents.
type ExportService struct {
	markdown goldmark.Markdown
}

// NewExportService creates an export service with GFM-flavored rendering.
func NewExportService() *ExportService {
	return &ExportService{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Export renders the article (plus any translations, for the JSON bundle)
// into the requested format.
func (s *ExportService) Export(article *entities.Article, translations []entities.Translation, format ExportFormat) (*Document, error) {
	switch format {
	case ExportFormatMarkdown:
		return s.exportMarkdown(article)
	case ExportFormatHTML:
		return s.exportHTML(article)
	case ExportFormatText:
		return s.exportText(article)
	case ExportFormatJSON:
		return s.exportJSON(article, translations)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func (s *ExportService) exportMarkdown(article *entities.Article) (*Document, error) {
	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %q\n", article.Title)
	fmt.Fprintf(&sb, "date: %s\n", article.CreatedAt.Format("2006-01-02"))
	if article.SEO != nil {
		if article.SEO.Description != "" {
			fmt.Fprintf(&sb, "description: %q\n", article.SEO.Description)
		}
		if len(article.SEO.Keywords) > 0 {
			fmt.Fprintf(&sb, "keywords: [%s]\n", strings.Join(article.SEO.Keywords, ", "))
		}
		if article.SEO.Slug != "" {
			fmt.Fprintf(&sb, "slug: %s\n", article.SEO.Slug)
		}
	}
	sb.WriteString("---\n\n")
	sb.WriteString(article.Content)
	sb.WriteString("\n")

	return &Document{
		Filename:    Slugify(article.Title) + ".md",
		ContentType: "text/markdown; charset=utf-8",
		Data:        []byte(sb.String()),
	}, nil
}

func (s *ExportService) exportHTML(article *entities.Article) (*Document, error) {
	var body bytes.Buffer
	if err := s.markdown.Convert([]byte(article.Content), &body); err != nil {
		return nil, fmt.Errorf("markdown conversion failed: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", article.Title)
	if article.SEO != nil && article.SEO.Description != "" {
		fmt.Fprintf(&sb, "<meta name=\"description\" content=%q>\n", article.SEO.Description)
	}
	sb.WriteString(htmlPageStyle)
	sb.WriteString("\n</head>\n<body>\n")
	sb.Write(body.Bytes())
	sb.WriteString("</body>\n</html>\n")

	return &Document{
		Filename:    Slugify(article.Title) + ".html",
		ContentType: "text/html; charset=utf-8",
		Data:        []byte(sb.String()),
	}, nil
}

func (s *ExportService) exportText(article *entities.Article) (*Document, error) {
	return &Document{
		Filename:    Slugify(article.Title) + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(StripMarkdown(article.Content)),
	}, nil
}

func (s *ExportService) exportJSON(article *entities.Article, translations []entities.Translation) (*Document, error) {
	bundle := struct {
		Article      *entities.Article      `json:"article"`
		Translations []entities.Translation `json:"translations,omitempty"`
		ExportedAt   time.Time              `json:"exported_at"`
	}{
		Article:      article,
		Translations: translations,
		ExportedAt:   time.Now(),
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json export failed: %w", err)
	}
	return &Document{
		Filename:    Slugify(article.Title) + ".json",
		ContentType: "application/json",
		Data:        data,
	}, nil
}

// StripMarkdown reduces markdown content to plain text suitable for a .txt
// export. Formatting markers are removed; structure is kept as line breaks.
func StripMarkdown(content string) string {
	out := mdHeading.ReplaceAllString(content, "")
	out = mdEmphasis.ReplaceAllString(out, "$2")
	out = mdLink.ReplaceAllString(out, "$1")
	out = mdListItem.ReplaceAllString(out, "- ")
	return strings.TrimSpace(out) + "\n"
}

// Slugify converts a title into a filesystem- and URL-safe slug.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugInvalid.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "article"
	}
	return slug
}
