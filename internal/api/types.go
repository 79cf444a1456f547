package api

import (
	"time"

	"github.com/castpress/castpress/domain/entities"
)

// ErrorResponse is the uniform error body for every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateSessionResponse returns the session token handed to the client.
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadResponse describes a stored audio asset.
type UploadResponse struct {
	AssetID  string             `json:"asset_id"`
	Filename string             `json:"filename"`
	Info     entities.AudioInfo `json:"info"`
}

// StartTranscriptionRequest starts a pipeline run over an uploaded asset.
type StartTranscriptionRequest struct {
	AssetID     string   `json:"asset_id"`
	Language    string   `json:"language,omitempty"`
	CustomTerms []string `json:"custom_terms,omitempty"`
}

// StartTranscriptionResponse acknowledges an accepted run.
type StartTranscriptionResponse struct {
	RunID string `json:"run_id"`
	State string `json:"state"`
}

// RunStatusResponse reports a run's progress and, once complete, its
// transcript.
type RunStatusResponse struct {
	Run        entities.RunSnapshot `json:"run"`
	Transcript *entities.Transcript `json:"transcript,omitempty"`
}

// CorrectionRequest asks for an LLM correction pass over transcript text.
type CorrectionRequest struct {
	RunID       string   `json:"run_id,omitempty"`
	Text        string   `json:"text,omitempty"`
	CustomTerms []string `json:"custom_terms,omitempty"`
}

// GenerateArticleRequest asks for article generation from transcript text.
type GenerateArticleRequest struct {
	RunID              string `json:"run_id,omitempty"`
	Text               string `json:"text,omitempty"`
	Style              string `json:"style,omitempty"`
	EditorialAngle     string `json:"editorial_angle,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
	WithSEO            bool   `json:"with_seo,omitempty"`
}

// SuggestAnglesRequest asks for editorial angle ideas over transcript text.
type SuggestAnglesRequest struct {
	RunID string `json:"run_id,omitempty"`
	Text  string `json:"text,omitempty"`
	Count int    `json:"count,omitempty"`
}

// SuggestionResponse carries free-form model output such as angle ideas or
// social snippets.
type SuggestionResponse struct {
	Suggestions string `json:"suggestions"`
}

// TranslateRequest asks for localized renditions of an article.
type TranslateRequest struct {
	Languages []string `json:"languages"`
	Keywords  []string `json:"keywords,omitempty"`
}

// TranslateResponse carries the per-language results.
type TranslateResponse struct {
	ArticleID    string                 `json:"article_id"`
	Translations []entities.Translation `json:"translations"`
}
