package entities

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the status of a session.
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusExpired    SessionStatus = "expired"
	SessionStatusTerminated SessionStatus = "terminated"
)

const sessionTTL = 24 * time.Hour

// ErrNotFound is returned when a session artifact lookup misses.
var ErrNotFound = errors.New("not found")

// Session owns every artifact produced for one user: uploaded assets,
// pipeline runs, articles and their translations. All state lives in memory
// for the session's lifetime and is dropped when the session ends.
type Session struct {
	mu sync.RWMutex

	ID           string
	CreatedAt    time.Time
	LastActiveAt time.Time
	ExpiresAt    time.Time
	Status       SessionStatus

	assets       map[string]*AudioAsset
	runs         map[string]*PipelineRun
	articles     map[string]*Article
	translations map[string][]Translation
}

// NewSession creates an active session with a sliding 24 hour expiry.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(sessionTTL),
		Status:       SessionStatusActive,
		assets:       make(map[string]*AudioAsset),
		runs:         make(map[string]*PipelineRun),
		articles:     make(map[string]*Article),
		translations: make(map[string][]Translation),
	}
}

// Touch updates the last-active timestamp and extends the expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
	s.ExpiresAt = s.LastActiveAt.Add(sessionTTL)
}

// IsExpired reports whether the session can no longer be used.
func (s *Session) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Now().After(s.ExpiresAt) || s.Status != SessionStatusActive
}

// Terminate marks the session as ended by the user.
func (s *Session) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = SessionStatusTerminated
}

// Expire marks the session as timed out.
func (s *Session) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = SessionStatusExpired
}

// AddAsset stores an uploaded audio asset.
func (s *Session) AddAsset(asset *AudioAsset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[asset.ID] = asset
}

// Asset retrieves an uploaded asset by ID.
func (s *Session) Asset(id string) (*AudioAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return asset, nil
}

// AddRun stores a pipeline run.
func (s *Session) AddRun(run *PipelineRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID()] = run
}

// Run retrieves a pipeline run by ID.
func (s *Session) Run(id string) (*PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return run, nil
}

// AddArticle stores a generated article.
func (s *Session) AddArticle(article *Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[article.ID] = article
}

// Article retrieves a generated article by ID.
func (s *Session) Article(id string) (*Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	article, ok := s.articles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return article, nil
}

// SetTranslations stores the translation set for an article.
func (s *Session) SetTranslations(articleID string, translations []Translation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translations[articleID] = translations
}

// Translations retrieves the translation set for an article. A missing entry
// yields an empty slice: an article with no translations is not an error.
func (s *Session) Translations(articleID string) []Translation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.translations[articleID]
}
