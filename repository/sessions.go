// Package repository provides the in-memory session store. Pipeline state is
// ephemeral: everything a session owns disappears when the session expires or
// the process stops.
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/castpress/castpress/domain/entities"
	"github.com/castpress/castpress/domain/repositories"
)

// InMemorySessionRepository stores sessions keyed by ID behind a RWMutex.
type InMemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.Session
	logger   *zap.Logger
}

var _ repositories.SessionRepository = (*InMemorySessionRepository)(nil)

// NewInMemorySessionRepository creates an empty session store.
func NewInMemorySessionRepository(logger *zap.Logger) *InMemorySessionRepository {
	return &InMemorySessionRepository{
		sessions: make(map[string]*entities.Session),
		logger:   logger,
	}
}

// Create starts a new session.
func (r *InMemorySessionRepository) Create(ctx context.Context) (*entities.Session, error) {
	session := entities.NewSession()
	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	r.logger.Info("Session created", zap.String("sessionID", session.ID))
	return session, nil
}

// Get returns an active session, touching its expiry. Expired sessions are
// reported as missing.
func (r *InMemorySessionRepository) Get(ctx context.Context, id string) (*entities.Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, entities.ErrNotFound)
	}
	if session.IsExpired() {
		return nil, fmt.Errorf("session %s has expired: %w", id, entities.ErrNotFound)
	}
	session.Touch()
	return session, nil
}

// Delete terminates and removes a session.
func (r *InMemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if ok {
		session.Terminate()
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, entities.ErrNotFound)
	}
	r.logger.Info("Session deleted", zap.String("sessionID", id))
	return nil
}

// DeleteExpired drops every expired session and returns the count.
func (r *InMemorySessionRepository) DeleteExpired(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, session := range r.sessions {
		if session.IsExpired() {
			session.Expire()
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Janitor periodically removes expired sessions from a store.
type Janitor struct {
	repo     repositories.SessionRepository
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewJanitor creates a cleanup loop over the given store.
func NewJanitor(repo repositories.SessionRepository, interval time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Janitor{
		repo:     repo,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background cleanup process.
func (j *Janitor) Start() {
	go j.loop()
	j.logger.Info("Session cleanup started", zap.Duration("interval", j.interval))
}

// Stop gracefully stops the cleanup loop.
func (j *Janitor) Stop() {
	close(j.stopChan)
}

func (j *Janitor) loop() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			removed, err := j.repo.DeleteExpired(ctx)
			cancel()
			if err != nil {
				j.logger.Error("Session cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				j.logger.Info("Expired sessions removed", zap.Int("count", removed))
			}
		}
	}
}
