package repository

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSessionRepositoryCreateAndGet(t *testing.T) {
	repo := NewInMemorySessionRepository(zap.NewNop())
	ctx := context.Background()

	session, err := repo.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != session.ID {
		t.Errorf("Get() returned session %s, want %s", got.ID, session.ID)
	}

	if _, err := repo.Get(ctx, "missing"); err == nil {
		t.Error("Get() should fail for an unknown ID")
	}
}

func TestSessionRepositoryGetRejectsExpired(t *testing.T) {
	repo := NewInMemorySessionRepository(zap.NewNop())
	ctx := context.Background()

	session, err := repo.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	session.ExpiresAt = time.Now().Add(-time.Minute)

	if _, err := repo.Get(ctx, session.ID); err == nil {
		t.Error("Get() should reject an expired session")
	}
}

func TestSessionRepositoryDelete(t *testing.T) {
	repo := NewInMemorySessionRepository(zap.NewNop())
	ctx := context.Background()

	session, err := repo.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, session.ID); err == nil {
		t.Error("Get() should fail after deletion")
	}
	if err := repo.Delete(ctx, session.ID); err == nil {
		t.Error("Delete() should fail for an already-removed session")
	}
}

func TestSessionRepositoryDeleteExpired(t *testing.T) {
	repo := NewInMemorySessionRepository(zap.NewNop())
	ctx := context.Background()

	fresh, err := repo.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	stale, err := repo.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	stale.ExpiresAt = time.Now().Add(-time.Minute)

	removed, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("DeleteExpired() removed %d sessions, want 1", removed)
	}
	if _, err := repo.Get(ctx, fresh.ID); err != nil {
		t.Errorf("Fresh session should survive cleanup: %v", err)
	}
	if _, err := repo.Get(ctx, stale.ID); err == nil {
		t.Error("Stale session should be gone after cleanup")
	}
}

func TestJanitorRemovesExpiredSessions(t *testing.T) {
	repo := NewInMemorySessionRepository(zap.NewNop())
	ctx := context.Background()

	session, err := repo.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	session.ExpiresAt = time.Now().Add(-time.Minute)

	janitor := NewJanitor(repo, 10*time.Millisecond, zap.NewNop())
	janitor.Start()
	defer janitor.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, err := repo.Get(ctx, session.ID); err != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Janitor did not remove the expired session in time")
}
