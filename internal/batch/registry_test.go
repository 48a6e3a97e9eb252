package batch

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
)

func TestRegistryOpenGetUpdate(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(time.Hour)
	session := registry.Open(uuid.New(), enums.PageModeCreate)

	got, err := registry.Get(session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != session.ID {
		t.Fatal("get returned a different session")
	}

	listing := draft("a.jpg")
	updated, err := registry.Update(session.ID, func(s Session) Session {
		return s.Apply(ListingAdded{Listing: listing}, testNow)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(updated.Listings))
	}

	got, _ = registry.Get(session.ID)
	if len(got.Listings) != 1 {
		t.Fatal("update not visible to subsequent reads")
	}
}

func TestRegistryGetUnknownSession(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(time.Hour)
	_, err := registry.Get(uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", code)
	}
}

func TestRegistryExpiry(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(30 * time.Minute)
	current := testNow
	registry.now = func() time.Time { return current }

	session := registry.Open(uuid.New(), enums.PageModeCreate)

	current = testNow.Add(29 * time.Minute)
	if _, err := registry.Get(session.ID); err != nil {
		t.Fatalf("session expired early: %v", err)
	}

	// Activity extends the lease.
	if _, err := registry.Update(session.ID, func(s Session) Session { return s }); err != nil {
		t.Fatalf("update: %v", err)
	}
	current = testNow.Add(58 * time.Minute)
	if _, err := registry.Get(session.ID); err != nil {
		t.Fatalf("lease not extended: %v", err)
	}

	current = testNow.Add(2 * time.Hour)
	_, err := registry.Get(session.ID)
	if err == nil {
		t.Fatal("expected expired session to be gone")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", code)
	}
	if _, err := registry.Update(session.ID, func(s Session) Session { return s }); err == nil {
		t.Fatal("expected update on expired session to fail")
	}
}

func TestRegistrySweepExpired(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(time.Hour)
	current := testNow
	registry.now = func() time.Time { return current }

	stale := registry.Open(uuid.New(), enums.PageModeCreate)
	_ = registry.Open(uuid.New(), enums.PageModeEdit)

	current = testNow.Add(30 * time.Minute)
	live := registry.Open(uuid.New(), enums.PageModeCreate)

	current = testNow.Add(90 * time.Minute)
	if removed := registry.SweepExpired(); removed != 2 {
		t.Fatalf("expected 2 swept, got %d", removed)
	}
	if registry.Len() != 1 {
		t.Fatalf("expected 1 session left, got %d", registry.Len())
	}
	if _, err := registry.Get(live.ID); err != nil {
		t.Fatalf("live session swept: %v", err)
	}
	if _, err := registry.Get(stale.ID); err == nil {
		t.Fatal("stale session still readable")
	}
}

func TestRegistryDelete(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(time.Hour)
	session := registry.Open(uuid.New(), enums.PageModeCreate)
	registry.Delete(session.ID)
	if _, err := registry.Get(session.ID); err == nil {
		t.Fatal("expected deleted session to be gone")
	}
}
