package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

func TestMatchStoreLifecycle(t *testing.T) {
	store := NewMatchStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "m1"); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}

	match := domain.Match{ID: "m1", ChallengerID: "p1", OpponentID: "p2", Status: domain.MatchPending}
	if err := store.Save(ctx, match); err != nil {
		t.Fatalf("save: %v", err)
	}

	match.Status = domain.MatchCompleted
	if err := store.Save(ctx, match); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err := store.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.MatchCompleted {
		t.Fatalf("expected updated record, got %+v", got)
	}
}
