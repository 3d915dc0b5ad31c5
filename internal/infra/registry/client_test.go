package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

func TestGetMatch(t *testing.T) {
	winner := "p1"
	record := domain.Match{
		ID:           "m1",
		ChallengerID: "p1",
		OpponentID:   "p2",
		GameType:     "capitals",
		Status:       domain.MatchCompleted,
		Scores:       map[string]int{"p1": 390, "p2": 110},
		WinnerID:     &winner,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/matches/m1":
			_ = json.NewEncoder(w).Encode(record)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")

	match, err := client.GetMatch(context.Background(), "m1")
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if match.ID != "m1" || match.Status != domain.MatchCompleted || *match.WinnerID != "p1" {
		t.Fatalf("unexpected match %+v", match)
	}

	if _, err := client.GetMatch(context.Background(), "missing"); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
