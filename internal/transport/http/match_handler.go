package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/smuotoe/GeoElevate-sub000/internal/app"
	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

// MatchHandler exposes the match registry over plain HTTP: match creation
// for lobby services and read-only lookups for result screens.
type MatchHandler struct {
	service *app.MatchService
	auth    TokenValidator
}

func NewMatchHandler(service *app.MatchService, auth TokenValidator) *MatchHandler {
	if auth == nil {
		auth = func(string) bool { return true }
	}
	return &MatchHandler{service: service, auth: auth}
}

type createMatchRequest struct {
	ChallengerID string `json:"challengerId"`
	OpponentID   string `json:"opponentId"`
	GameType     string `json:"gameType"`
	Difficulty   string `json:"difficulty"`
	Mode         string `json:"mode"`
}

func (h *MatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/matches":
		h.create(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/matches/"):
		h.get(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *MatchHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ChallengerID == "" || req.OpponentID == "" || req.GameType == "" {
		http.Error(w, "missing challengerId, opponentId, or gameType", http.StatusBadRequest)
		return
	}
	difficulty := domain.Difficulty(req.Difficulty)
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}
	mode := domain.InputMode(req.Mode)
	if mode == "" {
		mode = domain.ModeChoice
	}

	match, err := h.service.Create(r.Context(), req.ChallengerID, req.OpponentID, req.GameType, difficulty, mode)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyBatch) {
			http.Error(w, "no questions available for this configuration", http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, match)
}

func (h *MatchHandler) get(w http.ResponseWriter, r *http.Request) {
	matchID := strings.TrimPrefix(r.URL.Path, "/matches/")
	if matchID == "" || strings.Contains(matchID, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	match, err := h.service.Get(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, domain.ErrMatchNotFound) {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (h *MatchHandler) authorized(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return h.auth(token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
