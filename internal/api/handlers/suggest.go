package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mlevan/watchshelf/internal/controllers"
	"github.com/mlevan/watchshelf/internal/models"
	"github.com/mlevan/watchshelf/internal/services/gemini"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
)

// SuggestHandler handles AI suggestion, lookup and autocomplete requests
type SuggestHandler struct {
	suggestCtrl *controllers.SuggestionController
	db          *models.Database
	logger      *logrus.Logger
}

// NewSuggestHandler creates a new suggestion handler
func NewSuggestHandler(suggestCtrl *controllers.SuggestionController, db *models.Database, logger *logrus.Logger) *SuggestHandler {
	return &SuggestHandler{
		suggestCtrl: suggestCtrl,
		db:          db,
		logger:      logger,
	}
}

// SuggestionsResponse carries the per-kind suggestion lists
type SuggestionsResponse struct {
	Movies []models.Suggestion `json:"movies"`
	Books  []models.Suggestion `json:"books"`
}

// Refresh fetches fresh suggestions for both kinds
func (h *SuggestHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	movies, books, err := h.suggestCtrl.Refresh(r.Context(), owner)
	if err != nil {
		h.writeAIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuggestionsResponse{
		Movies: emptyIfNil(movies),
		Books:  emptyIfNil(books),
	})
}

// Current returns the latest applied suggestions without a new AI call
func (h *SuggestHandler) Current(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, SuggestionsResponse{
		Movies: emptyIfNil(h.suggestCtrl.CurrentSuggestions(owner, models.KindMovie)),
		Books:  emptyIfNil(h.suggestCtrl.CurrentSuggestions(owner, models.KindBook)),
	})
}

// Surprise returns a fixed-size list of off-profile picks for one kind
func (h *SuggestHandler) Surprise(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	kind := models.Kind(r.URL.Query().Get("kind"))
	if !kind.IsValid() {
		http.Error(w, "kind must be movie or book", http.StatusBadRequest)
		return
	}

	suggestions, err := h.suggestCtrl.Surprise(r.Context(), owner, kind)
	if err != nil {
		h.writeAIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, emptyIfNil(suggestions))
}

// Lookup identifies a single title from a free-text query
func (h *SuggestHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "q parameter is required", http.StatusBadRequest)
		return
	}

	suggestion, err := h.suggestCtrl.Lookup(r.Context(), query)
	if err != nil {
		h.writeAIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, suggestion)
}

// typeRequest is the body for an autocomplete keystroke
type typeRequest struct {
	Query string      `json:"query"`
	Kind  models.Kind `json:"kind,omitempty"`
}

// Type feeds a keystroke into the owner's debounced autocomplete session
func (h *SuggestHandler) Type(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req typeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	h.suggestCtrl.Type(owner, req.Query, req.Kind)
	w.WriteHeader(http.StatusAccepted)
}

// Completions returns the owner's latest autocomplete candidates
func (h *SuggestHandler) Completions(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	completions := h.suggestCtrl.Completions(owner)
	if completions == nil {
		completions = []models.Completion{}
	}
	writeJSON(w, http.StatusOK, completions)
}

// Picks returns the scheduler-precomputed daily picks for the owner.
// date defaults to today.
func (h *SuggestHandler) Picks(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	picks, err := h.db.GetDailyPicks(owner, date)
	if err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			http.Error(w, "No picks for this date", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("Failed to get daily picks")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, picks)
}

// writeAIError maps AI client failures to HTTP statuses, keeping the
// "service unavailable" case distinct from plain empty results
func (h *SuggestHandler) writeAIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gemini.ErrNotConfigured), errors.Is(err, gemini.ErrRateLimited):
		http.Error(w, "AI service unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.WithError(err).Error("AI request failed")
		http.Error(w, "AI request failed", http.StatusBadGateway)
	}
}

// emptyIfNil keeps list responses as [] instead of null
func emptyIfNil(s []models.Suggestion) []models.Suggestion {
	if s == nil {
		return []models.Suggestion{}
	}
	return s
}
