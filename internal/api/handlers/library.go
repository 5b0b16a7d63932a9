package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mlevan/watchshelf/internal/controllers"
	"github.com/mlevan/watchshelf/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
)

// LibraryHandler handles media CRUD requests
type LibraryHandler struct {
	libraryCtrl *controllers.LibraryController
	logger      *logrus.Logger
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(libraryCtrl *controllers.LibraryController, logger *logrus.Logger) *LibraryHandler {
	return &LibraryHandler{
		libraryCtrl: libraryCtrl,
		logger:      logger,
	}
}

// List returns the owner's library
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	medias, err := h.libraryCtrl.ListByOwner(owner)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list media")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if medias == nil {
		medias = []*models.Media{}
	}

	writeJSON(w, http.StatusOK, medias)
}

// Create adds a media item to the owner's library
func (h *LibraryHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var media models.Media
	if err := json.NewDecoder(r.Body).Decode(&media); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	created, err := h.libraryCtrl.AddMedia(owner, &media)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// AcceptSuggestion converts an AI suggestion into a library item
func (h *LibraryHandler) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var suggestion models.Suggestion
	if err := json.NewDecoder(r.Body).Decode(&suggestion); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	created, err := h.libraryCtrl.AddFromSuggestion(owner, suggestion)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Delete removes a media item
func (h *LibraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.libraryCtrl.DeleteMedia(id); err != nil {
		h.writeLibraryError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CycleStatus advances the item's status in the cycle
func (h *LibraryHandler) CycleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	media, err := h.libraryCtrl.CycleStatus(id)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, media)
}

// ratingRequest is the body for SetRating
type ratingRequest struct {
	Rating int `json:"rating"`
}

// SetRating rates a completed item
func (h *LibraryHandler) SetRating(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	media, err := h.libraryCtrl.SetRating(id, req.Rating)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, media)
}

// ClearRating removes the item's rating
func (h *LibraryHandler) ClearRating(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	media, err := h.libraryCtrl.ClearRating(id)
	if err != nil {
		h.writeLibraryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, media)
}

// writeLibraryError maps controller errors to HTTP statuses
func (h *LibraryHandler) writeLibraryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bolthold.ErrNotFound):
		http.Error(w, "Media not found", http.StatusNotFound)
	case errors.Is(err, controllers.ErrNotCompleted),
		errors.Is(err, controllers.ErrInvalidRating),
		errors.Is(err, controllers.ErrAlreadyInLibrary):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.WithError(err).Error("Library operation failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Shared helpers

// requireOwner extracts the owner identity from the X-Owner-ID header
func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get("X-Owner-ID")
	if owner == "" {
		http.Error(w, "X-Owner-ID header is required", http.StatusBadRequest)
		return "", false
	}
	return owner, true
}

// pathID parses the {id} path segment
func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
