package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mlevan/watchshelf/internal/models"
	"github.com/sirupsen/logrus"
)

// StatusHandler handles library stats requests
type StatusHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		logger: logger,
	}
}

// StatusResponse represents the stats response
type StatusResponse struct {
	TotalMedias   int            `json:"total_medias"`
	Pending       int            `json:"pending"`
	InProgress    int            `json:"in_progress"`
	Completed     int            `json:"completed"`
	Rated         int            `json:"rated"`
	MediasByKind  map[string]int `json:"medias_by_kind"`
	MediasByOwner map[string]int `json:"medias_by_owner"`
}

// ServeHTTP handles the stats endpoint. With an X-Owner-ID header the
// stats cover that owner only, otherwise the whole store.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var medias []*models.Media
	var err error

	if owner := r.Header.Get("X-Owner-ID"); owner != "" {
		medias, err = h.db.GetMediaByOwner(owner)
	} else {
		medias, err = h.db.GetAllMedias()
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get medias")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		TotalMedias:   len(medias),
		MediasByKind:  make(map[string]int),
		MediasByOwner: make(map[string]int),
	}

	for _, media := range medias {
		switch media.Status {
		case models.StatusPending:
			response.Pending++
		case models.StatusInProgress:
			response.InProgress++
		case models.StatusCompleted:
			response.Completed++
		}

		if media.Rating != nil {
			response.Rated++
		}

		response.MediasByKind[string(media.Kind)]++
		response.MediasByOwner[media.OwnerID]++
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
