package handlers

import (
	"net/http"
	"time"

	"github.com/mlevan/watchshelf/internal/models"
	"github.com/sirupsen/logrus"
)

// watchTimeout is how long a long-poll request waits for a change
// before returning 204
const watchTimeout = 30 * time.Second

// WatchHandler long-polls media change events for an owner
type WatchHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewWatchHandler creates a new watch handler
func NewWatchHandler(db *models.Database, logger *logrus.Logger) *WatchHandler {
	return &WatchHandler{
		db:     db,
		logger: logger,
	}
}

// ServeHTTP blocks until the owner's library changes, the timeout
// elapses (204) or the client goes away
func (h *WatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	id, events := h.db.Subscribe(owner)
	defer h.db.Unsubscribe(id)

	timer := time.NewTimer(watchTimeout)
	defer timer.Stop()

	select {
	case event, open := <-events:
		if !open {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, event)
	case <-timer.C:
		w.WriteHeader(http.StatusNoContent)
	case <-r.Context().Done():
		// Client went away
	}
}
