package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlevan/watchshelf/internal/controllers"
	"github.com/mlevan/watchshelf/internal/models"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// testMux wires the library routes the way the server does
func testMux(t *testing.T) (*http.ServeMux, *models.Database) {
	t.Helper()

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	handler := NewLibraryHandler(controllers.NewLibraryController(db, testLogger()), testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/media", handler.List)
	mux.HandleFunc("POST /api/media", handler.Create)
	mux.HandleFunc("DELETE /api/media/{id}", handler.Delete)
	mux.HandleFunc("POST /api/media/{id}/status", handler.CycleStatus)
	mux.HandleFunc("PUT /api/media/{id}/rating", handler.SetRating)
	mux.HandleFunc("DELETE /api/media/{id}/rating", handler.ClearRating)
	mux.HandleFunc("POST /api/media/accept", handler.AcceptSuggestion)

	return mux, db
}

func doRequest(mux *http.ServeMux, method, path, owner, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestMediaLifecycle(t *testing.T) {
	mux, _ := testMux(t)

	// Create
	rec := doRequest(mux, http.MethodPost, "/api/media", "alice",
		`{"kind":"movie","title":"Alien","genres":["horror","scifi"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created models.Media
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode create response: %v", err)
	}
	if created.Status != models.StatusPending {
		t.Errorf("Expected pending status, got %q", created.Status)
	}

	// List is owner-scoped
	rec = doRequest(mux, http.MethodGet, "/api/media", "bob", "")
	var bobMedias []models.Media
	json.Unmarshal(rec.Body.Bytes(), &bobMedias)
	if len(bobMedias) != 0 {
		t.Errorf("Expected empty library for bob, got %d items", len(bobMedias))
	}

	rec = doRequest(mux, http.MethodGet, "/api/media", "alice", "")
	var aliceMedias []models.Media
	json.Unmarshal(rec.Body.Bytes(), &aliceMedias)
	if len(aliceMedias) != 1 {
		t.Fatalf("Expected 1 item for alice, got %d", len(aliceMedias))
	}

	// Rating a pending item is rejected
	rec = doRequest(mux, http.MethodPut, fmt.Sprintf("/api/media/%d/rating", created.ID), "alice", `{"rating":5}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 rating a pending item, got %d", rec.Code)
	}

	// Cycle to completed, then rate
	doRequest(mux, http.MethodPost, fmt.Sprintf("/api/media/%d/status", created.ID), "alice", "")
	rec = doRequest(mux, http.MethodPost, fmt.Sprintf("/api/media/%d/status", created.ID), "alice", "")
	var completed models.Media
	json.Unmarshal(rec.Body.Bytes(), &completed)
	if completed.Status != models.StatusCompleted {
		t.Fatalf("Expected completed after two cycles, got %q", completed.Status)
	}

	rec = doRequest(mux, http.MethodPut, fmt.Sprintf("/api/media/%d/rating", created.ID), "alice", `{"rating":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("SetRating: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rated models.Media
	json.Unmarshal(rec.Body.Bytes(), &rated)
	if rated.Rating == nil || *rated.Rating != 5 {
		t.Errorf("Expected rating 5, got %v", rated.Rating)
	}

	// Clear rating
	rec = doRequest(mux, http.MethodDelete, fmt.Sprintf("/api/media/%d/rating", created.ID), "alice", "")
	var cleared models.Media
	json.Unmarshal(rec.Body.Bytes(), &cleared)
	if cleared.Rating != nil {
		t.Errorf("Expected rating cleared, got %v", cleared.Rating)
	}

	// Delete
	rec = doRequest(mux, http.MethodDelete, fmt.Sprintf("/api/media/%d", created.ID), "alice", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("Delete: expected 204, got %d", rec.Code)
	}
	rec = doRequest(mux, http.MethodDelete, fmt.Sprintf("/api/media/%d", created.ID), "alice", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Deleting twice: expected 404, got %d", rec.Code)
	}
}

func TestOwnerHeaderRequired(t *testing.T) {
	mux, _ := testMux(t)

	rec := doRequest(mux, http.MethodGet, "/api/media", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without owner header, got %d", rec.Code)
	}
}

func TestAcceptSuggestion(t *testing.T) {
	mux, _ := testMux(t)

	rec := doRequest(mux, http.MethodPost, "/api/media/accept", "alice",
		`{"title":"Solaris","kind":"movie","genres":["Sci-Fi"],"description":"An ocean that thinks.","poster_url":"https://example.com/solaris.jpg"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Accept: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var media models.Media
	json.Unmarshal(rec.Body.Bytes(), &media)
	if media.Title != "Solaris" || media.PosterURL == "" {
		t.Errorf("Expected suggestion fields carried into media: %+v", media)
	}

	// Accepting the same suggestion again is a duplicate
	rec = doRequest(mux, http.MethodPost, "/api/media/accept", "alice",
		`{"title":"solaris","kind":"movie"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for duplicate accept, got %d", rec.Code)
	}
}
