package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mlevan/watchshelf/internal/config"
	"github.com/mlevan/watchshelf/internal/models"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestClient builds a client against a test server with a recording
// sleep func instead of real delays
func newTestClient(serverURL string, maxAttempts int) (*Client, *[]time.Duration) {
	cfg := &config.Config{
		GeminiAPIKey:      "test-key",
		GeminiModel:       "gemini-test",
		GeminiBaseURL:     serverURL,
		AIMaxAttempts:     maxAttempts,
		AIRetryBaseMillis: 1000,
	}

	client := NewClient(cfg, testLogger())

	var mu sync.Mutex
	delays := &[]time.Duration{}
	client.sleep = func(d time.Duration) {
		mu.Lock()
		*delays = append(*delays, d)
		mu.Unlock()
	}

	return client, delays
}

// envelope wraps generated text in the generateContent response shape
func envelope(text string) string {
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]string{{"text": text}},
				},
			},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestRetryAfterRateLimit(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, envelope(`{"title":"Dune","type":"book","genres":["Sci-Fi"],"description":"Desert planet epic.","posterUrl":"https://picsum.photos/seed/dune/300/450"}`))
	}))
	defer server.Close()

	client, delays := newTestClient(server.URL, 3)

	suggestion, err := client.LookupDetails(context.Background(), "Dune")
	if err != nil {
		t.Fatalf("Expected retry to succeed, got error: %v", err)
	}
	if suggestion.Title != "Dune" {
		t.Errorf("Expected title Dune, got %q", suggestion.Title)
	}
	if requests != 2 {
		t.Errorf("Expected 2 requests, got %d", requests)
	}
	if len(*delays) != 1 || (*delays)[0] != time.Second {
		t.Errorf("Expected one 1s backoff delay, got %v", *delays)
	}
}

func TestRetriesExhausted(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, delays := newTestClient(server.URL, 3)

	_, err := client.LookupDetails(context.Background(), "Dune")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got: %v", err)
	}
	if requests != 3 {
		t.Errorf("Expected retry bound of 3 attempts, got %d", requests)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("Expected %d delays, got %v", len(want), *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("Delay %d: expected %v, got %v", i, d, (*delays)[i])
		}
	}
}

func TestBackoffDoublesEachRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, delays := newTestClient(server.URL, 4)

	_, err := client.LookupDetails(context.Background(), "Dune")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited, got: %v", err)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("Expected delays %v, got %v", want, *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("Delay %d: expected %v, got %v", i, d, (*delays)[i])
		}
	}
}

func TestTerminalHTTPErrorIsNotRetried(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"bad request"}`)
	}))
	defer server.Close()

	client, delays := newTestClient(server.URL, 3)

	_, err := client.LookupDetails(context.Background(), "Dune")
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Error("400 must not be treated as rate limiting")
	}
	if requests != 1 {
		t.Errorf("Expected no retries for terminal error, got %d requests", requests)
	}
	if len(*delays) != 0 {
		t.Errorf("Expected no backoff delays, got %v", *delays)
	}
}

func TestMalformedPayloadReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, envelope(`this is not json`))
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, 3)

	suggestion, err := client.LookupDetails(context.Background(), "Dune")
	if err == nil {
		t.Fatal("Expected parse error for malformed payload")
	}
	if suggestion != nil {
		t.Errorf("Expected nil suggestion, got %+v", suggestion)
	}

	suggestions, err := client.Suggest(context.Background(), models.KindMovie, nil, 5)
	if err == nil {
		t.Fatal("Expected parse error for malformed list payload")
	}
	if suggestions != nil {
		t.Errorf("Expected nil suggestions, got %+v", suggestions)
	}
}

func TestListValidationDropsInvalidElements(t *testing.T) {
	payload := `[
		{"title":"Blade Runner","type":"movie","genres":["Sci-Fi"],"description":"Replicants.","posterUrl":""},
		{"title":"","type":"movie","genres":[],"description":"Missing title."},
		{"title":"Dune","type":"book","genres":["Sci-Fi"],"description":"Wrong kind for this call."},
		{"title":"Arrival","type":"alien","genres":[],"description":"Invalid kind enum."}
	]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, envelope(payload))
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, 3)

	suggestions, err := client.Suggest(context.Background(), models.KindMovie, []string{"Sci-Fi"}, 4)
	if err != nil {
		t.Fatalf("Expected partial success, got error: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("Expected 1 valid suggestion, got %d", len(suggestions))
	}
	if suggestions[0].Title != "Blade Runner" {
		t.Errorf("Expected Blade Runner to survive validation, got %q", suggestions[0].Title)
	}
}

func TestLookupMapsKindToBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, envelope(`{"title":"Dune","type":"book","genres":["Sci-Fi"],"description":"Desert planet epic.","posterUrl":"https://picsum.photos/seed/dune/300/450"}`))
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, 3)

	suggestion, err := client.LookupDetails(context.Background(), "Dune")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if suggestion.Kind != models.KindBook {
		t.Errorf("Expected book kind, got %q", suggestion.Kind)
	}
	if suggestion.PosterURL != "https://picsum.photos/seed/dune/300/450" {
		t.Errorf("Poster URL mismatch: %q", suggestion.PosterURL)
	}
	if len(suggestion.Genres) != 1 || suggestion.Genres[0] != "Sci-Fi" {
		t.Errorf("Genres mismatch: %v", suggestion.Genres)
	}
}

func TestAutocompleteShortQuerySkipsNetwork(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		io.WriteString(w, envelope(`[]`))
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, 3)

	for _, query := range []string{"", " ", "d", " d "} {
		completions, err := client.Autocomplete(context.Background(), query, models.KindMovie)
		if err != nil {
			t.Fatalf("Query %q: unexpected error: %v", query, err)
		}
		if len(completions) != 0 {
			t.Errorf("Query %q: expected empty result, got %v", query, completions)
		}
	}
	if requests != 0 {
		t.Errorf("Expected no network calls for short queries, got %d", requests)
	}
}

func TestAutocompleteDropsInvalidCandidates(t *testing.T) {
	payload := `[
		{"title":"Dune","type":"book","year":1965},
		{"title":"","type":"book"},
		{"title":"Dune: Part Two","type":"hologram"}
	]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, envelope(payload))
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, 3)

	completions, err := client.Autocomplete(context.Background(), "du", models.KindBook)
	if err != nil {
		t.Fatalf("Autocomplete failed: %v", err)
	}
	if len(completions) != 1 {
		t.Fatalf("Expected 1 valid completion, got %d", len(completions))
	}
	if completions[0].Year == nil || *completions[0].Year != 1965 {
		t.Errorf("Expected year 1965, got %v", completions[0].Year)
	}
}

func TestMissingCredentialDisablesCalls(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	cfg := &config.Config{
		GeminiModel:       "gemini-test",
		GeminiBaseURL:     server.URL,
		AIMaxAttempts:     3,
		AIRetryBaseMillis: 1000,
	}
	client := NewClient(cfg, testLogger())

	if client.Enabled() {
		t.Fatal("Client without API key must report disabled")
	}

	_, err := client.LookupDetails(context.Background(), "Dune")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Expected ErrNotConfigured, got: %v", err)
	}

	_, err = client.Suggest(context.Background(), models.KindMovie, nil, 5)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Expected ErrNotConfigured, got: %v", err)
	}

	if requests != 0 {
		t.Errorf("Expected no network I/O without credential, got %d requests", requests)
	}
}

func TestSurpriseRequestsFixedCount(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		io.WriteString(w, envelope(`[
			{"title":"Stalker","type":"movie","genres":["Sci-Fi"],"description":"The Zone."},
			{"title":"Holy Mountain","type":"movie","genres":["Surreal"],"description":"Ascent."},
			{"title":"Paprika","type":"movie","genres":["Animation"],"description":"Dreams."}
		]`))
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, 3)

	suggestions, err := client.Surprise(context.Background(), models.KindMovie)
	if err != nil {
		t.Fatalf("Surprise failed: %v", err)
	}
	if len(suggestions) != SurpriseCount {
		t.Errorf("Expected %d surprise picks, got %d", SurpriseCount, len(suggestions))
	}
	if gotPrompt == "" {
		t.Error("Expected prompt text in request body")
	}
}
