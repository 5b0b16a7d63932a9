package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mlevan/watchshelf/internal/models"
	"github.com/sirupsen/logrus"
)

// SurpriseCount is the fixed number of items a surprise call returns
const SurpriseCount = 3

// minAutocompleteChars is the query length below which no call is made
const minAutocompleteChars = 2

// suggestionPayload mirrors the JSON shape declared by suggestionSchema
type suggestionPayload struct {
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Genres      []string `json:"genres"`
	Description string   `json:"description"`
	PosterURL   string   `json:"posterUrl"`
}

// completionPayload mirrors the JSON shape declared by completionListSchema
type completionPayload struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	Year  *int   `json:"year"`
}

// toSuggestion validates a payload and maps it into a typed record
func toSuggestion(p suggestionPayload) (*models.Suggestion, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, fmt.Errorf("missing title")
	}
	kind := models.Kind(p.Type)
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid kind %q", p.Type)
	}
	return &models.Suggestion{
		Title:       p.Title,
		Kind:        kind,
		Genres:      p.Genres,
		Description: p.Description,
		PosterURL:   p.PosterURL,
	}, nil
}

// LookupDetails asks the model to identify a single movie or book from a
// free-text query. A validation failure fails the whole call.
func (c *Client) LookupDetails(ctx context.Context, query string) (*models.Suggestion, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	prompt := fmt.Sprintf(
		"Identify the movie or book that best matches the query %q. "+
			"Return its canonical title, whether it is a movie or a book, "+
			"its main genres, a short description, and a poster image URL.",
		query)

	text, err := c.generate(ctx, prompt, suggestionSchema([]string{string(models.KindMovie), string(models.KindBook)}))
	if err != nil {
		return nil, err
	}

	var payload suggestionPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		c.logger.WithFields(logrus.Fields{
			"payload": text,
		}).Error("Failed to parse lookup result")
		return nil, fmt.Errorf("failed to parse lookup result: %w", err)
	}

	suggestion, err := toSuggestion(payload)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"payload": text,
		}).Error("Lookup result failed validation")
		return nil, fmt.Errorf("lookup result failed validation: %w", err)
	}

	return suggestion, nil
}

// Suggest asks the model for count recommendations of the given kind,
// conditioned on the owner's genres. Elements that fail validation are
// dropped individually; valid elements are still returned.
func (c *Client) Suggest(ctx context.Context, kind models.Kind, genres []string, count int) ([]models.Suggestion, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid kind %q", kind)
	}

	noun := "movies"
	if kind == models.KindBook {
		noun = "books"
	}

	var prompt string
	if len(genres) > 0 {
		prompt = fmt.Sprintf(
			"Recommend exactly %d %s for someone who enjoys these genres: %s. "+
				"For each, return the title, whether it is a movie or a book, "+
				"its genres, a short description, and a poster image URL.",
			count, noun, strings.Join(genres, ", "))
	} else {
		prompt = fmt.Sprintf(
			"Recommend exactly %d widely loved %s across a mix of genres. "+
				"For each, return the title, whether it is a movie or a book, "+
				"its genres, a short description, and a poster image URL.",
			count, noun)
	}

	return c.suggestionList(ctx, prompt, kind)
}

// Surprise asks the model for a fixed-size list of unexpected picks of
// the given kind, ignoring the owner's usual genres
func (c *Client) Surprise(ctx context.Context, kind models.Kind) ([]models.Suggestion, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid kind %q", kind)
	}

	noun := "movies"
	if kind == models.KindBook {
		noun = "books"
	}

	prompt := fmt.Sprintf(
		"Surprise me with exactly %d %s I have probably never heard of, "+
			"spanning unusual genres. For each, return the title, whether it "+
			"is a movie or a book, its genres, a short description, and a "+
			"poster image URL.",
		SurpriseCount, noun)

	return c.suggestionList(ctx, prompt, kind)
}

// suggestionList runs a list-shaped generation and validates each element
func (c *Client) suggestionList(ctx context.Context, prompt string, kind models.Kind) ([]models.Suggestion, error) {
	text, err := c.generate(ctx, prompt, suggestionListSchema([]string{string(kind)}))
	if err != nil {
		return nil, err
	}

	var payloads []suggestionPayload
	if err := json.Unmarshal([]byte(text), &payloads); err != nil {
		c.logger.WithFields(logrus.Fields{
			"payload": text,
		}).Error("Failed to parse suggestion list")
		return nil, fmt.Errorf("failed to parse suggestion list: %w", err)
	}

	suggestions := make([]models.Suggestion, 0, len(payloads))
	for _, payload := range payloads {
		suggestion, err := toSuggestion(payload)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"title":  payload.Title,
				"reason": err.Error(),
			}).Warn("Dropping invalid suggestion")
			continue
		}
		if suggestion.Kind != kind {
			c.logger.WithFields(logrus.Fields{
				"title": payload.Title,
				"kind":  payload.Type,
			}).Warn("Dropping suggestion with mismatched kind")
			continue
		}
		suggestions = append(suggestions, *suggestion)
	}

	return suggestions, nil
}

// Autocomplete asks the model for title completions of a partial query.
// Queries shorter than two characters return an empty result without a
// network call. kind may be empty to complete across both kinds.
func (c *Client) Autocomplete(ctx context.Context, query string, kind models.Kind) ([]models.Completion, error) {
	trimmed := strings.TrimSpace(query)
	if len([]rune(trimmed)) < minAutocompleteChars {
		return []models.Completion{}, nil
	}

	kinds := []string{string(models.KindMovie), string(models.KindBook)}
	scope := "movie and book"
	if kind.IsValid() {
		kinds = []string{string(kind)}
		scope = string(kind)
	}

	prompt := fmt.Sprintf(
		"List up to 5 well-known %s titles starting with or closely "+
			"matching %q. For each, return the title, whether it is a movie "+
			"or a book, and its release year.",
		scope, trimmed)

	text, err := c.generate(ctx, prompt, completionListSchema(kinds))
	if err != nil {
		return nil, err
	}

	var payloads []completionPayload
	if err := json.Unmarshal([]byte(text), &payloads); err != nil {
		c.logger.WithFields(logrus.Fields{
			"payload": text,
		}).Error("Failed to parse autocomplete list")
		return nil, fmt.Errorf("failed to parse autocomplete list: %w", err)
	}

	completions := make([]models.Completion, 0, len(payloads))
	for _, payload := range payloads {
		if strings.TrimSpace(payload.Title) == "" || !models.Kind(payload.Type).IsValid() {
			c.logger.WithFields(logrus.Fields{
				"title": payload.Title,
				"kind":  payload.Type,
			}).Warn("Dropping invalid completion")
			continue
		}
		completions = append(completions, models.Completion{
			Title: payload.Title,
			Kind:  models.Kind(payload.Type),
			Year:  payload.Year,
		})
	}

	return completions, nil
}
