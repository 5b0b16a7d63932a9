package controllers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mlevan/watchshelf/internal/models"
	"github.com/mlevan/watchshelf/internal/services/gemini"
	"github.com/mlevan/watchshelf/internal/utils"
	"github.com/sirupsen/logrus"
)

// maxPromptGenres bounds how many library genres condition a prompt
const maxPromptGenres = 5

// autocompleteTimeout bounds the background fetch started by a debounced
// keystroke
const autocompleteTimeout = 15 * time.Second

// slot holds the latest applied result for one owner/kind (or one
// autocomplete session). token guards against out-of-order resolution:
// a result is applied only while its token is still the latest issued.
type slot struct {
	token       uint64
	suggestions []models.Suggestion
	completions []models.Completion
	updatedAt   time.Time
}

// SuggestionController orchestrates AI suggestion, lookup and
// autocomplete calls, filtering results against the owner's library and
// the blocklist
type SuggestionController struct {
	db        *models.Database
	ai        *gemini.Client
	blocklist *utils.Blocklist
	logger    *logrus.Logger

	suggestionCount int
	debounceDelay   time.Duration

	mu         sync.Mutex
	slots      map[string]*slot
	debouncers map[string]*utils.Debouncer
}

// NewSuggestionController creates a new suggestion controller
func NewSuggestionController(
	db *models.Database,
	ai *gemini.Client,
	blocklist *utils.Blocklist,
	suggestionCount int,
	debounceDelay time.Duration,
	logger *logrus.Logger,
) *SuggestionController {
	return &SuggestionController{
		db:              db,
		ai:              ai,
		blocklist:       blocklist,
		logger:          logger,
		suggestionCount: suggestionCount,
		debounceDelay:   debounceDelay,
		slots:           make(map[string]*slot),
		debouncers:      make(map[string]*utils.Debouncer),
	}
}

// issueToken bumps and returns the token for a slot, creating it on
// first use
func (c *SuggestionController) issueToken(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]
	if !ok {
		s = &slot{}
		c.slots[key] = s
	}
	s.token++
	return s.token
}

// applySuggestions stores a result if its token is still current.
// Returns false when the result is stale and was discarded.
func (c *SuggestionController) applySuggestions(key string, token uint64, items []models.Suggestion) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]
	if !ok || s.token != token {
		c.logger.WithFields(logrus.Fields{
			"slot":  key,
			"token": token,
		}).Debug("Discarding stale suggestion result")
		return false
	}
	s.suggestions = items
	s.updatedAt = time.Now()
	return true
}

// applyCompletions stores an autocomplete result if its token is still
// current
func (c *SuggestionController) applyCompletions(key string, token uint64, items []models.Completion) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]
	if !ok || s.token != token {
		c.logger.WithFields(logrus.Fields{
			"slot":  key,
			"token": token,
		}).Debug("Discarding stale autocomplete result")
		return false
	}
	s.completions = items
	s.updatedAt = time.Now()
	return true
}

func suggestionSlotKey(ownerID string, kind models.Kind) string {
	return ownerID + "/" + string(kind)
}

func autocompleteSlotKey(ownerID string) string {
	return ownerID + "/autocomplete"
}

// Refresh fetches fresh suggestions for both kinds concurrently,
// conditioned on the genres the owner already tracks. Stale in-flight
// refreshes for the same owner are discarded through the slot tokens.
func (c *SuggestionController) Refresh(ctx context.Context, ownerID string) ([]models.Suggestion, []models.Suggestion, error) {
	var wg sync.WaitGroup
	results := make([][]models.Suggestion, 2)
	errs := make([]error, 2)

	for i, kind := range []models.Kind{models.KindMovie, models.KindBook} {
		wg.Add(1)
		go func(i int, kind models.Kind) {
			defer wg.Done()
			results[i], errs[i] = c.refreshKind(ctx, ownerID, kind)
		}(i, kind)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return results[0], results[1], nil
}

// refreshKind fetches suggestions for one owner/kind slot
func (c *SuggestionController) refreshKind(ctx context.Context, ownerID string, kind models.Kind) ([]models.Suggestion, error) {
	key := suggestionSlotKey(ownerID, kind)
	token := c.issueToken(key)

	genres, err := c.ownerGenres(ownerID, kind)
	if err != nil {
		return nil, err
	}

	suggestions, err := c.ai.Suggest(ctx, kind, genres, c.suggestionCount)
	if err != nil {
		return nil, err
	}

	filtered := c.filterSuggestions(ownerID, suggestions)
	if !c.applySuggestions(key, token, filtered) {
		// A newer refresh owns the slot now; return its result instead
		return c.CurrentSuggestions(ownerID, kind), nil
	}
	return filtered, nil
}

// CurrentSuggestions returns the latest applied suggestions for an
// owner/kind slot without issuing a call
func (c *SuggestionController) CurrentSuggestions(ownerID string, kind models.Kind) []models.Suggestion {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.slots[suggestionSlotKey(ownerID, kind)]; ok {
		return s.suggestions
	}
	return nil
}

// Surprise fetches a fixed-size list of off-profile picks
func (c *SuggestionController) Surprise(ctx context.Context, ownerID string, kind models.Kind) ([]models.Suggestion, error) {
	suggestions, err := c.ai.Surprise(ctx, kind)
	if err != nil {
		return nil, err
	}
	return c.filterSuggestions(ownerID, suggestions), nil
}

// Lookup identifies a single title from a free-text query
func (c *SuggestionController) Lookup(ctx context.Context, query string) (*models.Suggestion, error) {
	return c.ai.LookupDetails(ctx, query)
}

// Type feeds one keystroke of an owner's autocomplete query. The fetch
// fires only after the quiet period elapses with no further keystrokes;
// results of superseded fetches are discarded through the slot token.
func (c *SuggestionController) Type(ownerID, query string, kind models.Kind) {
	key := autocompleteSlotKey(ownerID)
	token := c.issueToken(key)

	c.mu.Lock()
	debouncer, ok := c.debouncers[key]
	if !ok {
		debouncer = utils.NewDebouncer(c.debounceDelay)
		c.debouncers[key] = debouncer
	}
	c.mu.Unlock()

	debouncer.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
		defer cancel()

		completions, err := c.ai.Autocomplete(ctx, query, kind)
		if err != nil {
			c.logger.WithError(err).Warn("Autocomplete fetch failed")
			return
		}
		c.applyCompletions(key, token, completions)
	})
}

// Completions returns the latest applied autocomplete candidates for an
// owner
func (c *SuggestionController) Completions(ownerID string) []models.Completion {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.slots[autocompleteSlotKey(ownerID)]; ok {
		return s.completions
	}
	return nil
}

// ownerGenres ranks the genres of an owner's media of one kind for
// prompt conditioning
func (c *SuggestionController) ownerGenres(ownerID string, kind models.Kind) ([]string, error) {
	medias, err := c.db.GetMediaByOwnerAndKind(ownerID, kind)
	if err != nil {
		return nil, err
	}

	genreLists := make([][]string, 0, len(medias))
	for _, media := range medias {
		genreLists = append(genreLists, media.Genres)
	}
	return utils.RankGenres(genreLists, maxPromptGenres), nil
}

// filterSuggestions drops blocked titles and titles already in the
// owner's library
func (c *SuggestionController) filterSuggestions(ownerID string, suggestions []models.Suggestion) []models.Suggestion {
	medias, err := c.db.GetMediaByOwner(ownerID)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to load library for suggestion filtering")
		medias = nil
	}

	owned := make(map[string]bool, len(medias))
	for _, media := range medias {
		owned[string(media.Kind)+"/"+strings.ToLower(media.Title)] = true
	}

	filtered := make([]models.Suggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		if blocked, term := c.blocklist.IsBlocked(suggestion.Title); blocked {
			c.logger.WithFields(logrus.Fields{
				"title": suggestion.Title,
				"term":  term,
			}).Debug("Suggestion matched blocklist")
			continue
		}
		if owned[string(suggestion.Kind)+"/"+strings.ToLower(suggestion.Title)] {
			continue
		}
		filtered = append(filtered, suggestion)
	}
	return filtered
}
