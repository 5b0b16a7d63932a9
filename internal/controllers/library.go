package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mlevan/watchshelf/internal/models"
	"github.com/mlevan/watchshelf/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
)

var (
	// ErrNotCompleted is returned when rating an item that is not completed
	ErrNotCompleted = errors.New("only completed items can be rated")

	// ErrInvalidRating is returned for ratings outside the 1-5 range
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrAlreadyInLibrary is returned when adding a duplicate title
	ErrAlreadyInLibrary = errors.New("title is already in the library")
)

// LibraryController handles media CRUD and the status/rating invariants
type LibraryController struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewLibraryController creates a new library controller
func NewLibraryController(db *models.Database, logger *logrus.Logger) *LibraryController {
	return &LibraryController{
		db:     db,
		logger: logger,
	}
}

// AddMedia creates a new pending media item for an owner
func (c *LibraryController) AddMedia(ownerID string, media *models.Media) (*models.Media, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner ID is required")
	}
	if !media.Kind.IsValid() {
		return nil, fmt.Errorf("invalid kind %q", media.Kind)
	}
	if strings.TrimSpace(media.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}

	if _, err := c.db.FindMediaByTitle(ownerID, media.Kind, media.Title); err == nil {
		return nil, ErrAlreadyInLibrary
	} else if !errors.Is(err, bolthold.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for duplicates: %w", err)
	}

	media.OwnerID = ownerID
	media.Genres = utils.NormalizeGenres(media.Genres)
	media.Status = models.StatusPending
	media.Rating = nil
	media.CompletedAt = nil

	if err := c.db.CreateMedia(media); err != nil {
		return nil, fmt.Errorf("failed to create media: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"media_id": media.ID,
		"owner_id": ownerID,
		"kind":     media.Kind,
		"title":    media.Title,
	}).Info("Media added to library")

	return media, nil
}

// AddFromSuggestion converts an accepted suggestion into a library item
func (c *LibraryController) AddFromSuggestion(ownerID string, suggestion models.Suggestion) (*models.Media, error) {
	return c.AddMedia(ownerID, &models.Media{
		Kind:        suggestion.Kind,
		Title:       suggestion.Title,
		Genres:      suggestion.Genres,
		PosterURL:   suggestion.PosterURL,
		Description: suggestion.Description,
	})
}

// CycleStatus advances a media item to the next status in the cycle.
// Completing stamps CompletedAt; cycling away clears the stamp but keeps
// any rating from a previous completion.
func (c *LibraryController) CycleStatus(id uint64) (*models.Media, error) {
	media, err := c.db.GetMediaByID(id)
	if err != nil {
		return nil, err
	}

	media.Status = models.NextStatus(media.Status)
	if media.Status == models.StatusCompleted {
		now := time.Now()
		media.CompletedAt = &now
	} else {
		media.CompletedAt = nil
	}

	if err := c.db.UpdateMedia(media); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"media_id": media.ID,
		"status":   media.Status,
		"label":    media.StatusLabel(),
	}).Info("Media status cycled")

	return media, nil
}

// SetRating rates a completed media item. Ratings are integers 1-5.
func (c *LibraryController) SetRating(id uint64, rating int) (*models.Media, error) {
	if rating < models.MinRating || rating > models.MaxRating {
		return nil, ErrInvalidRating
	}

	media, err := c.db.GetMediaByID(id)
	if err != nil {
		return nil, err
	}
	if media.Status != models.StatusCompleted {
		return nil, ErrNotCompleted
	}

	media.Rating = &rating
	if err := c.db.UpdateMedia(media); err != nil {
		return nil, fmt.Errorf("failed to update rating: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"media_id": media.ID,
		"rating":   rating,
	}).Info("Media rated")

	return media, nil
}

// ClearRating removes the rating from a media item
func (c *LibraryController) ClearRating(id uint64) (*models.Media, error) {
	media, err := c.db.GetMediaByID(id)
	if err != nil {
		return nil, err
	}

	media.Rating = nil
	if err := c.db.UpdateMedia(media); err != nil {
		return nil, fmt.Errorf("failed to clear rating: %w", err)
	}

	return media, nil
}

// DeleteMedia removes a media item from the library
func (c *LibraryController) DeleteMedia(id uint64) error {
	if err := c.db.DeleteMedia(id); err != nil {
		return err
	}
	c.logger.WithField("media_id", id).Info("Media deleted")
	return nil
}

// ListByOwner returns an owner's library
func (c *LibraryController) ListByOwner(ownerID string) ([]*models.Media, error) {
	return c.db.GetMediaByOwner(ownerID)
}
