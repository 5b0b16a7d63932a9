package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
	hub   *watchHub
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{
		store: store,
		hub:   newWatchHub(),
	}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	db.hub.closeAll()
	return db.store.Close()
}

// Media operations

// CreateMedia creates a new media item in the database
func (db *Database) CreateMedia(media *Media) error {
	media.CreatedAt = time.Now()
	media.UpdatedAt = time.Now()
	if err := db.store.Insert(bolthold.NextSequence(), media); err != nil {
		return err
	}
	db.hub.publish(MediaEvent{Type: EventCreated, Media: media})
	return nil
}

// UpdateMedia updates an existing media item
func (db *Database) UpdateMedia(media *Media) error {
	media.UpdatedAt = time.Now()
	if err := db.store.Update(media.ID, media); err != nil {
		return err
	}
	db.hub.publish(MediaEvent{Type: EventUpdated, Media: media})
	return nil
}

// GetMediaByID retrieves a media item by ID
func (db *Database) GetMediaByID(id uint64) (*Media, error) {
	var media Media
	err := db.store.Get(id, &media)
	if err != nil {
		return nil, err
	}
	return &media, nil
}

// GetMediaByOwner retrieves all media items belonging to an owner
func (db *Database) GetMediaByOwner(ownerID string) ([]*Media, error) {
	var medias []*Media
	err := db.store.Find(&medias, bolthold.Where("OwnerID").Eq(ownerID))
	return medias, err
}

// GetMediaByOwnerAndKind retrieves an owner's media items of one kind
func (db *Database) GetMediaByOwnerAndKind(ownerID string, kind Kind) ([]*Media, error) {
	var medias []*Media
	err := db.store.Find(&medias,
		bolthold.Where("OwnerID").Eq(ownerID).
			And("Kind").Eq(kind))
	return medias, err
}

// FindMediaByTitle looks up an owner's media item by kind and title
// (case-insensitive). Used to avoid duplicate entries when accepting
// a suggestion.
func (db *Database) FindMediaByTitle(ownerID string, kind Kind, title string) (*Media, error) {
	medias, err := db.GetMediaByOwnerAndKind(ownerID, kind)
	if err != nil {
		return nil, err
	}
	for _, media := range medias {
		if strings.EqualFold(media.Title, title) {
			return media, nil
		}
	}
	return nil, bolthold.ErrNotFound
}

// GetAllMedias retrieves all media items
func (db *Database) GetAllMedias() ([]*Media, error) {
	var medias []*Media
	err := db.store.Find(&medias, nil)
	return medias, err
}

// Owners returns the distinct owner IDs present in the library
func (db *Database) Owners() ([]string, error) {
	medias, err := db.GetAllMedias()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var owners []string
	for _, media := range medias {
		if !seen[media.OwnerID] {
			seen[media.OwnerID] = true
			owners = append(owners, media.OwnerID)
		}
	}
	return owners, nil
}

// DeleteMedia deletes a media item by ID
func (db *Database) DeleteMedia(id uint64) error {
	media, err := db.GetMediaByID(id)
	if err != nil {
		return err
	}
	if err := db.store.Delete(id, &Media{}); err != nil {
		return err
	}
	db.hub.publish(MediaEvent{Type: EventDeleted, Media: media})
	return nil
}

// DailyPicks operations

// SaveDailyPicks stores the picks for an owner and date, replacing any
// existing record for the same owner/date
func (db *Database) SaveDailyPicks(picks *DailyPicks) error {
	err := db.store.DeleteMatching(&DailyPicks{},
		bolthold.Where("OwnerID").Eq(picks.OwnerID).
			And("Date").Eq(picks.Date))
	if err != nil {
		return err
	}

	picks.CreatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), picks)
}

// GetDailyPicks retrieves the picks for an owner and date
func (db *Database) GetDailyPicks(ownerID, date string) (*DailyPicks, error) {
	var picks DailyPicks
	err := db.store.FindOne(&picks,
		bolthold.Where("OwnerID").Eq(ownerID).
			And("Date").Eq(date))
	if err != nil {
		return nil, err
	}
	return &picks, nil
}

// PruneDailyPicks deletes picks created before the cutoff
func (db *Database) PruneDailyPicks(cutoff time.Time) error {
	return db.store.DeleteMatching(&DailyPicks{},
		bolthold.Where("CreatedAt").Lt(cutoff))
}

// Subscribe registers a watcher for an owner's media change events.
// The returned channel receives create/update/delete events until
// Unsubscribe is called with the returned id.
func (db *Database) Subscribe(ownerID string) (uint64, <-chan MediaEvent) {
	return db.hub.subscribe(ownerID)
}

// Unsubscribe removes a watcher registered with Subscribe
func (db *Database) Unsubscribe(id uint64) {
	db.hub.unsubscribe(id)
}
