package models

import "time"

// Media represents a tracked library item (movie or book)
type Media struct {
	ID      uint64 `boltholdKey:"ID" json:"id"`
	OwnerID string `boltholdIndex:"OwnerID" json:"owner_id"`

	Kind   Kind     `json:"kind"` // "movie" or "book"
	Title  string   `json:"title"`
	Genres []string `json:"genres"`

	// Tracking
	Status Status `boltholdIndex:"Status" json:"status"`
	Rating *int   `json:"rating,omitempty"` // 1-5, nil when unrated

	// Enrichment metadata
	ExternalID  string `json:"external_id,omitempty"`
	PosterURL   string `json:"poster_url,omitempty"`
	Description string `json:"description,omitempty"`

	// Metadata
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StatusLabel returns the per-kind display label for the current status
func (m *Media) StatusLabel() string {
	return DisplayStatus(m.Kind, m.Status)
}
