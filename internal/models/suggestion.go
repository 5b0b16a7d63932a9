package models

import "time"

// Suggestion is an AI-generated title recommendation. It is ephemeral:
// the user either discards it or accepts it, which creates a Media record.
type Suggestion struct {
	Title       string   `json:"title"`
	Kind        Kind     `json:"kind"`
	Genres      []string `json:"genres"`
	Description string   `json:"description,omitempty"`
	PosterURL   string   `json:"poster_url,omitempty"`
}

// Completion is an AI-generated autocomplete candidate produced while
// the user types a query
type Completion struct {
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`
	Year  *int   `json:"year,omitempty"`
}

// DailyPicks holds the precomputed suggestion lists for one owner and day,
// refreshed by the scheduler
type DailyPicks struct {
	ID      uint64 `boltholdKey:"ID"`
	OwnerID string `boltholdIndex:"OwnerID"`
	Date    string `boltholdIndex:"Date"` // YYYY-MM-DD

	Movies []Suggestion
	Books  []Suggestion

	CreatedAt time.Time
}
