package models

// Kind represents the kind of media (movie or book)
type Kind string

const (
	KindMovie Kind = "movie"
	KindBook  Kind = "book"
)

// IsValid reports whether k is a known media kind
func (k Kind) IsValid() bool {
	return k == KindMovie || k == KindBook
}

// Status represents the consumption status of a media item
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// NextStatus returns the next status in the cycle
// pending -> in_progress -> completed -> pending
func NextStatus(s Status) Status {
	switch s {
	case StatusPending:
		return StatusInProgress
	case StatusInProgress:
		return StatusCompleted
	case StatusCompleted:
		return StatusPending
	default:
		return StatusPending
	}
}

// DisplayStatus returns the per-kind label for a status:
// to-watch/watching/watched for movies, to-read/reading/read for books
func DisplayStatus(kind Kind, status Status) string {
	if kind == KindBook {
		switch status {
		case StatusPending:
			return "to-read"
		case StatusInProgress:
			return "reading"
		case StatusCompleted:
			return "read"
		}
	}
	switch status {
	case StatusPending:
		return "to-watch"
	case StatusInProgress:
		return "watching"
	case StatusCompleted:
		return "watched"
	}
	return string(status)
}

// Rating bounds for completed items
const (
	MinRating = 1
	MaxRating = 5
)
