package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Profile is one person's completed onboarding form. The user ID comes from
// the chat transport and is the primary key; a profile is written only once
// all four form answers have been collected.
type Profile struct {
	UserID    int64
	Username  string // Telegram handle, may be empty
	Name      string
	Level     string // free-text proficiency label, matched by exact equality
	Interests string // comma-separated free-text tokens
	Goal      string // display-only, not used in matching
	CreatedAt time.Time
	UpdatedAt time.Time
}
