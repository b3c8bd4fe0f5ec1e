package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Draft is a generated email kept in the history.
type Draft struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	Topic        string    `json:"topic,omitempty"`
	Recipient    string    `json:"recipient,omitempty"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	TemplateID   string    `json:"template_id"`
	Category     string    `json:"category"`
	StyleAdapted bool      `json:"style_adapted"`
	IntentSource string    `json:"intent_source,omitempty"`
}

// LearnEvent records one completed learning operation.
type LearnEvent struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"` // "samples" or "interactive"
	Applied   int       `json:"applied"`
	Skipped   int       `json:"skipped"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
