package domain

import "time"

// MoodEntry is one self-reported mood check-in from the tracker widget.
type MoodEntry struct {
	Username   string    `json:"username"`
	Mood       string    `json:"mood"`
	RecordedAt time.Time `json:"recorded_at"`
}
