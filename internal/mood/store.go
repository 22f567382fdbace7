// Package mood provides storage for the standalone mood-tracking widget.
// Mood check-ins are independent of dialog state and are the only data that
// survives a restart.
package mood

import (
	"context"

	"github.com/mentalyze/server/internal/domain"
)

// Repository defines the interface for persisting mood check-ins.
type Repository interface {
	// Record stores one mood entry.
	Record(ctx context.Context, entry domain.MoodEntry) error

	// Recent retrieves up to limit entries for a username, newest first.
	Recent(ctx context.Context, username string, limit int) ([]domain.MoodEntry, error)

	// Ping verifies storage connectivity.
	Ping(ctx context.Context) error

	// Close closes the underlying store.
	Close() error
}
