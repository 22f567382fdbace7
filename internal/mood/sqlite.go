package mood

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mentalyze/server/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed mood repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency under parallel check-ins.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS moods (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		mood TEXT NOT NULL,
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_moods_user ON moods(username, recorded_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record stores one mood entry.
func (s *SQLiteStore) Record(ctx context.Context, entry domain.MoodEntry) error {
	query := `INSERT INTO moods (username, mood, recorded_at) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, entry.Username, entry.Mood, entry.RecordedAt.Unix()); err != nil {
		return fmt.Errorf("insert mood: %w", err)
	}
	return nil
}

// Recent retrieves up to limit entries for a username, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, username string, limit int) ([]domain.MoodEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT username, mood, recorded_at
		FROM moods WHERE username = ?
		ORDER BY recorded_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("query moods: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []domain.MoodEntry
	for rows.Next() {
		var e domain.MoodEntry
		var recordedAt int64
		if err := rows.Scan(&e.Username, &e.Mood, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan mood row: %w", err)
		}
		e.RecordedAt = time.Unix(recordedAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mood rows: %w", err)
	}
	return entries, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
