// Package store persists the Discord message ID of each display section so
// a restarted process edits its existing messages instead of posting new
// ones. Backed by a single-file SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	server_identifier TEXT NOT NULL,
	section           TEXT NOT NULL,
	message_id        TEXT NOT NULL,
	updated_at        TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (server_identifier, section)
);
`

// Store is a SQLite-backed message ID store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the message store at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// MessageID returns the stored message ID for a (server, section) pair, and
// ok=false when none has been recorded.
func (s *Store) MessageID(ctx context.Context, server, section string) (string, bool, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT message_id FROM messages WHERE server_identifier = ? AND section = ?`,
		server, section)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query message id: %w", err)
	}
	return id, true, nil
}

// SetMessageID records (or replaces) the message ID for a section.
func (s *Store) SetMessageID(ctx context.Context, server, section, messageID string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO messages (server_identifier, section, message_id, updated_at)
		 VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT (server_identifier, section)
		 DO UPDATE SET message_id = excluded.message_id, updated_at = excluded.updated_at`,
		server, section, messageID)
	if err != nil {
		return fmt.Errorf("set message id: %w", err)
	}
	return nil
}

// DeleteMessageID forgets the stored ID, e.g. after Discord reports the
// message gone.
func (s *Store) DeleteMessageID(ctx context.Context, server, section string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM messages WHERE server_identifier = ? AND section = ?`,
		server, section)
	if err != nil {
		return fmt.Errorf("delete message id: %w", err)
	}
	return nil
}
