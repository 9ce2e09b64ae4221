// Package store persists named completion lists in SQLite.
//
// Entries are kept exactly as completion.Completion.Items returns them, so a
// list saved from a Weighted session keeps its "text:weight" entries and can
// be restored with SetItems.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a named list does not exist.
var ErrNotFound = errors.New("list not found")

// List is a stored candidate list.
type List struct {
	Name    string
	Order   string
	Entries []string
}

// Store is a SQLite backed list store. Safe for concurrent use through
// sql.DB pooling.
type Store struct {
	db *sql.DB
}

// Open opens or creates a database at path, creating parent directories.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newStore(db)
}

// OpenInMemory creates a private in-memory database.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// every connection would get its own empty database
	db.SetMaxOpenConns(1)
	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS lists (
			name TEXT PRIMARY KEY,
			sort_order TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS entries (
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			entry TEXT NOT NULL,
			FOREIGN KEY (name) REFERENCES lists(name) ON DELETE CASCADE,
			PRIMARY KEY (name, position)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save replaces the list called name.
func (s *Store) Save(ctx context.Context, list List) error {
	if list.Name == "" {
		return errors.New("list name is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lists (name, sort_order) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET sort_order = excluded.sort_order, updated_at = datetime('now')`,
		list.Name, list.Order)
	if err != nil {
		return fmt.Errorf("failed to upsert list: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM entries WHERE name = ?", list.Name); err != nil {
		return fmt.Errorf("failed to clear old entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO entries (name, position, entry) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, entry := range list.Entries {
		if _, err = stmt.ExecContext(ctx, list.Name, i, entry); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Debugf("Saved list %s with %d entries", list.Name, len(list.Entries))
	return nil
}

// Load returns the list called name.
func (s *Store) Load(ctx context.Context, name string) (*List, error) {
	list := &List{Name: name}
	err := s.db.QueryRowContext(ctx, "SELECT sort_order FROM lists WHERE name = ?", name).Scan(&list.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT entry FROM entries WHERE name = ? ORDER BY position", name)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	list.Entries = []string{}
	for rows.Next() {
		var entry string
		if err := rows.Scan(&entry); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		list.Entries = append(list.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return list, nil
}

// Names returns the stored list names in alphabetical order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM lists ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan list name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes the list called name. Unknown names are not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM lists WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return tx.Commit()
}
