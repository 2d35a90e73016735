// Package sqlite stores group state in a SQLite database through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"grove/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// GroupStore is a domain.GroupStore backed by one table.
type GroupStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*GroupStore, error) {
	db, err := sql.Open("sqlite", path+
		"?_pragma=journal_mode(WAL)"+
		"&_pragma=busy_timeout(5000)"+
		"&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &GroupStore{db: db}, nil
}

// Close closes the database.
func (s *GroupStore) Close() error { return s.db.Close() }

// SaveGroup upserts the blob for id.
func (s *GroupStore) SaveGroup(ctx context.Context, id domain.GroupID, blob []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (group_id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(group_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		[]byte(id), blob, now)
	return err
}

// LoadGroup returns the blob for id or domain.ErrNotFound.
func (s *GroupStore) LoadGroup(ctx context.Context, id domain.GroupID) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM groups WHERE group_id = ?`, []byte(id)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: group %s", domain.ErrNotFound, id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// DeleteGroup removes id; unknown ids are ignored.
func (s *GroupStore) DeleteGroup(ctx context.Context, id domain.GroupID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE group_id = ?`, []byte(id))
	return err
}

// ListGroups returns every stored id ordered by id.
func (s *GroupStore) ListGroups(ctx context.Context) ([]domain.GroupID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT group_id FROM groups ORDER BY group_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GroupID
	for rows.Next() {
		var id []byte
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

var _ domain.GroupStore = (*GroupStore)(nil)
