// Package bolt stores group state in a single bbolt database file.
package bolt

import (
	"context"
	"fmt"
	"slices"
	"time"

	bbolt "go.etcd.io/bbolt"

	"grove/internal/domain"
)

var groupsBucket = []byte("groups")

// GroupStore is a domain.GroupStore over one bbolt bucket keyed by group id.
type GroupStore struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*GroupStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(groupsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &GroupStore{db: db}, nil
}

// Close releases the database file lock.
func (s *GroupStore) Close() error { return s.db.Close() }

// SaveGroup overwrites the blob for id.
func (s *GroupStore) SaveGroup(ctx context.Context, id domain.GroupID, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(groupsBucket).Put(id, blob)
	})
}

// LoadGroup returns the blob for id or domain.ErrNotFound.
func (s *GroupStore) LoadGroup(ctx context.Context, id domain.GroupID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(groupsBucket).Get(id)
		if v == nil {
			return fmt.Errorf("%w: group %s", domain.ErrNotFound, id.Hex())
		}
		// v is only valid inside the transaction
		out = slices.Clone(v)
		return nil
	})
	return out, err
}

// DeleteGroup removes id; unknown ids are ignored.
func (s *GroupStore) DeleteGroup(ctx context.Context, id domain.GroupID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(groupsBucket).Delete(id)
	})
}

// ListGroups returns every stored id in key order.
func (s *GroupStore) ListGroups(ctx context.Context) ([]domain.GroupID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.GroupID
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(groupsBucket).ForEach(func(k, _ []byte) error {
			out = append(out, slices.Clone(k))
			return nil
		})
	})
	return out, err
}

var _ domain.GroupStore = (*GroupStore)(nil)
