package store

import (
	"context"
	"fmt"

	"grove/internal/crypto"
	"grove/internal/domain"
)

// SealedGroupStore encrypts every blob under a storage key before handing it
// to the wrapped store. The group id is the associated data, so a blob moved
// to another id fails to open.
type SealedGroupStore struct {
	inner domain.GroupStore
	key   []byte
}

// NewSealedGroupStore wraps inner. key must be crypto.BlobKeySize bytes.
func NewSealedGroupStore(inner domain.GroupStore, key []byte) (*SealedGroupStore, error) {
	if len(key) != crypto.BlobKeySize {
		return nil, fmt.Errorf("storage key: want %d bytes, got %d", crypto.BlobKeySize, len(key))
	}
	return &SealedGroupStore{inner: inner, key: key}, nil
}

// SaveGroup seals blob and stores it.
func (s *SealedGroupStore) SaveGroup(ctx context.Context, id domain.GroupID, blob []byte) error {
	sealed, err := crypto.SealBlob(s.key, id, blob)
	if err != nil {
		return err
	}
	return s.inner.SaveGroup(ctx, id, sealed)
}

// LoadGroup loads and opens the blob for id. Tampering is domain.ErrAuthFailure.
func (s *SealedGroupStore) LoadGroup(ctx context.Context, id domain.GroupID) ([]byte, error) {
	sealed, err := s.inner.LoadGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	return crypto.OpenBlob(s.key, id, sealed)
}

// DeleteGroup forwards to the wrapped store.
func (s *SealedGroupStore) DeleteGroup(ctx context.Context, id domain.GroupID) error {
	return s.inner.DeleteGroup(ctx, id)
}

// ListGroups forwards to the wrapped store.
func (s *SealedGroupStore) ListGroups(ctx context.Context) ([]domain.GroupID, error) {
	return s.inner.ListGroups(ctx)
}

var _ domain.GroupStore = (*SealedGroupStore)(nil)
