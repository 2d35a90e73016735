package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"grove/internal/domain"
)

const (
	groupsDir    = "groups"
	groupFileExt = ".state"
)

// GroupFileStore keeps one file per group under <dir>/groups. Files are
// named by the SHA-256 of the group id, which keeps names short for any id,
// and hold the id next to the blob. Writes replace the file atomically.
type GroupFileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewGroupFileStore returns a GroupFileStore rooted at dir.
func NewGroupFileStore(dir string) *GroupFileStore {
	return &GroupFileStore{dir: filepath.Join(dir, groupsDir)}
}

// groupFile is the JSON content of one group file.
type groupFile struct {
	GroupID []byte `json:"group_id"`
	State   []byte `json:"state"`
}

func (s *GroupFileStore) path(id domain.GroupID) string {
	sum := sha256.Sum256(id)
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+groupFileExt)
}

// SaveGroup overwrites the stored blob for id.
func (s *GroupFileStore) SaveGroup(ctx context.Context, id domain.GroupID, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path(id), groupFile{GroupID: id, State: blob}, 0o600)
}

// LoadGroup returns the blob for id or domain.ErrNotFound.
func (s *GroupFileStore) LoadGroup(ctx context.Context, id domain.GroupID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var f groupFile
	if err := readJSON(s.path(id), &f); err != nil {
		return nil, fmt.Errorf("group %s: %w", id.Hex(), err)
	}
	switch {
	case f.GroupID == nil:
		return nil, fmt.Errorf("%w: group %s", domain.ErrNotFound, id.Hex())
	case !id.Equal(f.GroupID):
		return nil, fmt.Errorf("%w: group file holds another id", domain.ErrMalformed)
	}
	return f.State, nil
}

// DeleteGroup removes the blob for id; deleting an unknown id is a no-op.
func (s *GroupFileStore) DeleteGroup(ctx context.Context, id domain.GroupID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ListGroups returns the stored group ids in byte order. Unreadable files
// are skipped.
func (s *GroupFileStore) ListGroups(ctx context.Context) ([]domain.GroupID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []domain.GroupID
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), groupFileExt) {
			continue
		}
		var f groupFile
		if err := readJSON(filepath.Join(s.dir, e.Name()), &f); err != nil || f.GroupID == nil {
			continue
		}
		out = append(out, f.GroupID)
	}
	slices.SortFunc(out, func(a, b domain.GroupID) int { return bytes.Compare(a, b) })
	return out, nil
}

// Compile-time assertion that GroupFileStore implements domain.GroupStore.
var _ domain.GroupStore = (*GroupFileStore)(nil)
