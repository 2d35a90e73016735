package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"grove/internal/crypto"
	"grove/internal/domain"
)

const identityFile = "identity.sealed"

// IdentityFileStore keeps the client's identity in one passphrase-sealed
// file under dir.
type IdentityFileStore struct {
	mu     sync.RWMutex
	path   string
	params ScryptParams
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir. params
// apply to newly written files; existing files carry their own.
func NewIdentityFileStore(dir string, params ScryptParams) *IdentityFileStore {
	return &IdentityFileStore{path: filepath.Join(dir, identityFile), params: params}
}

func (s *IdentityFileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	defer crypto.Wipe(raw)

	sealed, err := encrypt(passphrase, raw, s.params)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return WriteFile(s.path, sealed, 0o600)
}

// LoadIdentity opens the identity. domain.ErrNotFound means none was
// created yet; domain.ErrAuthFailure means the passphrase is wrong.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.RLock()
	sealed, err := readFile(s.path)
	s.mu.RUnlock()
	switch {
	case err != nil:
		return domain.Identity{}, err
	case sealed == nil:
		return domain.Identity{}, fmt.Errorf("%w: no identity at %s", domain.ErrNotFound, s.path)
	}

	raw, err := decrypt(passphrase, sealed)
	if err != nil {
		return domain.Identity{}, err
	}
	defer crypto.Wipe(raw)

	var id domain.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: identity: %w", domain.ErrMalformed, err)
	}
	return id, nil
}

var _ domain.IdentityStore = (*IdentityFileStore)(nil)
