package store

import (
	"encoding/hex"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"grove/internal/domain"
	"grove/internal/protocol/wire"
)

const keyPackagesFile = "key_packages.json"

// KeyPackageFileStore keeps the private halves of published key packages
// until a Welcome consumes them.
type KeyPackageFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewKeyPackageFileStore returns a KeyPackageFileStore rooted at dir.
func NewKeyPackageFileStore(dir string) *KeyPackageFileStore {
	return &KeyPackageFileStore{dir: dir}
}

// keyPackageRecord is keyed by the hex KeyPackageRef.
type keyPackageRecord struct {
	KeyPackage []byte                       `json:"key_package"`
	Private    domain.KeyPackagePrivateKeys `json:"private"`
}

func (s *KeyPackageFileStore) path() string { return filepath.Join(s.dir, keyPackagesFile) }

func (s *KeyPackageFileStore) read() (map[string]keyPackageRecord, error) {
	m := map[string]keyPackageRecord{}
	if err := readJSON(s.path(), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveKeyPackage stores kp and its private keys under ref.
func (s *KeyPackageFileStore) SaveKeyPackage(
	ref domain.KeyPackageRef,
	kp domain.KeyPackage,
	priv domain.KeyPackagePrivateKeys,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	m[ref.String()] = keyPackageRecord{KeyPackage: wire.MarshalKeyPackage(kp), Private: priv}
	return writeJSON(s.path(), m, 0o600)
}

// LoadKeyPackage returns the key package stored under ref without removing it.
func (s *KeyPackageFileStore) LoadKeyPackage(
	ref domain.KeyPackageRef,
) (
	kp domain.KeyPackage,
	priv domain.KeyPackagePrivateKeys,
	ok bool,
	err error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return kp, priv, false, err
	}
	rec, ok := m[ref.String()]
	if !ok {
		return kp, priv, false, nil
	}
	if kp, err = wire.UnmarshalKeyPackage(rec.KeyPackage); err != nil {
		return kp, priv, false, err
	}
	return kp, rec.Private, true, nil
}

// ConsumeKeyPackage removes and returns a key package by ref.
func (s *KeyPackageFileStore) ConsumeKeyPackage(
	ref domain.KeyPackageRef,
) (
	kp domain.KeyPackage,
	priv domain.KeyPackagePrivateKeys,
	ok bool,
	err error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return kp, priv, false, err
	}
	rec, ok := m[ref.String()]
	if !ok {
		return kp, priv, false, nil
	}
	if kp, err = wire.UnmarshalKeyPackage(rec.KeyPackage); err != nil {
		return kp, priv, false, err
	}
	delete(m, ref.String())
	if err = writeJSON(s.path(), m, 0o600); err != nil {
		return kp, priv, false, err
	}
	return kp, rec.Private, true, nil
}

// ListKeyPackageRefs lists the unconsumed refs in a stable order.
func (s *KeyPackageFileStore) ListKeyPackageRefs() ([]domain.KeyPackageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, strings.Compare)

	out := make([]domain.KeyPackageRef, 0, len(keys))
	for _, k := range keys {
		ref, err := hex.DecodeString(k)
		if err != nil {
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}

// Compile-time assertion that KeyPackageFileStore implements domain.KeyPackageStore.
var _ domain.KeyPackageStore = (*KeyPackageFileStore)(nil)
