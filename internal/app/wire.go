package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"grove/internal/crypto"
	"grove/internal/domain"
	groupsvc "grove/internal/services/group"
	identitysvc "grove/internal/services/identity"
	keypackagesvc "grove/internal/services/keypackage"
	messagesvc "grove/internal/services/message"
	"grove/internal/store"
	"grove/internal/store/bolt"
	"grove/internal/store/sqlite"
)

// Wire bundles all stores and services for the CLI.
type Wire struct {
	Log *slog.Logger

	IdentityStore   domain.IdentityStore
	KeyPackageStore domain.KeyPackageStore
	GroupStore      domain.GroupStore // unsealed backend

	Identity    *identitysvc.Service
	KeyPackages *keypackagesvc.Service
	Groups      *groupsvc.Service
	Messages    *messagesvc.Service

	closer io.Closer
}

// NewLogger returns a text logger writing to w at cfg's level.
func NewLogger(cfg Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, log *slog.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	suite, err := crypto.LookupSuite(domain.CipherSuite(cfg.CipherSuite))
	if err != nil {
		return nil, err
	}

	// File-based client stores
	identityStore := store.NewIdentityFileStore(cfg.Home, cfg.ScryptParams())
	keyPackageStore := store.NewKeyPackageFileStore(cfg.Home)

	groupStore, closer, err := openGroupStore(cfg)
	if err != nil {
		return nil, err
	}
	// Group state is sealed under the identity's storage key.
	opener := func(key []byte) (domain.GroupStore, error) {
		return store.NewSealedGroupStore(groupStore, key)
	}

	// High-level services
	groups := groupsvc.New(identityStore, keyPackageStore, opener, suite, groupsvc.WithLogger(log))
	w := &Wire{
		Log:             log,
		IdentityStore:   identityStore,
		KeyPackageStore: keyPackageStore,
		GroupStore:      groupStore,
		Identity:        identitysvc.New(identityStore, log),
		KeyPackages: keypackagesvc.New(identityStore, keyPackageStore, suite,
			keypackagesvc.WithLifetime(cfg.KeyPackageLifetime),
			keypackagesvc.WithLogger(log)),
		Groups:   groups,
		Messages: messagesvc.New(groups, log, cfg.Parallelism),
		closer:   closer,
	}
	log.Debug("wired", "home", cfg.Home, "store", cfg.Store, "suite", suite.ID())
	return w, nil
}

// Close releases the group store backend.
func (w *Wire) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

func openGroupStore(cfg Config) (domain.GroupStore, io.Closer, error) {
	switch cfg.Store {
	case StoreFile:
		return store.NewGroupFileStore(cfg.Home), nil, nil
	case StoreBolt:
		s, err := bolt.Open(filepath.Join(cfg.Home, "groups.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case StoreSQLite:
		s, err := sqlite.Open(filepath.Join(cfg.Home, "groups.sqlite"))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
