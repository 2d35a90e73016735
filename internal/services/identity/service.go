package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"grove/internal/crypto"
	"grove/internal/domain"
)

// minPassphraseLength is the shortest passphrase CreateClient accepts.
const minPassphraseLength = 12

var (
	// ErrWeakPassphrase is wrapped by CreateClient when the passphrase is
	// too short or lacks a character class.
	ErrWeakPassphrase = errors.New("passphrase is too weak")
	// ErrEmptyIdentity is returned when CreateClient gets no identity bytes.
	ErrEmptyIdentity = fmt.Errorf("%w: empty identity", domain.ErrValidationFailed)
)

// Service creates and opens the local client identity.
//
// An identity holds the credential that binds the caller's identity bytes
// to an Ed25519 key, the matching private key used for every group
// signature, and a random key that seals group state at rest.
type Service struct {
	store domain.IdentityStore
	log   *slog.Logger
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: s, log: log}
}

// CreateClient creates and stores a new identity for the opaque identity
// bytes and returns it with the fingerprint of its signature key.
func (s *Service) CreateClient(passphrase string, identity []byte) (domain.Identity, domain.Fingerprint, error) {
	if err := checkPassphrase(passphrase); err != nil {
		return domain.Identity{}, "", err
	}
	if len(identity) == 0 {
		return domain.Identity{}, "", ErrEmptyIdentity
	}

	sigPriv, sigPub, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, "", err
	}
	storageKey, err := crypto.NewBlobKey()
	if err != nil {
		return domain.Identity{}, "", err
	}
	id := domain.Identity{
		Credential: domain.Credential{
			Identity:     append([]byte(nil), identity...),
			SignatureKey: sigPub,
		},
		SignaturePrivate: sigPriv,
		StorageKey:       storageKey,
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}

	fp := crypto.Fingerprint(sigPub.Slice())
	s.log.Info("client created", "fingerprint", fp)
	return id, fp, nil
}

func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity returns the fingerprint of the local signature key.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(id.Credential.SignatureKey.Slice()), nil
}

// checkPassphrase requires minPassphraseLength characters drawn from upper
// case, lower case, digits and symbols.
func checkPassphrase(p string) error {
	var missing []string
	if len([]rune(p)) < minPassphraseLength {
		missing = append(missing, fmt.Sprintf("%d characters", minPassphraseLength))
	}
	for _, c := range passphraseClasses {
		if !strings.ContainsFunc(p, c.has) {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: needs %s", ErrWeakPassphrase, strings.Join(missing, ", "))
	}
	return nil
}

var passphraseClasses = []struct {
	name string
	has  func(rune) bool
}{
	{"an upper-case letter", unicode.IsUpper},
	{"a lower-case letter", unicode.IsLower},
	{"a digit", unicode.IsDigit},
	{"a symbol", func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }},
}

var _ domain.IdentityService = (*Service)(nil)
