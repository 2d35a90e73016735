package identity_test

import (
	"errors"
	"testing"

	"grove/internal/domain"
	"grove/internal/services/identity"
	"grove/internal/store"
)

const strongPass = "Correct-Horse-42"

func newService(t *testing.T) *identity.Service {
	t.Helper()
	return identity.New(store.NewIdentityFileStore(t.TempDir(), store.ScryptParams{N: 16, R: 8, P: 1}), nil)
}

func TestCreateClient_RoundTrip(t *testing.T) {
	s := newService(t)

	id, fp, err := s.CreateClient(strongPass, []byte("alice@example.org"))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if id.SignaturePrivate.Public() != id.Credential.SignatureKey {
		t.Fatal("signature key pair does not match")
	}
	if len(id.StorageKey) == 0 {
		t.Fatal("missing storage key")
	}

	got, err := s.FingerprintIdentity(strongPass)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if got != fp {
		t.Fatalf("fingerprint %s, want %s", got, fp)
	}

	loaded, err := s.LoadIdentity(strongPass)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(loaded.Credential.Identity) != "alice@example.org" {
		t.Fatalf("identity %q", loaded.Credential.Identity)
	}
}

func TestCreateClient_Policy(t *testing.T) {
	s := newService(t)

	if _, _, err := s.CreateClient("short", []byte("a")); !errors.Is(err, identity.ErrWeakPassphrase) {
		t.Fatalf("weak passphrase: got %v", err)
	}
	if _, _, err := s.CreateClient("alllowercase-but-long1", []byte("a")); !errors.Is(err, identity.ErrWeakPassphrase) {
		t.Fatalf("no upper case: got %v", err)
	}
	if _, _, err := s.CreateClient(strongPass, nil); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("empty identity: got %v", err)
	}
}
