package store_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/store"
	"grove/internal/store/storetest"
)

var fastScrypt = store.ScryptParams{N: 1 << 4, R: 8, P: 1}

func TestIdentity_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	pass := "pass"

	var ids domain.IdentityStore = store.NewIdentityFileStore(home, fastScrypt)

	id := domain.Identity{
		Credential:       domain.Credential{Identity: []byte("alice"), SignatureKey: domain.Ed25519Public{3}},
		SignaturePrivate: domain.Ed25519Private{4},
		StorageKey:       bytes.Repeat([]byte{5}, crypto.BlobKeySize),
	}

	if err := ids.SaveIdentity(pass, id); err != nil {
		t.Fatalf("save identity: %v", err)
	}

	got, err := ids.LoadIdentity(pass)
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	if got.Credential.SignatureKey != id.Credential.SignatureKey || !bytes.Equal(got.StorageKey, id.StorageKey) {
		t.Fatalf("mismatch after load")
	}
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	var ids domain.IdentityStore = store.NewIdentityFileStore(home, fastScrypt)

	id := domain.Identity{SignaturePrivate: domain.Ed25519Private{2}}

	if err := ids.SaveIdentity("correct", id); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	if _, err := ids.LoadIdentity("wrong"); !assert.ErrorIs(t, err, domain.ErrAuthFailure) {
		t.Fatal("expected auth failure with wrong passphrase")
	}
}

func TestIdentity_Missing(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir(), fastScrypt)
	_, err := ids.LoadIdentity("pass")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testKeyPackage(t *testing.T, n byte) (domain.KeyPackageRef, domain.KeyPackage, domain.KeyPackagePrivateKeys) {
	t.Helper()
	kp := domain.KeyPackage{
		Version:     domain.ProtocolVersionMLS10,
		CipherSuite: domain.CipherSuiteX25519AES128GCMSHA256Ed25519,
		InitKey:     domain.X25519Public{n},
		LeafNode: domain.LeafNode{
			EncryptionKey: domain.X25519Public{n, n},
			Credential:    domain.Credential{Identity: []byte{n}},
			Source:        domain.LeafNodeSourceKeyPackage,
			Lifetime:      domain.Lifetime{NotBefore: 1, NotAfter: 2},
			Signature:     []byte{n},
		},
		Signature: []byte{n, n},
	}
	priv := domain.KeyPackagePrivateKeys{InitKey: domain.X25519Private{n}, EncryptionKey: domain.X25519Private{n, n}}
	return domain.KeyPackageRef{n, 0xaa}, kp, priv
}

func TestKeyPackage_ConsumeOnce(t *testing.T) {
	var s domain.KeyPackageStore = store.NewKeyPackageFileStore(t.TempDir())
	ref, kp, priv := testKeyPackage(t, 1)
	require.NoError(t, s.SaveKeyPackage(ref, kp, priv))

	gotKP, gotPriv, ok, err := s.LoadKeyPackage(ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, kp.InitKey, gotKP.InitKey)
	assert.Equal(t, priv, gotPriv)

	_, gotPriv, ok, err = s.ConsumeKeyPackage(ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, priv, gotPriv)

	_, _, ok, err = s.ConsumeKeyPackage(ref)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyPackage_ListRefs(t *testing.T) {
	s := store.NewKeyPackageFileStore(t.TempDir())
	r2, kp2, p2 := testKeyPackage(t, 2)
	r1, kp1, p1 := testKeyPackage(t, 1)
	require.NoError(t, s.SaveKeyPackage(r2, kp2, p2))
	require.NoError(t, s.SaveKeyPackage(r1, kp1, p1))

	refs, err := s.ListKeyPackageRefs()
	require.NoError(t, err)
	assert.Equal(t, []domain.KeyPackageRef{r1, r2}, refs)
}

func TestGroupFileStore(t *testing.T) {
	storetest.GroupStore(t, func(t *testing.T) domain.GroupStore {
		return store.NewGroupFileStore(t.TempDir())
	})
}

func TestGroupFileStore_FileMode(t *testing.T) {
	home := t.TempDir()
	s := store.NewGroupFileStore(home)
	id := domain.GroupIDFromString("g")
	require.NoError(t, s.SaveGroup(context.Background(), id, []byte("x")))

	files, err := filepath.Glob(filepath.Join(home, "groups", "*.state"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	fi, err := os.Stat(files[0])
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestGroupFileStore_LongID(t *testing.T) {
	home := t.TempDir()
	s := store.NewGroupFileStore(home)
	ctx := context.Background()
	id := domain.GroupID(bytes.Repeat([]byte("x"), 300))
	require.NoError(t, s.SaveGroup(ctx, id, []byte("state")))

	got, err := s.LoadGroup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("state"), got)

	files, err := filepath.Glob(filepath.Join(home, "groups", "*.state"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Len(t, filepath.Base(files[0]), 64+len(".state"))

	ids, err := s.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupID{id}, ids)
}

func TestSealedGroupStore(t *testing.T) {
	storetest.GroupStore(t, func(t *testing.T) domain.GroupStore {
		key, err := crypto.NewBlobKey()
		require.NoError(t, err)
		s, err := store.NewSealedGroupStore(store.NewGroupFileStore(t.TempDir()), key)
		require.NoError(t, err)
		return s
	})
}

func TestSealedGroupStore_BlobsAreBoundToID(t *testing.T) {
	ctx := context.Background()
	inner := store.NewGroupFileStore(t.TempDir())
	key, err := crypto.NewBlobKey()
	require.NoError(t, err)
	s, err := store.NewSealedGroupStore(inner, key)
	require.NoError(t, err)

	a, b := domain.GroupIDFromString("a"), domain.GroupIDFromString("b")
	require.NoError(t, s.SaveGroup(ctx, a, []byte("secret state")))

	raw, err := inner.LoadGroup(ctx, a)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret state")

	require.NoError(t, inner.SaveGroup(ctx, b, raw))
	_, err = s.LoadGroup(ctx, b)
	assert.ErrorIs(t, err, domain.ErrAuthFailure)

	_, err = store.NewSealedGroupStore(inner, []byte("short"))
	assert.Error(t, err)
}

func TestWriteFile_ReplacesInPlace(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	path := filepath.Join(dir, "tree.bin")
	require.NoError(t, store.WriteFile(path, []byte("one"), 0o600))
	require.NoError(t, store.WriteFile(path, []byte("two"), 0o600))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files left behind")
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}
