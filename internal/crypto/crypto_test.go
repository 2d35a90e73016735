package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grove/internal/crypto"
	"grove/internal/domain"
)

func allSuites(t *testing.T) []crypto.Suite {
	t.Helper()
	var out []crypto.Suite
	for _, id := range crypto.SupportedSuites() {
		s, err := crypto.LookupSuite(id)
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestLookupSuite_Unknown(t *testing.T) {
	_, err := crypto.LookupSuite(0x7777)
	require.ErrorIs(t, err, domain.ErrUnsupportedSuite)
}

func TestEncryptWithLabel_RoundTrip(t *testing.T) {
	for _, s := range allSuites(t) {
		priv, pub, err := s.GenerateKeyPair()
		require.NoError(t, err)

		ct, err := s.EncryptWithLabel(pub, "UpdatePathNode", []byte("ctx"), []byte("path secret"))
		require.NoError(t, err)
		assert.Len(t, ct.KEMOutput, 32)

		pt, err := s.DecryptWithLabel(priv, "UpdatePathNode", []byte("ctx"), ct)
		require.NoError(t, err)
		assert.Equal(t, []byte("path secret"), pt)
	}
}

func TestDecryptWithLabel_WrongContextOrKey(t *testing.T) {
	s := allSuites(t)[0]
	priv, pub, err := s.GenerateKeyPair()
	require.NoError(t, err)
	other, _, err := s.GenerateKeyPair()
	require.NoError(t, err)

	ct, err := s.EncryptWithLabel(pub, "Welcome", []byte("a"), []byte("x"))
	require.NoError(t, err)

	_, err = s.DecryptWithLabel(priv, "Welcome", []byte("b"), ct)
	assert.ErrorIs(t, err, domain.ErrAuthFailure)
	_, err = s.DecryptWithLabel(priv, "Other", []byte("a"), ct)
	assert.ErrorIs(t, err, domain.ErrAuthFailure)
	_, err = s.DecryptWithLabel(other, "Welcome", []byte("a"), ct)
	assert.ErrorIs(t, err, domain.ErrAuthFailure)

	ct.KEMOutput = ct.KEMOutput[:10]
	_, err = s.DecryptWithLabel(priv, "Welcome", []byte("a"), ct)
	assert.ErrorIs(t, err, domain.ErrAuthFailure)
}

func TestDeriveKeyPair_Deterministic(t *testing.T) {
	s := allSuites(t)[0]
	ikm := bytes.Repeat([]byte{7}, 32)

	p1, P1, err := s.DeriveKeyPair(ikm)
	require.NoError(t, err)
	p2, P2, err := s.DeriveKeyPair(ikm)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, P1, P2)

	_, P3, err := s.DeriveKeyPair(bytes.Repeat([]byte{8}, 32))
	require.NoError(t, err)
	assert.NotEqual(t, P1, P3)
}

func TestSignWithLabel(t *testing.T) {
	s := allSuites(t)[0]
	priv, pub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	assert.Equal(t, pub, priv.Public())

	sig := s.SignWithLabel(priv, "LeafNodeTBS", []byte("content"))
	assert.True(t, s.VerifyWithLabel(pub, "LeafNodeTBS", []byte("content"), sig))
	assert.False(t, s.VerifyWithLabel(pub, "KeyPackageTBS", []byte("content"), sig))
	assert.False(t, s.VerifyWithLabel(pub, "LeafNodeTBS", []byte("tampered"), sig))
	assert.False(t, s.VerifyWithLabel(pub, "LeafNodeTBS", []byte("content"), sig[:10]))
}

func TestDeriveSecret_LabelsDiffer(t *testing.T) {
	s := allSuites(t)[0]
	secret := bytes.Repeat([]byte{1}, s.SecretSize())
	a := s.DeriveSecret(secret, "path")
	b := s.DeriveSecret(secret, "node")
	assert.Len(t, a, s.SecretSize())
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, s.DeriveSecret(secret, "path"))
	assert.Len(t, s.ExpandWithLabel(secret, "key", nil, s.KeySize()), s.KeySize())
}

func TestMAC(t *testing.T) {
	s := allSuites(t)[0]
	tag := s.MAC([]byte("k"), []byte("data"))
	assert.True(t, s.VerifyMAC([]byte("k"), []byte("data"), tag))
	assert.False(t, s.VerifyMAC([]byte("k"), []byte("datb"), tag))
}

func TestSealBlob(t *testing.T) {
	key, err := crypto.NewBlobKey()
	require.NoError(t, err)

	blob, err := crypto.SealBlob(key, []byte("group-a"), []byte("state"))
	require.NoError(t, err)

	pt, err := crypto.OpenBlob(key, []byte("group-a"), blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("state"), pt)

	_, err = crypto.OpenBlob(key, []byte("group-b"), blob)
	assert.True(t, errors.Is(err, domain.ErrAuthFailure))
	_, err = crypto.OpenBlob(key, nil, blob[:5])
	assert.ErrorIs(t, err, domain.ErrAuthFailure)
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	crypto.Wipe(b)
	assert.Equal(t, []byte{0, 0, 0}, b)

	k := domain.X25519Private{9}
	crypto.WipeKey(&k)
	assert.Equal(t, domain.X25519Private{}, k)
}

func TestFingerprint(t *testing.T) {
	fp := crypto.Fingerprint([]byte("pub"))
	assert.Len(t, string(fp), 20)
}
