package keypackage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/keypackage"
)

func newKeyPackage(t *testing.T, lifetime domain.Lifetime) (crypto.Suite, domain.KeyPackage, domain.KeyPackagePrivateKeys) {
	t.Helper()
	suite, err := crypto.LookupSuite(domain.CipherSuiteX25519AES128GCMSHA256Ed25519)
	require.NoError(t, err)
	sk, pk, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	cred := domain.Credential{Identity: []byte("alice"), SignatureKey: pk}
	kp, priv, err := keypackage.Generate(suite, cred, sk, keypackage.DefaultCapabilities(), lifetime)
	require.NoError(t, err)
	return suite, kp, priv
}

func TestGenerate_ValidAndKeysMatch(t *testing.T) {
	now := time.Now()
	_, kp, priv := newKeyPackage(t, keypackage.LifetimeFrom(now, keypackage.DefaultLifetime))
	require.NoError(t, keypackage.Validate(kp, now))

	initPub, err := crypto.PublicX25519(priv.InitKey)
	require.NoError(t, err)
	encPub, err := crypto.PublicX25519(priv.EncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, kp.InitKey, initPub)
	assert.Equal(t, kp.LeafNode.EncryptionKey, encPub)
	assert.NotEqual(t, kp.InitKey, kp.LeafNode.EncryptionKey)
}

func TestValidate_Expired(t *testing.T) {
	now := time.Now()
	_, kp, _ := newKeyPackage(t, keypackage.LifetimeFrom(now, time.Minute))

	err := keypackage.Validate(kp, now.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrExpired)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	err = keypackage.Validate(kp, now.Add(-2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrExpired)
}

func TestValidate_TamperedSignature(t *testing.T) {
	now := time.Now()
	_, kp, _ := newKeyPackage(t, keypackage.LifetimeFrom(now, keypackage.DefaultLifetime))

	kp.LeafNode.Credential.Identity = []byte("mallory")
	assert.ErrorIs(t, keypackage.Validate(kp, now), domain.ErrInvalidSignature)
}

func TestValidate_KeyPackageSignatureOnly(t *testing.T) {
	now := time.Now()
	_, kp, _ := newKeyPackage(t, keypackage.LifetimeFrom(now, keypackage.DefaultLifetime))

	kp.InitKey[0] ^= 1
	assert.ErrorIs(t, keypackage.Validate(kp, now), domain.ErrInvalidSignature)
}

func TestValidate_UnsupportedSuite(t *testing.T) {
	now := time.Now()
	_, kp, _ := newKeyPackage(t, keypackage.LifetimeFrom(now, keypackage.DefaultLifetime))

	kp.CipherSuite = 0x00ff
	assert.ErrorIs(t, keypackage.Validate(kp, now), domain.ErrUnsupportedSuite)
}

func TestRef_StableAndDistinct(t *testing.T) {
	now := time.Now()
	suite, kp1, _ := newKeyPackage(t, keypackage.LifetimeFrom(now, keypackage.DefaultLifetime))
	_, kp2, _ := newKeyPackage(t, keypackage.LifetimeFrom(now, keypackage.DefaultLifetime))

	assert.Equal(t, keypackage.Ref(suite, kp1), keypackage.Ref(suite, kp1))
	assert.NotEqual(t, keypackage.Ref(suite, kp1), keypackage.Ref(suite, kp2))
	assert.Len(t, keypackage.Ref(suite, kp1), suite.SecretSize())
}

func TestNewLeaf_BoundToGroupAndIndex(t *testing.T) {
	suite, err := crypto.LookupSuite(domain.CipherSuiteX25519ChaCha20Poly1305SHA256Ed25519)
	require.NoError(t, err)
	sk, pk, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	prev := domain.LeafNode{
		Credential:   domain.Credential{Identity: []byte("bob"), SignatureKey: pk},
		Capabilities: keypackage.DefaultCapabilities(),
	}
	_, pub, err := suite.GenerateKeyPair()
	require.NoError(t, err)

	leaf := keypackage.NewLeaf(suite, sk, prev, pub, domain.LeafNodeSourceUpdate, []byte("g"), 1)
	assert.True(t, keypackage.VerifyLeaf(suite, leaf, []byte("g"), 1))
	assert.False(t, keypackage.VerifyLeaf(suite, leaf, []byte("g"), 2))
	assert.False(t, keypackage.VerifyLeaf(suite, leaf, []byte("h"), 1))

	other, _, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	forged := keypackage.NewLeaf(suite, other, prev, pub, domain.LeafNodeSourceUpdate, []byte("g"), 1)
	assert.False(t, keypackage.VerifyLeaf(suite, forged, []byte("g"), 1))
}
