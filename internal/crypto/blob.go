package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"grove/internal/domain"
)

// BlobKeySize is the size of a storage key accepted by SealBlob.
const BlobKeySize = chacha20poly1305.KeySize

// NewBlobKey returns a random storage key.
func NewBlobKey() ([]byte, error) {
	k := make([]byte, BlobKeySize)
	if _, err := rand.Read(k); err != nil {
		return nil, err
	}
	return k, nil
}

// SealBlob encrypts plaintext at rest. The output is nonce||ciphertext and
// aad is bound to it.
func SealBlob(key, aad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

// OpenBlob reverses SealBlob.
func OpenBlob(key, aad, blob []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: blob too short", domain.ErrAuthFailure)
	}
	pt, err := aead.Open(nil, blob[:aead.NonceSize()], blob[aead.NonceSize():], aad)
	if err != nil {
		return nil, domain.ErrAuthFailure
	}
	return pt, nil
}
