package crypto

import (
	"fmt"

	"grove/internal/domain"
)

// Seal encrypts plaintext with the suite AEAD.
func (s Suite) Seal(key, nonce, aad, plaintext []byte) ([]byte, error) {
	aead, err := s.newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("aead: want %d-byte nonce, got %d", aead.NonceSize(), len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts ciphertext; any failure is domain.ErrAuthFailure.
func (s Suite) Open(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := s.newAEAD(key)
	if err != nil {
		return nil, domain.ErrAuthFailure
	}
	if len(nonce) != aead.NonceSize() {
		return nil, domain.ErrAuthFailure
	}
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, domain.ErrAuthFailure
	}
	return pt, nil
}
