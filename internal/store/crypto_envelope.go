package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"grove/internal/crypto"
	"grove/internal/domain"
)

// envelopeVersion is the newest sealed-file format this package writes.
const envelopeVersion = 2

const saltSize = 16

// ScryptParams tunes the passphrase KDF. Tests use small values.
type ScryptParams struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

// DefaultScryptParams are the interactive-login parameters.
func DefaultScryptParams() ScryptParams { return ScryptParams{N: 1 << 15, R: 8, P: 1} }

// envelope is the JSON form of a passphrase-sealed file. The salt is the
// AEAD associated data; each salt gives a fresh key, so the nonce is fixed.
type envelope struct {
	Version int          `json:"version"`
	KDF     ScryptParams `json:"scrypt"`
	Salt    []byte       `json:"salt"`
	Sealed  []byte       `json:"sealed"`
}

func (e *envelope) aead(passphrase string) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), e.Salt, e.KDF.N, e.KDF.R, e.KDF.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("scrypt: %w", err)
	}
	defer crypto.Wipe(key)
	return chacha20poly1305.New(key)
}

// encrypt seals raw under a key derived from passphrase.
func encrypt(passphrase string, raw []byte, params ScryptParams) ([]byte, error) {
	env := envelope{Version: envelopeVersion, KDF: params, Salt: make([]byte, saltSize)}
	if _, err := rand.Read(env.Salt); err != nil {
		return nil, err
	}
	aead, err := env.aead(passphrase)
	if err != nil {
		return nil, err
	}
	env.Sealed = aead.Seal(nil, make([]byte, aead.NonceSize()), raw, env.Salt)
	return json.Marshal(env)
}

// decrypt reverses encrypt. A wrong passphrase or a modified file is
// domain.ErrAuthFailure; an unreadable one is domain.ErrMalformed.
func decrypt(passphrase string, b []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: sealed file: %w", domain.ErrMalformed, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: sealed file version %d", domain.ErrMalformed, env.Version)
	}
	aead, err := env.aead(passphrase)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, make([]byte, aead.NonceSize()), env.Sealed, env.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: wrong passphrase or corrupted identity", domain.ErrAuthFailure)
	}
	return pt, nil
}
