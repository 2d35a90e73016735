package types

import (
	"crypto/ed25519"
	"fmt"
)

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// IsZero reports whether the key is all zeros (unset).
func (p X25519Public) IsZero() bool { return p == X25519Public{} }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is an Ed25519 signing private key (ed25519.PrivateKey layout).
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

// Public returns the public half embedded in the private key.
func (k Ed25519Private) Public() Ed25519Public {
	var out Ed25519Public
	copy(out[:], ed25519.PrivateKey(k[:]).Public().(ed25519.PublicKey))
	return out
}

// X25519PublicFromBytes copies b into a fixed-size public key.
func X25519PublicFromBytes(b []byte) (X25519Public, error) {
	var out X25519Public
	if len(b) != len(out) {
		return out, fmt.Errorf("X25519 public: want %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Ed25519PublicFromBytes copies b into a fixed-size signature public key.
func Ed25519PublicFromBytes(b []byte) (Ed25519Public, error) {
	var out Ed25519Public
	if len(b) != len(out) {
		return out, fmt.Errorf("Ed25519 public: want %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}
