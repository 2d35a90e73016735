package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"
	"slices"

	"golang.org/x/crypto/chacha20poly1305"

	"grove/internal/domain"
)

const (
	kemIDX25519     = 0x0020
	kdfIDHKDFSHA256 = 0x0001

	aeadIDAES128GCM        = 0x0001
	aeadIDChaCha20Poly1305 = 0x0003

	hashSize  = sha256.Size
	nonceSize = 12
	// X25519 keys and shared secrets.
	kemKeySize = 32
)

// Suite is one cipher suite: X25519 DHKEM, HKDF-SHA256, an AEAD and Ed25519.
type Suite struct {
	id      domain.CipherSuite
	aeadID  uint16
	keySize int
	newAEAD func(key []byte) (cipher.AEAD, error)
}

var suites = map[domain.CipherSuite]Suite{
	domain.CipherSuiteX25519AES128GCMSHA256Ed25519: {
		id:      domain.CipherSuiteX25519AES128GCMSHA256Ed25519,
		aeadID:  aeadIDAES128GCM,
		keySize: 16,
		newAEAD: newAESGCM,
	},
	domain.CipherSuiteX25519ChaCha20Poly1305SHA256Ed25519: {
		id:      domain.CipherSuiteX25519ChaCha20Poly1305SHA256Ed25519,
		aeadID:  aeadIDChaCha20Poly1305,
		keySize: chacha20poly1305.KeySize,
		newAEAD: chacha20poly1305.New,
	},
}

// LookupSuite returns the suite for id or domain.ErrUnsupportedSuite.
func LookupSuite(id domain.CipherSuite) (Suite, error) {
	s, ok := suites[id]
	if !ok {
		return Suite{}, fmt.Errorf("%w: 0x%04x", domain.ErrUnsupportedSuite, uint16(id))
	}
	return s, nil
}

// SupportedSuites lists every known suite in ascending order.
func SupportedSuites() []domain.CipherSuite {
	out := make([]domain.CipherSuite, 0, len(suites))
	for id := range suites {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// ID returns the suite identifier.
func (s Suite) ID() domain.CipherSuite { return s.id }

// SecretSize is Nh, the size of every derived secret.
func (s Suite) SecretSize() int { return hashSize }

// KeySize is Nk, the AEAD key size.
func (s Suite) KeySize() int { return s.keySize }

// NonceSize is Nn, the AEAD nonce size.
func (s Suite) NonceSize() int { return nonceSize }

// Hash returns SHA-256(data).
func (s Suite) Hash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
