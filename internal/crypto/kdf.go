package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/hkdf"
)

// labelPrefix is prepended to every protocol label.
const labelPrefix = "MLS 1.0 "

// Extract is HKDF-Extract(salt, ikm). A nil salt means Nh zero bytes.
func (s Suite) Extract(salt, ikm []byte) []byte {
	return hkdf.Extract(sha256.New, ikm, salt)
}

// Expand is HKDF-Expand(prk, info, length).
func (s Suite) Expand(prk, info []byte, length int) []byte {
	out := make([]byte, length)
	_, _ = io.ReadFull(hkdf.Expand(sha256.New, prk, info), out)
	return out
}

// ExpandWithLabel expands secret under a KDFLabel{length, "MLS 1.0 "+label,
// context}.
func (s Suite) ExpandWithLabel(secret []byte, label string, context []byte, length int) []byte {
	var b cryptobyte.Builder
	b.AddUint16(uint16(length))
	addOpaque(&b, []byte(labelPrefix+label))
	addOpaque(&b, context)
	return s.Expand(secret, b.BytesOrPanic(), length)
}

// DeriveSecret is ExpandWithLabel(secret, label, "", Nh). It is the one-way
// step used along ratchet tree paths and through the key schedule.
func (s Suite) DeriveSecret(secret []byte, label string) []byte {
	return s.ExpandWithLabel(secret, label, nil, s.SecretSize())
}

// MAC returns HMAC-SHA256(key, data).
func (s Suite) MAC(key, data []byte) []byte {
	m := hmac.New(sha256.New, key)
	m.Write(data)
	return m.Sum(nil)
}

// VerifyMAC compares tag against MAC(key, data) in constant time.
func (s Suite) VerifyMAC(key, data, tag []byte) bool {
	return hmac.Equal(s.MAC(key, data), tag)
}

// RefHash hashes value under label, producing key package and proposal
// references.
func (s Suite) RefHash(label string, value []byte) []byte {
	var b cryptobyte.Builder
	addOpaque(&b, []byte(label))
	addOpaque(&b, value)
	return s.Hash(b.BytesOrPanic())
}

func addOpaque(b *cryptobyte.Builder, data []byte) {
	b.AddUint32LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(data)
	})
}
