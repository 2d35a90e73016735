// Package crypto exposes the primitives behind a negotiated cipher suite.
//
// Contents
//
//   - Suite lookup by identifier (LookupSuite) and the suite operations:
//     hashing, HKDF extract/expand with MLS labels, HMAC, AEAD, DHKEM-X25519
//     encapsulation, RFC 9180 base-mode HPKE, labelled Ed25519 signatures
//     and reference hashes
//   - X25519 and Ed25519 key generation (GenerateX25519, GenerateEd25519)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//   - At-rest sealing of opaque blobs (SealBlob, OpenBlob)
//
// # Notes
//
// A Suite is a small value with no mutable state; every method is safe for
// concurrent use. Randomness is only drawn for key generation and nonces,
// always from crypto/rand. AEAD and decapsulation failures are reported as
// domain.ErrAuthFailure and never as zeroed output.
package crypto
