package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/cryptobyte"

	"grove/internal/domain"
	"grove/internal/domain/types"
)

const hpkeVersionLabel = "HPKE-v1"

// GenerateKeyPair returns a fresh KEM key pair.
func (s Suite) GenerateKeyPair() (domain.X25519Private, domain.X25519Public, error) {
	return GenerateX25519()
}

// DeriveKeyPair deterministically derives a KEM key pair from ikm
// (RFC 9180 §7.1.3).
func (s Suite) DeriveKeyPair(ikm []byte) (domain.X25519Private, domain.X25519Public, error) {
	var priv domain.X25519Private
	prk := labeledExtract(kemSuiteID(), nil, "dkp_prk", ikm)
	copy(priv[:], labeledExpand(kemSuiteID(), prk, "sk", nil, kemKeySize))
	Wipe(prk)
	pub, err := PublicX25519(priv)
	if err != nil {
		return domain.X25519Private{}, domain.X25519Public{}, err
	}
	return priv, pub, nil
}

// Encap generates an ephemeral key and returns the KEM shared secret plus
// the encapsulation to send.
func (s Suite) Encap(pkR domain.X25519Public) (shared, enc []byte, err error) {
	skE, pkE, err := GenerateX25519()
	if err != nil {
		return nil, nil, err
	}
	defer WipeKey(&skE)
	dh, err := DH(skE, pkR)
	if err != nil {
		return nil, nil, err
	}
	defer Wipe(dh[:])
	enc = append([]byte(nil), pkE[:]...)
	return extractAndExpand(dh[:], kemContext(enc, pkR)), enc, nil
}

// Decap recovers the shared secret from enc with skR.
func (s Suite) Decap(skR domain.X25519Private, enc []byte) ([]byte, error) {
	pkE, err := types.X25519PublicFromBytes(enc)
	if err != nil {
		return nil, domain.ErrAuthFailure
	}
	dh, err := DH(skR, pkE)
	if err != nil {
		return nil, domain.ErrAuthFailure
	}
	defer Wipe(dh[:])
	pkR, err := PublicX25519(skR)
	if err != nil {
		return nil, domain.ErrAuthFailure
	}
	return extractAndExpand(dh[:], kemContext(enc, pkR)), nil
}

// HPKESeal is single-shot base-mode HPKE (RFC 9180 §6.1).
func (s Suite) HPKESeal(pkR domain.X25519Public, info, aad, plaintext []byte) (domain.HPKECiphertext, error) {
	shared, enc, err := s.Encap(pkR)
	if err != nil {
		return domain.HPKECiphertext{}, err
	}
	key, nonce := s.hpkeKeySchedule(shared, info)
	Wipe(shared)
	ct, err := s.Seal(key, nonce, aad, plaintext)
	Wipe(key)
	if err != nil {
		return domain.HPKECiphertext{}, err
	}
	return domain.HPKECiphertext{KEMOutput: enc, Ciphertext: ct}, nil
}

// HPKEOpen reverses HPKESeal; failures are domain.ErrAuthFailure.
func (s Suite) HPKEOpen(skR domain.X25519Private, ct domain.HPKECiphertext, info, aad []byte) ([]byte, error) {
	shared, err := s.Decap(skR, ct.KEMOutput)
	if err != nil {
		return nil, err
	}
	key, nonce := s.hpkeKeySchedule(shared, info)
	Wipe(shared)
	defer Wipe(key)
	return s.Open(key, nonce, aad, ct.Ciphertext)
}

// EncryptWithLabel seals plaintext to pub under EncryptContext{label, context}.
func (s Suite) EncryptWithLabel(pub domain.X25519Public, label string, context, plaintext []byte) (domain.HPKECiphertext, error) {
	return s.HPKESeal(pub, encryptContext(label, context), nil, plaintext)
}

// DecryptWithLabel opens an EncryptWithLabel ciphertext.
func (s Suite) DecryptWithLabel(priv domain.X25519Private, label string, context []byte, ct domain.HPKECiphertext) ([]byte, error) {
	return s.HPKEOpen(priv, ct, encryptContext(label, context), nil)
}

func (s Suite) hpkeKeySchedule(shared, info []byte) (key, nonce []byte) {
	suiteID := s.hpkeSuiteID()
	pskIDHash := labeledExtract(suiteID, nil, "psk_id_hash", nil)
	infoHash := labeledExtract(suiteID, nil, "info_hash", info)
	ksContext := make([]byte, 0, 1+len(pskIDHash)+len(infoHash))
	ksContext = append(ksContext, 0x00) // mode_base
	ksContext = append(ksContext, pskIDHash...)
	ksContext = append(ksContext, infoHash...)

	secret := labeledExtract(suiteID, shared, "secret", nil)
	defer Wipe(secret)
	key = labeledExpand(suiteID, secret, "key", ksContext, s.keySize)
	nonce = labeledExpand(suiteID, secret, "base_nonce", ksContext, nonceSize)
	return key, nonce
}

func (s Suite) hpkeSuiteID() []byte {
	out := []byte("HPKE")
	out = binary.BigEndian.AppendUint16(out, kemIDX25519)
	out = binary.BigEndian.AppendUint16(out, kdfIDHKDFSHA256)
	out = binary.BigEndian.AppendUint16(out, s.aeadID)
	return out
}

func kemSuiteID() []byte {
	return binary.BigEndian.AppendUint16([]byte("KEM"), kemIDX25519)
}

func kemContext(enc []byte, pkR domain.X25519Public) []byte {
	out := make([]byte, 0, len(enc)+len(pkR))
	out = append(out, enc...)
	return append(out, pkR[:]...)
}

func extractAndExpand(dh, kemCtx []byte) []byte {
	prk := labeledExtract(kemSuiteID(), nil, "eae_prk", dh)
	defer Wipe(prk)
	return labeledExpand(kemSuiteID(), prk, "shared_secret", kemCtx, kemKeySize)
}

func labeledExtract(suiteID, salt []byte, label string, ikm []byte) []byte {
	in := make([]byte, 0, len(hpkeVersionLabel)+len(suiteID)+len(label)+len(ikm))
	in = append(in, hpkeVersionLabel...)
	in = append(in, suiteID...)
	in = append(in, label...)
	in = append(in, ikm...)
	return Suite{}.Extract(salt, in)
}

func labeledExpand(suiteID, prk []byte, label string, info []byte, length int) []byte {
	in := binary.BigEndian.AppendUint16(nil, uint16(length))
	in = append(in, hpkeVersionLabel...)
	in = append(in, suiteID...)
	in = append(in, label...)
	in = append(in, info...)
	return Suite{}.Expand(prk, in, length)
}

func encryptContext(label string, context []byte) []byte {
	var b cryptobyte.Builder
	addOpaque(&b, []byte(labelPrefix+label))
	addOpaque(&b, context)
	return b.BytesOrPanic()
}
