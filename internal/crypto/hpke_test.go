package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grove/internal/domain"
)

// Base-mode DHKEM(X25519, HKDF-SHA256) vectors from RFC 9180 appendix A.1.1
// (AES-128-GCM) and A.2.1 (ChaCha20-Poly1305).
var hpkeVectors = []struct {
	name   string
	suite  domain.CipherSuite
	ikmE   string
	ikmR   string
	skEm   string
	skRm   string
	shared string
	key    string
	nonce  string
}{
	{
		name:   "A.1.1",
		suite:  domain.CipherSuiteX25519AES128GCMSHA256Ed25519,
		ikmE:   "7268600d403fce431561aef583ee1613527cff655c1343f29812e66706df3234",
		ikmR:   "6db9df30aa07dd42ee5e8181afdb977e538f5e1fec8a06223f33f7013e525037",
		skEm:   "52c4a758a802cd8b936eceea314432798d5baf2d7e9235dc084ab1b9cfa2f736",
		skRm:   "4612c550263fc8ad58375df3f557aac531d26850903e55a9f23f21d8534e8ac8",
		shared: "fe0e18c9f024ce43799ae393c7e8fe8fce9d218875e8227b0187c04e7d2ea1fc",
		key:    "4531685d41d65f03dc48f6b8302c05b0",
		nonce:  "56d890e5accaaf011cff4b7d",
	},
	{
		name:   "A.2.1",
		suite:  domain.CipherSuiteX25519ChaCha20Poly1305SHA256Ed25519,
		ikmE:   "909a9b35d3dc4713a5e72a4da274b55d3d3821a37e5d099e74a647db583a904b",
		ikmR:   "1ac01f181fdf9f352797655161c58b75c656a6cc2716dcb66372da835542e1df",
		skEm:   "f4ec9b33b792c372c1d2c2063507b684ef925b8c75a42dbcbf57d63ccd381600",
		skRm:   "8057991eef8f1f1af18f4a9491d16a1ce333f695d4db8e38da75975c4478e0fb",
		shared: "0bbe78490412b4bbea4812666f7916932b828bba79942424abb65244930d69a7",
		key:    "ad2744de8e17f4ebba575b3f5f5a8fa1f69c2a07f6e7500bc60ca6e3e3ec1c91",
		nonce:  "5c4d98150661b848853b547f",
	},
}

// "Ode on a Grecian Urn"
const hpkeVectorInfo = "4f6465206f6e2061204772656369616e2055726e"

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestHPKE_KnownAnswers(t *testing.T) {
	for _, v := range hpkeVectors {
		t.Run(v.name, func(t *testing.T) {
			s, err := LookupSuite(v.suite)
			require.NoError(t, err)

			skE, pkE, err := s.DeriveKeyPair(unhex(t, v.ikmE))
			require.NoError(t, err)
			assert.Equal(t, v.skEm, hex.EncodeToString(skE[:]))

			skR, pkR, err := s.DeriveKeyPair(unhex(t, v.ikmR))
			require.NoError(t, err)
			assert.Equal(t, v.skRm, hex.EncodeToString(skR[:]))

			// enc is the serialized ephemeral public key.
			shared, err := s.Decap(skR, pkE[:])
			require.NoError(t, err)
			assert.Equal(t, v.shared, hex.EncodeToString(shared))

			key, nonce := s.hpkeKeySchedule(shared, unhex(t, hpkeVectorInfo))
			assert.Equal(t, v.key, hex.EncodeToString(key))
			assert.Equal(t, v.nonce, hex.EncodeToString(nonce))

			// The sender side derives the same secret from skE and pkR.
			dh, err := DH(skE, pkR)
			require.NoError(t, err)
			assert.Equal(t, v.shared, hex.EncodeToString(extractAndExpand(dh[:], kemContext(pkE[:], pkR))))
		})
	}
}

func TestHPKE_KnownCiphertext(t *testing.T) {
	s, err := LookupSuite(domain.CipherSuiteX25519AES128GCMSHA256Ed25519)
	require.NoError(t, err)

	// A.1.1, sequence number 0
	ct, err := s.Seal(
		unhex(t, hpkeVectors[0].key),
		unhex(t, hpkeVectors[0].nonce),
		unhex(t, "436f756e742d30"),
		unhex(t, "4265617574792069732074727574682c20747275746820626561757479"),
	)
	require.NoError(t, err)
	assert.Equal(t, "f938558b5d72f1a23810b4be2ab4f84331acc02fc97babc53a52ae8218a355a96d8770ac83d07bea87e13c512a", hex.EncodeToString(ct))
}
