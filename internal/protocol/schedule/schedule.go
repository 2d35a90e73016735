// Package schedule derives per-epoch secrets and keeps the transcript
// hashes that chain epochs together.
package schedule

import (
	"crypto/rand"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/wire"
)

// Epoch is the output of one step of the key schedule.
type Epoch struct {
	JoinerSecret  []byte
	WelcomeSecret []byte
	Secrets       domain.EpochSecrets
}

// Initial creates the secrets of a fresh group's epoch 0 from randomness.
func Initial(suite crypto.Suite) (domain.EpochSecrets, error) {
	epochSecret := make([]byte, suite.SecretSize())
	if _, err := rand.Read(epochSecret); err != nil {
		return domain.EpochSecrets{}, err
	}
	return FromEpochSecret(suite, epochSecret), nil
}

// Advance runs the schedule from the previous epoch's init secret and a
// commit secret to the epoch described by gc. A nil commit secret stands for
// the all-zero secret of a commit without a path.
func Advance(suite crypto.Suite, initSecret, commitSecret []byte, gc domain.GroupContext) Epoch {
	if commitSecret == nil {
		commitSecret = make([]byte, suite.SecretSize())
	}
	prk := suite.Extract(initSecret, commitSecret)
	joiner := suite.ExpandWithLabel(prk, "joiner", wire.MarshalGroupContext(gc), suite.SecretSize())
	crypto.Wipe(prk)
	ep := FromJoiner(suite, joiner, gc)
	ep.JoinerSecret = joiner
	return ep
}

// FromJoiner is the part of the schedule a new member runs from the joiner
// secret carried in its Welcome.
func FromJoiner(suite crypto.Suite, joiner []byte, gc domain.GroupContext) Epoch {
	member := memberSecret(suite, joiner)
	defer crypto.Wipe(member)
	welcome := suite.DeriveSecret(member, "welcome")
	epochSecret := suite.ExpandWithLabel(member, "epoch", wire.MarshalGroupContext(gc), suite.SecretSize())
	return Epoch{
		JoinerSecret:  joiner,
		WelcomeSecret: welcome,
		Secrets:       FromEpochSecret(suite, epochSecret),
	}
}

// WelcomeSecret derives the welcome secret alone; a joiner needs it before it
// can read the group context.
func WelcomeSecret(suite crypto.Suite, joiner []byte) []byte {
	member := memberSecret(suite, joiner)
	defer crypto.Wipe(member)
	return suite.DeriveSecret(member, "welcome")
}

// memberSecret mixes in the pre-shared key secret, which is always Nh zero
// bytes here.
func memberSecret(suite crypto.Suite, joiner []byte) []byte {
	return suite.Extract(joiner, make([]byte, suite.SecretSize()))
}

// FromEpochSecret derives every per-epoch secret.
func FromEpochSecret(suite crypto.Suite, epochSecret []byte) domain.EpochSecrets {
	return domain.EpochSecrets{
		EpochSecret:        epochSecret,
		EncryptionSecret:   suite.DeriveSecret(epochSecret, "encryption"),
		ExporterSecret:     suite.DeriveSecret(epochSecret, "exporter"),
		ConfirmationKey:    suite.DeriveSecret(epochSecret, "confirm"),
		MembershipKey:      suite.DeriveSecret(epochSecret, "membership"),
		ResumptionPSK:      suite.DeriveSecret(epochSecret, "resumption"),
		EpochAuthenticator: suite.DeriveSecret(epochSecret, "authentication"),
		InitSecret:         suite.DeriveSecret(epochSecret, "init"),
	}
}

// WelcomeKeyNonce derives the AEAD key and nonce protecting GroupInfo in a
// Welcome.
func WelcomeKeyNonce(suite crypto.Suite, welcomeSecret []byte) (key, nonce []byte) {
	key = suite.ExpandWithLabel(welcomeSecret, "key", nil, suite.KeySize())
	nonce = suite.ExpandWithLabel(welcomeSecret, "nonce", nil, suite.NonceSize())
	return key, nonce
}

// Export derives length bytes for an application from the exporter secret.
func Export(suite crypto.Suite, exporterSecret []byte, label string, context []byte, length int) []byte {
	derived := suite.DeriveSecret(exporterSecret, label)
	defer crypto.Wipe(derived)
	return suite.ExpandWithLabel(derived, "exported", suite.Hash(context), length)
}
