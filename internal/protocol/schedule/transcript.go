package schedule

import (
	"slices"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/wire"
)

// ConfirmedTranscriptHash folds a signed commit into the transcript.
func ConfirmedTranscriptHash(suite crypto.Suite, interim []byte, c *domain.Commit) ([]byte, error) {
	in, err := wire.ConfirmedTranscriptHashInput(c)
	if err != nil {
		return nil, err
	}
	return suite.Hash(slices.Concat(interim, in)), nil
}

// InterimTranscriptHash folds the confirmation tag of an epoch into its
// confirmed transcript hash.
func InterimTranscriptHash(suite crypto.Suite, confirmed, tag []byte) []byte {
	return suite.Hash(slices.Concat(confirmed, wire.InterimTranscriptHashInput(tag)))
}

// ConfirmationTag authenticates the confirmed transcript hash with the new
// epoch's confirmation key.
func ConfirmationTag(suite crypto.Suite, confirmationKey, confirmed []byte) []byte {
	return suite.MAC(confirmationKey, confirmed)
}

// VerifyConfirmationTag compares in constant time.
func VerifyConfirmationTag(suite crypto.Suite, confirmationKey, confirmed, tag []byte) bool {
	return suite.VerifyMAC(confirmationKey, confirmed, tag)
}
