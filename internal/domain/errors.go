package domain

import "errors"

// Error taxonomy shared by every layer. Callers match with errors.Is; the
// concrete error usually wraps one of these with context.
var (
	// ErrValidationFailed covers signature, tag, suite and proposal checks.
	// Never retried automatically.
	ErrValidationFailed = errors.New("validation failed")
	// ErrStaleEpoch means a commit is not for current epoch + 1; the caller
	// has to resynchronize.
	ErrStaleEpoch = errors.New("stale epoch")
	// ErrAuthFailure is an AEAD or decapsulation failure.
	ErrAuthFailure = errors.New("authentication failure")
	// ErrDecryptFailure is returned when a Welcome cannot be opened.
	ErrDecryptFailure = errors.New("welcome decrypt failure")
	// ErrTreeMismatch means a supplied tree snapshot disagrees with GroupInfo.
	ErrTreeMismatch = errors.New("ratchet tree mismatch")

	ErrDuplicateGroupID = errors.New("group id already exists")
	ErrNotFound         = errors.New("not found")

	ErrInvalidProposal  = errors.New("invalid proposal")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrUnsupportedSuite = errors.New("unsupported cipher suite")
	ErrExpired          = errors.New("key package expired")
	ErrTerminated       = errors.New("group terminated")
	ErrMalformed        = errors.New("malformed message")
)
