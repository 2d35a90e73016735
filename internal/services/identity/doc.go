// Package identity manages creation, encryption and loading of the local identity.
//
// It enforces passphrase policy, generates the Ed25519 signing key pair and
// the random storage key for group state, and persists them via the
// domain.IdentityStore.
package identity
