// Package store provides file-based persistence for a grove client.
//
// It contains concrete implementations of the domain storage interfaces.
// All methods are concurrency-safe via internal locking. Files live under
// the configured home directory.
//
// The package includes:
//   - the identity, sealed under a passphrase (IdentityFileStore)
//   - unconsumed key package private keys (KeyPackageFileStore)
//   - serialized group state, one file per group (GroupFileStore)
//   - a GroupStore wrapper that encrypts blobs at rest (SealedGroupStore)
//
// Database-backed group stores live in the bolt and sqlite subpackages.
package store
