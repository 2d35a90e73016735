// Package group runs the group state machine on top of persisted state.
//
// Every call loads the identity with the caller's passphrase, opens the
// group store sealed under the identity's storage key, and serializes work
// on one group id behind a per-group lock. A call either persists the next
// state or leaves the stored state untouched.
package group
