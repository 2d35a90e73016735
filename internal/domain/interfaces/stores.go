package interfaces

import (
	"context"

	domaintypes "grove/internal/domain/types"
)

// IdentityStore persists your long-term signing identity.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// KeyPackageStore keeps the private halves of published key packages until
// each is consumed by a Welcome.
type KeyPackageStore interface {
	SaveKeyPackage(
		ref domaintypes.KeyPackageRef,
		kp domaintypes.KeyPackage,
		priv domaintypes.KeyPackagePrivateKeys,
	) error
	LoadKeyPackage(ref domaintypes.KeyPackageRef) (
		kp domaintypes.KeyPackage,
		priv domaintypes.KeyPackagePrivateKeys,
		ok bool,
		err error,
	)
	// ConsumeKeyPackage removes and returns the key package; a second call
	// for the same ref reports ok=false.
	ConsumeKeyPackage(ref domaintypes.KeyPackageRef) (
		kp domaintypes.KeyPackage,
		priv domaintypes.KeyPackagePrivateKeys,
		ok bool,
		err error,
	)
	ListKeyPackageRefs() ([]domaintypes.KeyPackageRef, error)
}

// GroupStore maps group ids to the latest serialized group state.
// Last write wins; LoadGroup returns domain.ErrNotFound for unknown ids.
type GroupStore interface {
	SaveGroup(ctx context.Context, id domaintypes.GroupID, blob []byte) error
	LoadGroup(ctx context.Context, id domaintypes.GroupID) ([]byte, error)
	DeleteGroup(ctx context.Context, id domaintypes.GroupID) error
	ListGroups(ctx context.Context) ([]domaintypes.GroupID, error)
}
