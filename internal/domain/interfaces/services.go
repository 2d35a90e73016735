package interfaces

import (
	"context"

	domaintypes "grove/internal/domain/types"
)

// IdentityService creates, retrieves, and inspects the client identity.
type IdentityService interface {
	CreateClient(passphrase string, identity []byte) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
}

// KeyPackageService generates publishable key packages.
type KeyPackageService interface {
	GenerateKeyPackages(passphrase string, count int) ([]domaintypes.KeyPackage, error)
}

// GroupService runs the group state machine on top of persisted state.
type GroupService interface {
	CreateGroup(
		ctx context.Context,
		passphrase string,
		groupID domaintypes.GroupID,
		members []domaintypes.KeyPackage,
	) (domaintypes.CommitOutput, error)
	JoinGroupByWelcome(
		ctx context.Context,
		passphrase string,
		welcome *domaintypes.Welcome,
		ratchetTree []byte,
	) (domaintypes.GroupSummary, error)
	ExportRatchetTree(
		ctx context.Context,
		passphrase string,
		groupID domaintypes.GroupID,
	) ([]byte, error)
	CheckGroupID(
		ctx context.Context,
		passphrase string,
		groupID domaintypes.GroupID,
	) (domaintypes.GroupID, error)
	LoadGroup(
		ctx context.Context,
		passphrase string,
		groupID domaintypes.GroupID,
	) (domaintypes.GroupSummary, error)

	ProposeAdd(
		ctx context.Context,
		passphrase string,
		groupID domaintypes.GroupID,
		kp domaintypes.KeyPackage,
	) (*domaintypes.ProposalMessage, error)
	ProposeRemove(
		ctx context.Context,
		passphrase string,
		groupID domaintypes.GroupID,
		leaf domaintypes.LeafIndex,
	) (*domaintypes.ProposalMessage, error)
	ProposeUpdate(
		ctx context.Context,
		passphrase string,
		groupID domaintypes.GroupID,
	) (*domaintypes.ProposalMessage, error)
	ReceiveProposal(
		ctx context.Context,
		passphrase string,
		msg *domaintypes.ProposalMessage,
	) error
	Commit(
		ctx context.Context,
		passphrase string,
		groupID domaintypes.GroupID,
		inline []domaintypes.Proposal,
	) (domaintypes.CommitOutput, error)
	ApplyCommit(
		ctx context.Context,
		passphrase string,
		commit *domaintypes.Commit,
	) (domaintypes.GroupSummary, error)
	Leave(
		ctx context.Context,
		passphrase string,
		groupID domaintypes.GroupID,
	) (*domaintypes.ProposalMessage, error)
}

// MessageService processes inbound handshake messages in batches.
type MessageService interface {
	Process(
		ctx context.Context,
		passphrase string,
		msgs []*domaintypes.Message,
	) ([]domaintypes.ProcessResult, error)
}
