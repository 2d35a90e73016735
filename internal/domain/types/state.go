package types

// GroupStatus is the lifecycle position of a local group.
type GroupStatus uint8

const (
	GroupStatusActive     GroupStatus = 1
	GroupStatusTerminated GroupStatus = 2
)

// String names the status.
func (s GroupStatus) String() string {
	switch s {
	case GroupStatusActive:
		return "active"
	case GroupStatusTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// EpochSecrets are the secrets derived from one epoch_secret.
type EpochSecrets struct {
	InitSecret         []byte
	EpochSecret        []byte
	EncryptionSecret   []byte
	ExporterSecret     []byte
	ConfirmationKey    []byte
	MembershipKey      []byte
	ResumptionPSK      []byte
	EpochAuthenticator []byte
}

// NodePrivateKey is a private key the local member holds for a tree node.
type NodePrivateKey struct {
	Node NodeIndex
	Key  X25519Private
}

// PendingProposal is a proposal queued for the next Commit.
type PendingProposal struct {
	Ref      ProposalRef
	Sender   LeafIndex
	Proposal Proposal
}

// PendingUpdate remembers the private key behind a local Update proposal.
type PendingUpdate struct {
	Ref           ProposalRef
	EncryptionKey X25519Private
}

// GroupState is everything the local member needs to resume a group. It is
// owned by one process and only changes by applying a Proposal or Commit.
type GroupState struct {
	GroupID                 GroupID
	Epoch                   Epoch
	CipherSuite             CipherSuite
	Status                  GroupStatus
	OwnLeaf                 LeafIndex
	Tree                    []*Node
	ConfirmedTranscriptHash []byte
	InterimTranscriptHash   []byte
	Secrets                 EpochSecrets
	SignaturePrivate        Ed25519Private
	PrivateKeys             []NodePrivateKey
	PendingProposals        []PendingProposal
	PendingUpdates          []PendingUpdate
}
