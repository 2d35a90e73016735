package types

import "encoding/hex"

// ProposalType tags the variant held by a Proposal.
type ProposalType uint16

const (
	ProposalTypeAdd    ProposalType = 1
	ProposalTypeUpdate ProposalType = 2
	ProposalTypeRemove ProposalType = 3
)

// String names the proposal type for logs.
func (t ProposalType) String() string {
	switch t {
	case ProposalTypeAdd:
		return "add"
	case ProposalTypeUpdate:
		return "update"
	case ProposalTypeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// AddProposal adds the holder of KeyPackage to the group.
type AddProposal struct {
	KeyPackage KeyPackage
}

// UpdateProposal replaces the sender's leaf.
type UpdateProposal struct {
	LeafNode LeafNode
}

// RemoveProposal blanks the leaf at Removed.
type RemoveProposal struct {
	Removed LeafIndex
}

// Proposal is a pending change. Exactly one variant pointer is set, matching
// Type; build values with the New*Proposal constructors.
type Proposal struct {
	Type   ProposalType
	Add    *AddProposal
	Update *UpdateProposal
	Remove *RemoveProposal
}

// NewAddProposal proposes adding the owner of kp.
func NewAddProposal(kp KeyPackage) Proposal {
	return Proposal{Type: ProposalTypeAdd, Add: &AddProposal{KeyPackage: kp}}
}

// NewUpdateProposal proposes replacing the sender's leaf with leaf.
func NewUpdateProposal(leaf LeafNode) Proposal {
	return Proposal{Type: ProposalTypeUpdate, Update: &UpdateProposal{LeafNode: leaf}}
}

// NewRemoveProposal proposes removing the member at idx.
func NewRemoveProposal(idx LeafIndex) Proposal {
	return Proposal{Type: ProposalTypeRemove, Remove: &RemoveProposal{Removed: idx}}
}

// ProposalRef is the hash reference of a distributed proposal message.
type ProposalRef []byte

// String returns the hex form of the reference.
func (r ProposalRef) String() string { return hex.EncodeToString(r) }

// ProposalOrRefType tags ProposalOrRef.
type ProposalOrRefType uint8

const (
	ProposalOrRefInline    ProposalOrRefType = 1
	ProposalOrRefReference ProposalOrRefType = 2
)

// ProposalOrRef is how a Commit lists its proposals: inline, or by reference
// to a proposal message every member already holds.
type ProposalOrRef struct {
	Type      ProposalOrRefType
	Proposal  *Proposal
	Reference ProposalRef
}

// ProposalMessage is a standalone, signed proposal sent to the group.
type ProposalMessage struct {
	GroupID   GroupID
	Epoch     Epoch
	Sender    LeafIndex
	Proposal  Proposal
	Signature []byte
}
