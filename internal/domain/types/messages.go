package types

// HPKECiphertext is a KEM encapsulation plus the sealed payload.
type HPKECiphertext struct {
	KEMOutput  []byte
	Ciphertext []byte
}

// UpdatePathNode carries the new public key of one direct-path node and its
// path secret encrypted to each node in the copath child's resolution.
type UpdatePathNode struct {
	EncryptionKey       X25519Public
	EncryptedPathSecret []HPKECiphertext
}

// UpdatePath is the committer's fresh leaf plus one entry per ancestor.
type UpdatePath struct {
	LeafNode LeafNode
	Nodes    []UpdatePathNode
}

// Commit moves a group from Epoch-1 to Epoch.
type Commit struct {
	GroupID         GroupID
	Epoch           Epoch
	Sender          LeafIndex
	Proposals       []ProposalOrRef
	Path            *UpdatePath
	Signature       []byte
	ConfirmationTag []byte
}

// GroupContext summarises a group at one epoch; it is mixed into every
// derivation and signature of that epoch.
type GroupContext struct {
	Version                 ProtocolVersion
	CipherSuite             CipherSuite
	GroupID                 GroupID
	Epoch                   Epoch
	TreeHash                []byte
	ConfirmedTranscriptHash []byte
}

// GroupInfo lets a joiner validate a Welcome without replaying history.
type GroupInfo struct {
	GroupContext    GroupContext
	ConfirmationTag []byte
	Signer          LeafIndex
	Signature       []byte
}

// GroupSecrets is what a Welcome delivers to one new member. PathSecret is
// empty when the committer sent no path.
type GroupSecrets struct {
	JoinerSecret []byte
	PathSecret   []byte
}

// EncryptedGroupSecrets is GroupSecrets sealed to NewMember's init key.
type EncryptedGroupSecrets struct {
	NewMember             KeyPackageRef
	EncryptedGroupSecrets HPKECiphertext
}

// Welcome bootstraps new members at the epoch a Commit created.
type Welcome struct {
	CipherSuite        CipherSuite
	Secrets            []EncryptedGroupSecrets
	EncryptedGroupInfo []byte
}

// WireFormat tags the payload of a Message.
type WireFormat uint16

const (
	WireFormatProposal   WireFormat = 1
	WireFormatCommit     WireFormat = 2
	WireFormatWelcome    WireFormat = 3
	WireFormatGroupInfo  WireFormat = 4
	WireFormatKeyPackage WireFormat = 5
)

// String names the wire format for logs.
func (w WireFormat) String() string {
	switch w {
	case WireFormatProposal:
		return "proposal"
	case WireFormatCommit:
		return "commit"
	case WireFormatWelcome:
		return "welcome"
	case WireFormatGroupInfo:
		return "group_info"
	case WireFormatKeyPackage:
		return "key_package"
	default:
		return "unknown"
	}
}

// Message is the envelope handed to and received from the delivery service.
type Message struct {
	Version    ProtocolVersion
	WireFormat WireFormat
	Proposal   *ProposalMessage
	Commit     *Commit
	Welcome    *Welcome
	GroupInfo  *GroupInfo
	KeyPackage *KeyPackage
}

// GroupID returns the group a group-scoped message belongs to, or nil.
func (m *Message) GroupID() GroupID {
	switch m.WireFormat {
	case WireFormatProposal:
		return m.Proposal.GroupID
	case WireFormatCommit:
		return m.Commit.GroupID
	case WireFormatGroupInfo:
		return m.GroupInfo.GroupContext.GroupID
	default:
		return nil
	}
}
