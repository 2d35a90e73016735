package domain

import (
	interfaces "grove/internal/domain/interfaces"
	types "grove/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	GroupID               = types.GroupID
	Epoch                 = types.Epoch
	LeafIndex             = types.LeafIndex
	NodeIndex             = types.NodeIndex
	CipherSuite           = types.CipherSuite
	ProtocolVersion       = types.ProtocolVersion
	Fingerprint           = types.Fingerprint
	Identity              = types.Identity
	Credential            = types.Credential
	Capabilities          = types.Capabilities
	Lifetime              = types.Lifetime
	LeafNodeSource        = types.LeafNodeSource
	LeafNode              = types.LeafNode
	ParentNode            = types.ParentNode
	Node                  = types.Node
	NodeType              = types.NodeType
	Member                = types.Member
	KeyPackage            = types.KeyPackage
	KeyPackagePrivateKeys = types.KeyPackagePrivateKeys
	KeyPackageRef         = types.KeyPackageRef
	ProposalType          = types.ProposalType
	Proposal              = types.Proposal
	AddProposal           = types.AddProposal
	UpdateProposal        = types.UpdateProposal
	RemoveProposal        = types.RemoveProposal
	ProposalRef           = types.ProposalRef
	ProposalOrRef         = types.ProposalOrRef
	ProposalOrRefType     = types.ProposalOrRefType
	ProposalMessage       = types.ProposalMessage
	HPKECiphertext        = types.HPKECiphertext
	UpdatePathNode        = types.UpdatePathNode
	UpdatePath            = types.UpdatePath
	Commit                = types.Commit
	GroupContext          = types.GroupContext
	GroupInfo             = types.GroupInfo
	GroupSecrets          = types.GroupSecrets
	EncryptedGroupSecrets = types.EncryptedGroupSecrets
	Welcome               = types.Welcome
	WireFormat            = types.WireFormat
	Message               = types.Message
	GroupStatus           = types.GroupStatus
	EpochSecrets          = types.EpochSecrets
	NodePrivateKey        = types.NodePrivateKey
	PendingProposal       = types.PendingProposal
	PendingUpdate         = types.PendingUpdate
	GroupState            = types.GroupState
	GroupSummary          = types.GroupSummary
	MemberWelcome         = types.MemberWelcome
	CommitOutput          = types.CommitOutput
	ProcessResult         = types.ProcessResult
	X25519Public          = types.X25519Public
	X25519Private         = types.X25519Private
	Ed25519Public         = types.Ed25519Public
	Ed25519Private        = types.Ed25519Private
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityService   = interfaces.IdentityService
	KeyPackageService = interfaces.KeyPackageService
	GroupService      = interfaces.GroupService
	MessageService    = interfaces.MessageService
	IdentityStore     = interfaces.IdentityStore
	KeyPackageStore   = interfaces.KeyPackageStore
	GroupStore        = interfaces.GroupStore
)

// Constant aliases mirror the enumerations of the types subpackage.
const (
	CipherSuiteX25519AES128GCMSHA256Ed25519        = types.CipherSuiteX25519AES128GCMSHA256Ed25519
	CipherSuiteX25519ChaCha20Poly1305SHA256Ed25519 = types.CipherSuiteX25519ChaCha20Poly1305SHA256Ed25519

	ProtocolVersionMLS10 = types.ProtocolVersionMLS10

	NodeTypeLeaf   = types.NodeTypeLeaf
	NodeTypeParent = types.NodeTypeParent

	LeafNodeSourceKeyPackage = types.LeafNodeSourceKeyPackage
	LeafNodeSourceUpdate     = types.LeafNodeSourceUpdate
	LeafNodeSourceCommit     = types.LeafNodeSourceCommit

	ProposalTypeAdd    = types.ProposalTypeAdd
	ProposalTypeUpdate = types.ProposalTypeUpdate
	ProposalTypeRemove = types.ProposalTypeRemove

	ProposalOrRefInline    = types.ProposalOrRefInline
	ProposalOrRefReference = types.ProposalOrRefReference

	WireFormatProposal   = types.WireFormatProposal
	WireFormatCommit     = types.WireFormatCommit
	WireFormatWelcome    = types.WireFormatWelcome
	WireFormatGroupInfo  = types.WireFormatGroupInfo
	WireFormatKeyPackage = types.WireFormatKeyPackage

	GroupStatusActive     = types.GroupStatusActive
	GroupStatusTerminated = types.GroupStatusTerminated
)

// Constructor aliases.
var (
	GroupIDFromString = types.GroupIDFromString
	NewAddProposal    = types.NewAddProposal
	NewUpdateProposal = types.NewUpdateProposal
	NewRemoveProposal = types.NewRemoveProposal
	LeafNodeOf        = types.LeafNodeOf
	ParentNodeOf      = types.ParentNodeOf
)
