package types

// GroupSummary is the read-only view of a group handed to callers.
type GroupSummary struct {
	GroupID            GroupID
	Epoch              Epoch
	Status             GroupStatus
	CipherSuite        CipherSuite
	OwnLeaf            LeafIndex
	Members            []Member
	EpochAuthenticator []byte
}

// MemberWelcome pairs a Welcome with the key package it was sealed to.
type MemberWelcome struct {
	Member  KeyPackageRef
	Welcome *Welcome
}

// CommitOutput is what a committer distributes: the Commit for existing
// members and one Welcome per added member.
type CommitOutput struct {
	Summary  GroupSummary
	Commit   *Commit
	Welcomes []MemberWelcome
}

// ProcessResult reports the outcome of one inbound message.
type ProcessResult struct {
	WireFormat WireFormat
	GroupID    GroupID
	Epoch      Epoch
	Err        error
}
