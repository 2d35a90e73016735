package keypackage

import (
	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/wire"
)

const leafNodeLabel = "LeafNodeTBS"

// SignLeaf fills leaf.Signature. groupID and index only matter for update
// and commit leaves.
func SignLeaf(suite crypto.Suite, signer domain.Ed25519Private, leaf *domain.LeafNode, groupID domain.GroupID, index domain.LeafIndex) {
	leaf.Signature = suite.SignWithLabel(signer, leafNodeLabel, wire.LeafNodeTBS(*leaf, groupID, index))
}

// VerifyLeaf checks a leaf signature against the key in its own credential.
func VerifyLeaf(suite crypto.Suite, leaf domain.LeafNode, groupID domain.GroupID, index domain.LeafIndex) bool {
	return suite.VerifyWithLabel(leaf.Credential.SignatureKey, leafNodeLabel, wire.LeafNodeTBS(leaf, groupID, index), leaf.Signature)
}

// NewLeaf builds and signs a leaf for an Update proposal or a commit path,
// reusing the credential and capabilities of prev.
func NewLeaf(
	suite crypto.Suite,
	signer domain.Ed25519Private,
	prev domain.LeafNode,
	encKey domain.X25519Public,
	source domain.LeafNodeSource,
	groupID domain.GroupID,
	index domain.LeafIndex,
) domain.LeafNode {
	leaf := domain.LeafNode{
		EncryptionKey: encKey,
		Credential:    prev.Credential,
		Capabilities:  prev.Capabilities,
		Source:        source,
	}
	SignLeaf(suite, signer, &leaf, groupID, index)
	return leaf
}
