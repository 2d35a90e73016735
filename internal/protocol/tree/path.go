package tree

import (
	"grove/internal/crypto"
	"grove/internal/domain"
)

// PathSecrets are the secrets a commit derives along one direct path, from
// the lowest ancestor to the root, plus the commit secret above the root.
type PathSecrets struct {
	Nodes        []domain.NodeIndex
	Secrets      [][]byte
	CommitSecret []byte
}

// DerivePathSecrets derives the secrets of nodes, nearest first, from a
// fresh leaf secret: every step is DeriveSecret(prev, "path") and the commit
// secret is one step above the last node.
func DerivePathSecrets(suite crypto.Suite, leafSecret []byte, nodes []domain.NodeIndex) PathSecrets {
	ps := PathSecrets{Nodes: nodes, Secrets: make([][]byte, len(nodes))}
	cur := leafSecret
	for i := range nodes {
		cur = suite.DeriveSecret(cur, "path")
		ps.Secrets[i] = cur
	}
	ps.CommitSecret = suite.DeriveSecret(cur, "path")
	return ps
}

// ExtendPathSecret is DerivePathSecrets for a receiver that already holds the
// secret of nodes[0].
func ExtendPathSecret(suite crypto.Suite, secret []byte, nodes []domain.NodeIndex) PathSecrets {
	rest := DerivePathSecrets(suite, secret, nodes[1:])
	return PathSecrets{
		Nodes:        nodes,
		Secrets:      append([][]byte{secret}, rest.Secrets...),
		CommitSecret: rest.CommitSecret,
	}
}

// NodeKeyPair derives the key pair a node holds for the given secret. Leaf
// secrets and path secrets go through the same "node" step.
func NodeKeyPair(suite crypto.Suite, secret []byte) (domain.X25519Private, domain.X25519Public, error) {
	nodeSecret := suite.DeriveSecret(secret, "node")
	defer crypto.Wipe(nodeSecret)
	return suite.DeriveKeyPair(nodeSecret)
}

// Above returns the ancestors of x in a tree of the given capacity, nearest
// first.
func (t *Tree) Above(x domain.NodeIndex) []domain.NodeIndex {
	return directPath(x, t.Capacity())
}
