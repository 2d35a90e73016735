package types

// NodeType tags the variant held by a Node.
type NodeType uint8

const (
	NodeTypeLeaf   NodeType = 1
	NodeTypeParent NodeType = 2
)

// ParentNode is the public state of an internal tree node.
type ParentNode struct {
	EncryptionKey  X25519Public
	UnmergedLeaves []LeafIndex
}

// Node is one filled position of the ratchet tree. Blank positions are
// represented by a nil *Node.
type Node struct {
	Type   NodeType
	Leaf   *LeafNode
	Parent *ParentNode
}

// EncryptionKey returns the public key held by either variant.
func (n *Node) EncryptionKey() X25519Public {
	if n.Type == NodeTypeLeaf {
		return n.Leaf.EncryptionKey
	}
	return n.Parent.EncryptionKey
}

// LeafNodeOf wraps a leaf.
func LeafNodeOf(l LeafNode) *Node { return &Node{Type: NodeTypeLeaf, Leaf: &l} }

// ParentNodeOf wraps a parent.
func ParentNodeOf(p ParentNode) *Node { return &Node{Type: NodeTypeParent, Parent: &p} }

// Member is one roster entry.
type Member struct {
	Index    LeafIndex
	LeafNode LeafNode
}
