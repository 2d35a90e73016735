package wire

import (
	"golang.org/x/crypto/cryptobyte"

	"grove/internal/domain"
)

func addParentNode(b *cryptobyte.Builder, p domain.ParentNode) {
	addOpaque(b, p.EncryptionKey[:])
	addVector(b, func(b *cryptobyte.Builder) {
		for _, l := range p.UnmergedLeaves {
			b.AddUint32(uint32(l))
		}
	})
}

func readParentNode(s *cryptobyte.String, p *domain.ParentNode) bool {
	p.UnmergedLeaves = nil
	return readFixed(s, p.EncryptionKey[:]) && readVector(s, func(s *cryptobyte.String) bool {
		var l uint32
		if !s.ReadUint32(&l) {
			return false
		}
		p.UnmergedLeaves = append(p.UnmergedLeaves, domain.LeafIndex(l))
		return true
	})
}

func addNode(b *cryptobyte.Builder, n *domain.Node) {
	b.AddUint8(uint8(n.Type))
	switch n.Type {
	case domain.NodeTypeLeaf:
		addLeafNode(b, *n.Leaf)
	case domain.NodeTypeParent:
		addParentNode(b, *n.Parent)
	default:
		b.SetError(errUnknownNodeType)
	}
}

func readNode(s *cryptobyte.String, n *domain.Node) bool {
	var t uint8
	if !s.ReadUint8(&t) {
		return false
	}
	n.Type = domain.NodeType(t)
	switch n.Type {
	case domain.NodeTypeLeaf:
		n.Leaf = new(domain.LeafNode)
		return readLeafNode(s, n.Leaf)
	case domain.NodeTypeParent:
		n.Parent = new(domain.ParentNode)
		return readParentNode(s, n.Parent)
	default:
		return false
	}
}

func addNodes(b *cryptobyte.Builder, nodes []*domain.Node) {
	addVector(b, func(b *cryptobyte.Builder) {
		for _, n := range nodes {
			addOptional(b, n != nil, func(b *cryptobyte.Builder) { addNode(b, n) })
		}
	})
}

func readNodes(s *cryptobyte.String, out *[]*domain.Node) bool {
	*out = nil
	return readVector(s, func(s *cryptobyte.String) bool {
		n := new(domain.Node)
		present, ok := readOptional(s, func(s *cryptobyte.String) bool { return readNode(s, n) })
		if !ok {
			return false
		}
		if !present {
			n = nil
		}
		*out = append(*out, n)
		return true
	})
}

// MarshalTree encodes a ratchet tree snapshot: optional<Node> per array
// position, nil meaning blank.
func MarshalTree(nodes []*domain.Node) ([]byte, error) {
	var b cryptobyte.Builder
	addNodes(&b, nodes)
	return b.Bytes()
}

// UnmarshalTree decodes a MarshalTree result. Shape checks are left to the
// tree package.
func UnmarshalTree(data []byte) ([]*domain.Node, error) {
	var nodes []*domain.Node
	err := decode("ratchet tree", data, func(s *cryptobyte.String) bool { return readNodes(s, &nodes) })
	return nodes, err
}

// LeafHashInput is the tree-hash input of leaf position index.
func LeafHashInput(index domain.LeafIndex, leaf *domain.LeafNode) []byte {
	return encode(func(b *cryptobyte.Builder) {
		b.AddUint8(uint8(domain.NodeTypeLeaf))
		b.AddUint32(uint32(index))
		addOptional(b, leaf != nil, func(b *cryptobyte.Builder) { addLeafNode(b, *leaf) })
	})
}

// ParentHashInput is the tree-hash input of a parent position given the
// hashes of its children.
func ParentHashInput(p *domain.ParentNode, leftHash, rightHash []byte) []byte {
	return encode(func(b *cryptobyte.Builder) {
		b.AddUint8(uint8(domain.NodeTypeParent))
		addOptional(b, p != nil, func(b *cryptobyte.Builder) { addParentNode(b, *p) })
		addOpaque(b, leftHash)
		addOpaque(b, rightHash)
	})
}
