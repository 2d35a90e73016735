package tree

import (
	"errors"
	"fmt"
	"slices"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/wire"
)

var (
	errLeafOutOfRange = errors.New("tree: leaf index out of range")
	errBlankLeaf      = errors.New("tree: leaf is blank")
)

// Tree is an array-backed ratchet tree. The zero value is not usable; build
// one with New or Import.
type Tree struct {
	nodes []*domain.Node
}

// New returns a one-leaf tree holding leaf.
func New(leaf domain.LeafNode) *Tree {
	return &Tree{nodes: []*domain.Node{domain.LeafNodeOf(leaf)}}
}

// FromNodes adopts a node array after checking its shape. The slice is
// copied deeply.
func FromNodes(nodes []*domain.Node) (*Tree, error) {
	w := len(nodes)
	if w == 0 || (w+1)&w != 0 {
		return nil, fmt.Errorf("%w: tree width %d", domain.ErrMalformed, w)
	}
	n := uint32(w+1) / 2
	for i, node := range nodes {
		if node == nil {
			continue
		}
		x := domain.NodeIndex(i)
		switch {
		case isLeaf(x) && (node.Type != domain.NodeTypeLeaf || node.Leaf == nil):
			return nil, fmt.Errorf("%w: node %d is not a leaf", domain.ErrMalformed, i)
		case !isLeaf(x) && (node.Type != domain.NodeTypeParent || node.Parent == nil):
			return nil, fmt.Errorf("%w: node %d is not a parent", domain.ErrMalformed, i)
		case !isLeaf(x):
			for _, l := range node.Parent.UnmergedLeaves {
				if uint32(l) >= n || !inSubtree(x, l.NodeIndex()) {
					return nil, fmt.Errorf("%w: node %d lists foreign unmerged leaf %d", domain.ErrMalformed, i, l)
				}
			}
		}
	}
	return &Tree{nodes: cloneNodes(nodes)}, nil
}

// Import decodes a snapshot produced by Export.
func Import(data []byte) (*Tree, error) {
	nodes, err := wire.UnmarshalTree(data)
	if err != nil {
		return nil, err
	}
	return FromNodes(nodes)
}

// Export encodes the whole array, blanks included.
func (t *Tree) Export() ([]byte, error) {
	return wire.MarshalTree(t.nodes)
}

// Nodes returns a deep copy of the node array.
func (t *Tree) Nodes() []*domain.Node { return cloneNodes(t.nodes) }

// Clone returns an independent copy.
func (t *Tree) Clone() *Tree { return &Tree{nodes: cloneNodes(t.nodes)} }

// Capacity is the number of leaf positions, blank or not.
func (t *Tree) Capacity() uint32 { return uint32(len(t.nodes)+1) / 2 }

// Root is the index of the root node.
func (t *Tree) Root() domain.NodeIndex { return rootOf(t.Capacity()) }

// Node returns the node at x, or nil when blank or out of range.
func (t *Tree) Node(x domain.NodeIndex) *domain.Node {
	if int(x) >= len(t.nodes) {
		return nil
	}
	return t.nodes[x]
}

// Leaf returns the leaf at i, or nil when blank or out of range.
func (t *Tree) Leaf(i domain.LeafIndex) *domain.LeafNode {
	n := t.Node(i.NodeIndex())
	if n == nil {
		return nil
	}
	return n.Leaf
}

// Members lists the non-blank leaves in index order.
func (t *Tree) Members() []domain.Member {
	var out []domain.Member
	for i := domain.LeafIndex(0); uint32(i) < t.Capacity(); i++ {
		if l := t.Leaf(i); l != nil {
			out = append(out, domain.Member{Index: i, LeafNode: *l})
		}
	}
	return out
}

// MemberCount is the number of non-blank leaves.
func (t *Tree) MemberCount() int {
	c := 0
	for i := 0; i < len(t.nodes); i += 2 {
		if t.nodes[i] != nil {
			c++
		}
	}
	return c
}

// FindLeaf returns the first leaf whose encryption key is pub.
func (t *Tree) FindLeaf(pub domain.X25519Public) (domain.LeafIndex, bool) {
	for i := domain.LeafIndex(0); uint32(i) < t.Capacity(); i++ {
		if l := t.Leaf(i); l != nil && l.EncryptionKey == pub {
			return i, true
		}
	}
	return 0, false
}

// DirectPath lists the ancestors of leaf i, nearest first, root last.
func (t *Tree) DirectPath(i domain.LeafIndex) []domain.NodeIndex {
	return directPath(i.NodeIndex(), t.Capacity())
}

// Copath lists the sibling of leaf i and of each ancestor below the root.
func (t *Tree) Copath(i domain.LeafIndex) []domain.NodeIndex {
	return copath(i.NodeIndex(), t.Capacity())
}

// Resolution returns the minimal set of non-blank nodes covering the subtree
// of x: the node itself plus its unmerged leaves, or the resolutions of its
// children when x is blank.
func (t *Tree) Resolution(x domain.NodeIndex) []domain.NodeIndex {
	n := t.Node(x)
	if n == nil {
		if isLeaf(x) {
			return nil
		}
		return append(t.Resolution(left(x)), t.Resolution(right(x))...)
	}
	out := []domain.NodeIndex{x}
	if n.Type == domain.NodeTypeParent {
		for _, l := range n.Parent.UnmergedLeaves {
			out = append(out, l.NodeIndex())
		}
	}
	return out
}

// AddLeaf places leaf in the leftmost blank position, doubling the capacity
// when there is none, and records it as unmerged on its non-blank ancestors.
func (t *Tree) AddLeaf(leaf domain.LeafNode) domain.LeafIndex {
	idx, ok := t.firstBlankLeaf()
	if !ok {
		idx = domain.LeafIndex(t.Capacity())
		t.grow()
	}
	t.nodes[idx.NodeIndex()] = domain.LeafNodeOf(leaf)
	for _, p := range t.DirectPath(idx) {
		if n := t.nodes[p]; n != nil {
			n.Parent.UnmergedLeaves = append(n.Parent.UnmergedLeaves, idx)
		}
	}
	return idx
}

// RemoveLeaf blanks leaf i and its whole direct path. The capacity is kept.
func (t *Tree) RemoveLeaf(i domain.LeafIndex) error {
	if err := t.checkLeaf(i); err != nil {
		return err
	}
	t.nodes[i.NodeIndex()] = nil
	t.blankPath(i)
	return nil
}

// UpdateLeaf replaces leaf i and blanks its direct path.
func (t *Tree) UpdateLeaf(i domain.LeafIndex, leaf domain.LeafNode) error {
	if err := t.checkLeaf(i); err != nil {
		return err
	}
	t.nodes[i.NodeIndex()] = domain.LeafNodeOf(leaf)
	t.blankPath(i)
	return nil
}

// MergePath installs a committer's new leaf and one fresh public key per
// direct-path node. Unmerged leaves on the path are cleared.
func (t *Tree) MergePath(i domain.LeafIndex, leaf domain.LeafNode, pubs []domain.X25519Public) error {
	if err := t.checkLeaf(i); err != nil {
		return err
	}
	path := t.DirectPath(i)
	if len(pubs) != len(path) {
		return fmt.Errorf("tree: path has %d nodes, got %d keys", len(path), len(pubs))
	}
	t.nodes[i.NodeIndex()] = domain.LeafNodeOf(leaf)
	for k, p := range path {
		t.nodes[p] = domain.ParentNodeOf(domain.ParentNode{EncryptionKey: pubs[k]})
	}
	return nil
}

// Hash is the tree hash of the root.
func (t *Tree) Hash(suite crypto.Suite) []byte {
	return t.hashNode(suite, t.Root())
}

func (t *Tree) hashNode(suite crypto.Suite, x domain.NodeIndex) []byte {
	n := t.nodes[x]
	if isLeaf(x) {
		var leaf *domain.LeafNode
		if n != nil {
			leaf = n.Leaf
		}
		return suite.Hash(wire.LeafHashInput(domain.LeafIndex(x/2), leaf))
	}
	var p *domain.ParentNode
	if n != nil {
		p = n.Parent
	}
	return suite.Hash(wire.ParentHashInput(p, t.hashNode(suite, left(x)), t.hashNode(suite, right(x))))
}

func (t *Tree) checkLeaf(i domain.LeafIndex) error {
	if uint32(i) >= t.Capacity() {
		return fmt.Errorf("%w: %d", errLeafOutOfRange, i)
	}
	if t.nodes[i.NodeIndex()] == nil {
		return fmt.Errorf("%w: %d", errBlankLeaf, i)
	}
	return nil
}

func (t *Tree) blankPath(i domain.LeafIndex) {
	for _, p := range t.DirectPath(i) {
		t.nodes[p] = nil
	}
}

func (t *Tree) firstBlankLeaf() (domain.LeafIndex, bool) {
	for i := 0; i < len(t.nodes); i += 2 {
		if t.nodes[i] == nil {
			return domain.LeafIndex(i / 2), true
		}
	}
	return 0, false
}

// grow doubles the leaf capacity. Existing nodes keep their indexes because
// the old tree becomes the left subtree of the new root.
func (t *Tree) grow() {
	grown := make([]*domain.Node, widthOf(2*t.Capacity()))
	copy(grown, t.nodes)
	t.nodes = grown
}

func cloneNodes(nodes []*domain.Node) []*domain.Node {
	out := make([]*domain.Node, len(nodes))
	for i, n := range nodes {
		if n == nil {
			continue
		}
		c := &domain.Node{Type: n.Type}
		if n.Leaf != nil {
			l := *n.Leaf
			l.Credential.Identity = slices.Clone(l.Credential.Identity)
			l.Capabilities.Versions = slices.Clone(l.Capabilities.Versions)
			l.Capabilities.CipherSuites = slices.Clone(l.Capabilities.CipherSuites)
			l.Signature = slices.Clone(l.Signature)
			c.Leaf = &l
		}
		if n.Parent != nil {
			p := *n.Parent
			p.UnmergedLeaves = slices.Clone(p.UnmergedLeaves)
			c.Parent = &p
		}
		out[i] = c
	}
	return out
}
