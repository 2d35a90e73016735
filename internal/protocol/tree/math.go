package tree

import (
	"math/bits"

	"grove/internal/domain"
)

// level is the height of x above the leaves: its count of trailing one bits.
func level(x domain.NodeIndex) uint {
	return uint(bits.TrailingZeros32(^uint32(x)))
}

func isLeaf(x domain.NodeIndex) bool { return x%2 == 0 }

func left(x domain.NodeIndex) domain.NodeIndex {
	k := level(x)
	return x ^ (1 << (k - 1))
}

func right(x domain.NodeIndex) domain.NodeIndex {
	k := level(x)
	return x ^ (3 << (k - 1))
}

func parent(x domain.NodeIndex) domain.NodeIndex {
	k := level(x)
	b := (x >> (k + 1)) & 1
	return (x | (1 << k)) ^ (b << (k + 1))
}

func sibling(x domain.NodeIndex) domain.NodeIndex {
	p := parent(x)
	if x < p {
		return right(p)
	}
	return left(p)
}

// rootOf is the root of a tree with n leaves, n a power of two.
func rootOf(n uint32) domain.NodeIndex { return domain.NodeIndex(n - 1) }

func widthOf(n uint32) int { return int(2*n - 1) }

// inSubtree reports whether y lies under (or is) x.
func inSubtree(x, y domain.NodeIndex) bool {
	half := domain.NodeIndex(1)<<level(x) - 1
	return y >= x-half && y <= x+half
}

// directPath lists the ancestors of x, nearest first, ending at the root of
// an n-leaf tree.
func directPath(x domain.NodeIndex, n uint32) []domain.NodeIndex {
	r := rootOf(n)
	var out []domain.NodeIndex
	for x != r {
		x = parent(x)
		out = append(out, x)
	}
	return out
}

// copath lists the siblings of x and of each of its ancestors below the root.
func copath(x domain.NodeIndex, n uint32) []domain.NodeIndex {
	r := rootOf(n)
	var out []domain.NodeIndex
	for x != r {
		out = append(out, sibling(x))
		x = parent(x)
	}
	return out
}

// CommonAncestor returns the lowest node whose subtree holds both leaves.
func CommonAncestor(a, b domain.LeafIndex) domain.NodeIndex {
	x, y := a.NodeIndex(), b.NodeIndex()
	if x == y {
		return x
	}
	for !inSubtree(x, y) {
		x = parent(x)
	}
	return x
}

// InSubtree reports whether leaf lies under node x.
func InSubtree(x domain.NodeIndex, leaf domain.LeafIndex) bool {
	return inSubtree(x, leaf.NodeIndex())
}
