package tree

import (
	"testing"

	"grove/internal/domain"
)

func TestTreeMath_EightLeaves(t *testing.T) {
	cases := []struct {
		x, parent domain.NodeIndex
	}{
		{0, 1}, {2, 1}, {1, 3}, {5, 3}, {3, 7}, {11, 7}, {9, 11}, {14, 13},
	}
	for _, c := range cases {
		if got := parent(c.x); got != c.parent {
			t.Fatalf("parent(%d) = %d, want %d", c.x, got, c.parent)
		}
	}
	if left(7) != 3 || right(7) != 11 || left(3) != 1 || right(1) != 2 {
		t.Fatal("child math broken")
	}
	if level(7) != 3 || level(0) != 0 || level(5) != 1 {
		t.Fatal("level math broken")
	}
	if sibling(0) != 2 || sibling(3) != 11 {
		t.Fatal("sibling math broken")
	}
	if rootOf(8) != 7 || widthOf(8) != 15 {
		t.Fatal("root/width math broken")
	}
}

func TestDirectPathAndCopath(t *testing.T) {
	dp := directPath(4, 4)
	if len(dp) != 2 || dp[0] != 5 || dp[1] != 3 {
		t.Fatalf("directPath(4) = %v", dp)
	}
	cp := copath(4, 4)
	if len(cp) != 2 || cp[0] != 6 || cp[1] != 1 {
		t.Fatalf("copath(4) = %v", cp)
	}
	if len(directPath(0, 1)) != 0 {
		t.Fatal("single-leaf tree has no direct path")
	}
}

func TestCommonAncestor(t *testing.T) {
	cases := []struct {
		a, b domain.LeafIndex
		want domain.NodeIndex
	}{
		{0, 1, 1}, {1, 0, 1}, {0, 2, 3}, {1, 3, 3}, {0, 4, 7}, {5, 6, 11}, {2, 2, 4},
	}
	for _, c := range cases {
		if got := CommonAncestor(c.a, c.b); got != c.want {
			t.Fatalf("CommonAncestor(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
