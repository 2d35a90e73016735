// Package tree implements the ratchet tree: a left-balanced binary tree kept
// in an array, leaves at even indexes and parents at odd ones.
//
// The leaf capacity is always a power of two. Adding a member to a full tree
// doubles the capacity, and removing one never shrinks it, so two members
// applying the same operations hold byte-identical arrays and therefore the
// same tree hash.
//
// A Tree is a plain value with no locking. Clone it before speculative
// changes.
package tree
