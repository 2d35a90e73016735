// Package keypackage creates and checks key packages and the leaf nodes
// members publish in the ratchet tree.
package keypackage
