package types

import "encoding/hex"

// Credential binds an opaque, externally issued identity blob to the public
// key its holder signs with.
type Credential struct {
	Identity     []byte        `json:"identity"`
	SignatureKey Ed25519Public `json:"signature_key"`
}

// Capabilities lists what a client can speak.
type Capabilities struct {
	Versions     []ProtocolVersion
	CipherSuites []CipherSuite
}

// SupportsSuite reports whether cs is advertised.
func (c Capabilities) SupportsSuite(cs CipherSuite) bool {
	for _, s := range c.CipherSuites {
		if s == cs {
			return true
		}
	}
	return false
}

// SupportsVersion reports whether v is advertised.
func (c Capabilities) SupportsVersion(v ProtocolVersion) bool {
	for _, have := range c.Versions {
		if have == v {
			return true
		}
	}
	return false
}

// Lifetime bounds the validity of a key package leaf, in unix seconds.
type Lifetime struct {
	NotBefore uint64
	NotAfter  uint64
}

// LeafNodeSource records how a leaf node came to be.
type LeafNodeSource uint8

const (
	LeafNodeSourceKeyPackage LeafNodeSource = 1
	LeafNodeSourceUpdate     LeafNodeSource = 2
	LeafNodeSourceCommit     LeafNodeSource = 3
)

// LeafNode is a member's public state at a tree position.
//
// Lifetime is only meaningful (and only encoded) for key package leaves.
type LeafNode struct {
	EncryptionKey X25519Public
	Credential    Credential
	Capabilities  Capabilities
	Source        LeafNodeSource
	Lifetime      Lifetime
	Signature     []byte
}

// KeyPackage is a client's signed, publishable joining material. A key
// package is consumed by exactly one Add.
type KeyPackage struct {
	Version     ProtocolVersion
	CipherSuite CipherSuite
	InitKey     X25519Public
	LeafNode    LeafNode
	Signature   []byte
}

// KeyPackagePrivateKeys are the secrets matching a KeyPackage: the init key
// opens the Welcome, the encryption key becomes the leaf key after joining.
type KeyPackagePrivateKeys struct {
	InitKey       X25519Private `json:"init_key"`
	EncryptionKey X25519Private `json:"encryption_key"`
}

// KeyPackageRef is the hash reference of an encoded key package.
type KeyPackageRef []byte

// String returns the hex form of the reference.
func (r KeyPackageRef) String() string { return hex.EncodeToString(r) }
