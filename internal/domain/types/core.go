package types

import (
	"bytes"
	"encoding/hex"
	"strconv"
)

// GroupID is the opaque identifier chosen when a group is created. It is
// stored and compared as raw bytes.
type GroupID []byte

// GroupIDFromString converts caller-supplied text to a GroupID without any
// normalisation, so String round-trips exactly.
func GroupIDFromString(s string) GroupID { return GroupID(s) }

// String returns the raw bytes as text.
func (id GroupID) String() string { return string(id) }

// Hex returns the hex form, used for file names and log fields.
func (id GroupID) Hex() string { return hex.EncodeToString(id) }

// Equal compares two group ids byte for byte.
func (id GroupID) Equal(other GroupID) bool { return bytes.Equal(id, other) }

// Epoch numbers one generation of a group's ratchet tree.
type Epoch uint64

// String returns the decimal form of the epoch.
func (e Epoch) String() string { return strconv.FormatUint(uint64(e), 10) }

// LeafIndex is a member position counted over leaves only.
type LeafIndex uint32

// NodeIndex is a position in the array representation of the tree.
type NodeIndex uint32

// NodeIndex returns the array position of the leaf.
func (l LeafIndex) NodeIndex() NodeIndex { return NodeIndex(2 * l) }

// CipherSuite identifies the negotiated algorithm set.
type CipherSuite uint16

const (
	CipherSuiteX25519AES128GCMSHA256Ed25519        CipherSuite = 0x0001
	CipherSuiteX25519ChaCha20Poly1305SHA256Ed25519 CipherSuite = 0x0003
)

// ProtocolVersion is the protocol revision a message is encoded for.
type ProtocolVersion uint16

// ProtocolVersionMLS10 is the only version this module speaks.
const ProtocolVersionMLS10 ProtocolVersion = 1

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
