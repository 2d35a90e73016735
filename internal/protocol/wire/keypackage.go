package wire

import (
	"golang.org/x/crypto/cryptobyte"

	"grove/internal/domain"
)

func addCredential(b *cryptobyte.Builder, c domain.Credential) {
	addOpaque(b, c.Identity)
	addOpaque(b, c.SignatureKey[:])
}

func readCredential(s *cryptobyte.String, c *domain.Credential) bool {
	return readOpaque(s, &c.Identity) && readFixed(s, c.SignatureKey[:])
}

func addCapabilities(b *cryptobyte.Builder, c domain.Capabilities) {
	addVector(b, func(b *cryptobyte.Builder) {
		for _, v := range c.Versions {
			b.AddUint16(uint16(v))
		}
	})
	addVector(b, func(b *cryptobyte.Builder) {
		for _, cs := range c.CipherSuites {
			b.AddUint16(uint16(cs))
		}
	})
}

func readCapabilities(s *cryptobyte.String, c *domain.Capabilities) bool {
	c.Versions, c.CipherSuites = nil, nil
	return readVector(s, func(s *cryptobyte.String) bool {
		var v uint16
		if !s.ReadUint16(&v) {
			return false
		}
		c.Versions = append(c.Versions, domain.ProtocolVersion(v))
		return true
	}) && readVector(s, func(s *cryptobyte.String) bool {
		var v uint16
		if !s.ReadUint16(&v) {
			return false
		}
		c.CipherSuites = append(c.CipherSuites, domain.CipherSuite(v))
		return true
	})
}

func addLeafNodeContent(b *cryptobyte.Builder, l domain.LeafNode) {
	addOpaque(b, l.EncryptionKey[:])
	addCredential(b, l.Credential)
	addCapabilities(b, l.Capabilities)
	b.AddUint8(uint8(l.Source))
	if l.Source == domain.LeafNodeSourceKeyPackage {
		b.AddUint64(l.Lifetime.NotBefore)
		b.AddUint64(l.Lifetime.NotAfter)
	}
}

func addLeafNode(b *cryptobyte.Builder, l domain.LeafNode) {
	addLeafNodeContent(b, l)
	addOpaque(b, l.Signature)
}

func readLeafNode(s *cryptobyte.String, l *domain.LeafNode) bool {
	var src uint8
	if !readFixed(s, l.EncryptionKey[:]) ||
		!readCredential(s, &l.Credential) ||
		!readCapabilities(s, &l.Capabilities) ||
		!s.ReadUint8(&src) {
		return false
	}
	l.Source = domain.LeafNodeSource(src)
	switch l.Source {
	case domain.LeafNodeSourceKeyPackage:
		if !s.ReadUint64(&l.Lifetime.NotBefore) || !s.ReadUint64(&l.Lifetime.NotAfter) {
			return false
		}
	case domain.LeafNodeSourceUpdate, domain.LeafNodeSourceCommit:
		l.Lifetime = domain.Lifetime{}
	default:
		return false
	}
	return readOpaque(s, &l.Signature)
}

// LeafNodeTBS is the signed content of a leaf. Update and commit leaves are
// bound to the group and position they were created for.
func LeafNodeTBS(l domain.LeafNode, groupID domain.GroupID, index domain.LeafIndex) []byte {
	return encode(func(b *cryptobyte.Builder) {
		addLeafNodeContent(b, l)
		if l.Source == domain.LeafNodeSourceUpdate || l.Source == domain.LeafNodeSourceCommit {
			addOpaque(b, groupID)
			b.AddUint32(uint32(index))
		}
	})
}

// MarshalLeafNode encodes a leaf with its signature.
func MarshalLeafNode(l domain.LeafNode) []byte {
	return encode(func(b *cryptobyte.Builder) { addLeafNode(b, l) })
}

// UnmarshalLeafNode decodes a MarshalLeafNode result.
func UnmarshalLeafNode(data []byte) (domain.LeafNode, error) {
	var l domain.LeafNode
	err := decode("leaf node", data, func(s *cryptobyte.String) bool { return readLeafNode(s, &l) })
	return l, err
}

func addKeyPackageContent(b *cryptobyte.Builder, kp domain.KeyPackage) {
	b.AddUint16(uint16(kp.Version))
	b.AddUint16(uint16(kp.CipherSuite))
	addOpaque(b, kp.InitKey[:])
	addLeafNode(b, kp.LeafNode)
}

func addKeyPackage(b *cryptobyte.Builder, kp domain.KeyPackage) {
	addKeyPackageContent(b, kp)
	addOpaque(b, kp.Signature)
}

func readKeyPackage(s *cryptobyte.String, kp *domain.KeyPackage) bool {
	var v, cs uint16
	if !s.ReadUint16(&v) || !s.ReadUint16(&cs) {
		return false
	}
	kp.Version, kp.CipherSuite = domain.ProtocolVersion(v), domain.CipherSuite(cs)
	return readFixed(s, kp.InitKey[:]) &&
		readLeafNode(s, &kp.LeafNode) &&
		readOpaque(s, &kp.Signature)
}

// KeyPackageTBS is the signed content of a key package.
func KeyPackageTBS(kp domain.KeyPackage) []byte {
	return encode(func(b *cryptobyte.Builder) { addKeyPackageContent(b, kp) })
}

// MarshalKeyPackage encodes a signed key package.
func MarshalKeyPackage(kp domain.KeyPackage) []byte {
	return encode(func(b *cryptobyte.Builder) { addKeyPackage(b, kp) })
}

// UnmarshalKeyPackage decodes a MarshalKeyPackage result.
func UnmarshalKeyPackage(data []byte) (domain.KeyPackage, error) {
	var kp domain.KeyPackage
	err := decode("key package", data, func(s *cryptobyte.String) bool { return readKeyPackage(s, &kp) })
	return kp, err
}
