package wire

import (
	"golang.org/x/crypto/cryptobyte"

	"grove/internal/domain"
)

func addProposal(b *cryptobyte.Builder, p domain.Proposal) {
	b.AddUint16(uint16(p.Type))
	switch p.Type {
	case domain.ProposalTypeAdd:
		addKeyPackage(b, p.Add.KeyPackage)
	case domain.ProposalTypeUpdate:
		addLeafNode(b, p.Update.LeafNode)
	case domain.ProposalTypeRemove:
		b.AddUint32(uint32(p.Remove.Removed))
	default:
		b.SetError(errUnknownProposalType)
	}
}

func readProposal(s *cryptobyte.String, p *domain.Proposal) bool {
	var t uint16
	if !s.ReadUint16(&t) {
		return false
	}
	switch domain.ProposalType(t) {
	case domain.ProposalTypeAdd:
		var kp domain.KeyPackage
		if !readKeyPackage(s, &kp) {
			return false
		}
		*p = domain.NewAddProposal(kp)
	case domain.ProposalTypeUpdate:
		var l domain.LeafNode
		if !readLeafNode(s, &l) {
			return false
		}
		*p = domain.NewUpdateProposal(l)
	case domain.ProposalTypeRemove:
		var idx uint32
		if !s.ReadUint32(&idx) {
			return false
		}
		*p = domain.NewRemoveProposal(domain.LeafIndex(idx))
	default:
		return false
	}
	return true
}

// MarshalProposal encodes a bare proposal.
func MarshalProposal(p domain.Proposal) ([]byte, error) {
	var b cryptobyte.Builder
	addProposal(&b, p)
	return b.Bytes()
}

// UnmarshalProposal decodes a MarshalProposal result.
func UnmarshalProposal(data []byte) (domain.Proposal, error) {
	var p domain.Proposal
	err := decode("proposal", data, func(s *cryptobyte.String) bool { return readProposal(s, &p) })
	return p, err
}

func addProposalOrRef(b *cryptobyte.Builder, p domain.ProposalOrRef) {
	b.AddUint8(uint8(p.Type))
	switch p.Type {
	case domain.ProposalOrRefInline:
		addProposal(b, *p.Proposal)
	case domain.ProposalOrRefReference:
		addOpaque(b, p.Reference)
	default:
		b.SetError(errUnknownProposalType)
	}
}

func readProposalOrRef(s *cryptobyte.String, p *domain.ProposalOrRef) bool {
	var t uint8
	if !s.ReadUint8(&t) {
		return false
	}
	p.Type = domain.ProposalOrRefType(t)
	switch p.Type {
	case domain.ProposalOrRefInline:
		p.Proposal = new(domain.Proposal)
		return readProposal(s, p.Proposal)
	case domain.ProposalOrRefReference:
		var ref []byte
		if !readOpaque(s, &ref) {
			return false
		}
		p.Reference = ref
		return true
	default:
		return false
	}
}

func addProposalContent(b *cryptobyte.Builder, m *domain.ProposalMessage) {
	addOpaque(b, m.GroupID)
	b.AddUint64(uint64(m.Epoch))
	b.AddUint32(uint32(m.Sender))
	addProposal(b, m.Proposal)
}

func addProposalMessage(b *cryptobyte.Builder, m *domain.ProposalMessage) {
	addProposalContent(b, m)
	addOpaque(b, m.Signature)
}

func readProposalMessage(s *cryptobyte.String, m *domain.ProposalMessage) bool {
	var epoch uint64
	var sender uint32
	var gid []byte
	if !readOpaque(s, &gid) || !s.ReadUint64(&epoch) || !s.ReadUint32(&sender) {
		return false
	}
	m.GroupID, m.Epoch, m.Sender = gid, domain.Epoch(epoch), domain.LeafIndex(sender)
	return readProposal(s, &m.Proposal) && readOpaque(s, &m.Signature)
}

// ProposalTBS is the signed content of a standalone proposal: the framed
// proposal followed by the group context of its epoch.
func ProposalTBS(m *domain.ProposalMessage, gc domain.GroupContext) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(uint16(domain.ProtocolVersionMLS10))
	b.AddUint16(uint16(domain.WireFormatProposal))
	addProposalContent(&b, m)
	addGroupContext(&b, gc)
	return b.Bytes()
}

// MarshalProposalMessage encodes a signed proposal message. Its hash is the
// proposal reference.
func MarshalProposalMessage(m *domain.ProposalMessage) ([]byte, error) {
	var b cryptobyte.Builder
	addProposalMessage(&b, m)
	return b.Bytes()
}

// UnmarshalProposalMessage decodes a MarshalProposalMessage result.
func UnmarshalProposalMessage(data []byte) (*domain.ProposalMessage, error) {
	m := new(domain.ProposalMessage)
	if err := decode("proposal message", data, func(s *cryptobyte.String) bool {
		return readProposalMessage(s, m)
	}); err != nil {
		return nil, err
	}
	return m, nil
}

func addHPKECiphertext(b *cryptobyte.Builder, ct domain.HPKECiphertext) {
	addOpaque(b, ct.KEMOutput)
	addOpaque(b, ct.Ciphertext)
}

func readHPKECiphertext(s *cryptobyte.String, ct *domain.HPKECiphertext) bool {
	return readOpaque(s, &ct.KEMOutput) && readOpaque(s, &ct.Ciphertext)
}

func addUpdatePath(b *cryptobyte.Builder, p *domain.UpdatePath) {
	addLeafNode(b, p.LeafNode)
	addVector(b, func(b *cryptobyte.Builder) {
		for _, n := range p.Nodes {
			addOpaque(b, n.EncryptionKey[:])
			addVector(b, func(b *cryptobyte.Builder) {
				for _, ct := range n.EncryptedPathSecret {
					addHPKECiphertext(b, ct)
				}
			})
		}
	})
}

func readUpdatePath(s *cryptobyte.String, p *domain.UpdatePath) bool {
	if !readLeafNode(s, &p.LeafNode) {
		return false
	}
	p.Nodes = nil
	return readVector(s, func(s *cryptobyte.String) bool {
		var n domain.UpdatePathNode
		if !readFixed(s, n.EncryptionKey[:]) {
			return false
		}
		if !readVector(s, func(s *cryptobyte.String) bool {
			var ct domain.HPKECiphertext
			if !readHPKECiphertext(s, &ct) {
				return false
			}
			n.EncryptedPathSecret = append(n.EncryptedPathSecret, ct)
			return true
		}) {
			return false
		}
		p.Nodes = append(p.Nodes, n)
		return true
	})
}

func addCommitContent(b *cryptobyte.Builder, c *domain.Commit) {
	addOpaque(b, c.GroupID)
	b.AddUint64(uint64(c.Epoch))
	b.AddUint32(uint32(c.Sender))
	addVector(b, func(b *cryptobyte.Builder) {
		for _, p := range c.Proposals {
			addProposalOrRef(b, p)
		}
	})
	addOptional(b, c.Path != nil, func(b *cryptobyte.Builder) { addUpdatePath(b, c.Path) })
}

func addCommit(b *cryptobyte.Builder, c *domain.Commit) {
	addCommitContent(b, c)
	addOpaque(b, c.Signature)
	addOpaque(b, c.ConfirmationTag)
}

func readCommit(s *cryptobyte.String, c *domain.Commit) bool {
	var gid []byte
	var epoch uint64
	var sender uint32
	if !readOpaque(s, &gid) || !s.ReadUint64(&epoch) || !s.ReadUint32(&sender) {
		return false
	}
	c.GroupID, c.Epoch, c.Sender = gid, domain.Epoch(epoch), domain.LeafIndex(sender)
	c.Proposals = nil
	if !readVector(s, func(s *cryptobyte.String) bool {
		var p domain.ProposalOrRef
		if !readProposalOrRef(s, &p) {
			return false
		}
		c.Proposals = append(c.Proposals, p)
		return true
	}) {
		return false
	}
	path := new(domain.UpdatePath)
	present, ok := readOptional(s, func(s *cryptobyte.String) bool { return readUpdatePath(s, path) })
	if !ok {
		return false
	}
	c.Path = nil
	if present {
		c.Path = path
	}
	return readOpaque(s, &c.Signature) && readOpaque(s, &c.ConfirmationTag)
}

// CommitTBS is the signed content of a commit: the framed commit followed by
// the group context of the epoch it was created in.
func CommitTBS(c *domain.Commit, gc domain.GroupContext) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(uint16(domain.ProtocolVersionMLS10))
	b.AddUint16(uint16(domain.WireFormatCommit))
	addCommitContent(&b, c)
	addGroupContext(&b, gc)
	return b.Bytes()
}

// ConfirmedTranscriptHashInput is what a commit contributes to the confirmed
// transcript: its framed content and signature.
func ConfirmedTranscriptHashInput(c *domain.Commit) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(uint16(domain.WireFormatCommit))
	addCommitContent(&b, c)
	addOpaque(&b, c.Signature)
	return b.Bytes()
}

// InterimTranscriptHashInput wraps a confirmation tag.
func InterimTranscriptHashInput(tag []byte) []byte {
	return encode(func(b *cryptobyte.Builder) { addOpaque(b, tag) })
}

// MarshalCommit encodes a signed, confirmed commit.
func MarshalCommit(c *domain.Commit) ([]byte, error) {
	var b cryptobyte.Builder
	addCommit(&b, c)
	return b.Bytes()
}

// UnmarshalCommit decodes a MarshalCommit result.
func UnmarshalCommit(data []byte) (*domain.Commit, error) {
	c := new(domain.Commit)
	if err := decode("commit", data, func(s *cryptobyte.String) bool { return readCommit(s, c) }); err != nil {
		return nil, err
	}
	return c, nil
}

func addGroupContext(b *cryptobyte.Builder, gc domain.GroupContext) {
	b.AddUint16(uint16(gc.Version))
	b.AddUint16(uint16(gc.CipherSuite))
	addOpaque(b, gc.GroupID)
	b.AddUint64(uint64(gc.Epoch))
	addOpaque(b, gc.TreeHash)
	addOpaque(b, gc.ConfirmedTranscriptHash)
}

func readGroupContext(s *cryptobyte.String, gc *domain.GroupContext) bool {
	var v, cs uint16
	var epoch uint64
	if !s.ReadUint16(&v) || !s.ReadUint16(&cs) || !readOpaque(s, (*[]byte)(&gc.GroupID)) || !s.ReadUint64(&epoch) {
		return false
	}
	gc.Version, gc.CipherSuite, gc.Epoch = domain.ProtocolVersion(v), domain.CipherSuite(cs), domain.Epoch(epoch)
	return readOpaque(s, &gc.TreeHash) && readOpaque(s, &gc.ConfirmedTranscriptHash)
}

// MarshalGroupContext encodes the context mixed into derivations.
func MarshalGroupContext(gc domain.GroupContext) []byte {
	return encode(func(b *cryptobyte.Builder) { addGroupContext(b, gc) })
}

func addGroupInfoContent(b *cryptobyte.Builder, gi *domain.GroupInfo) {
	addGroupContext(b, gi.GroupContext)
	addOpaque(b, gi.ConfirmationTag)
	b.AddUint32(uint32(gi.Signer))
}

func readGroupInfo(s *cryptobyte.String, gi *domain.GroupInfo) bool {
	var signer uint32
	if !readGroupContext(s, &gi.GroupContext) || !readOpaque(s, &gi.ConfirmationTag) || !s.ReadUint32(&signer) {
		return false
	}
	gi.Signer = domain.LeafIndex(signer)
	return readOpaque(s, &gi.Signature)
}

// GroupInfoTBS is the signed content of a GroupInfo.
func GroupInfoTBS(gi *domain.GroupInfo) []byte {
	return encode(func(b *cryptobyte.Builder) { addGroupInfoContent(b, gi) })
}

// MarshalGroupInfo encodes a signed GroupInfo.
func MarshalGroupInfo(gi *domain.GroupInfo) []byte {
	return encode(func(b *cryptobyte.Builder) {
		addGroupInfoContent(b, gi)
		addOpaque(b, gi.Signature)
	})
}

// UnmarshalGroupInfo decodes a MarshalGroupInfo result.
func UnmarshalGroupInfo(data []byte) (*domain.GroupInfo, error) {
	gi := new(domain.GroupInfo)
	if err := decode("group info", data, func(s *cryptobyte.String) bool { return readGroupInfo(s, gi) }); err != nil {
		return nil, err
	}
	return gi, nil
}

// MarshalGroupSecrets encodes the per-joiner secrets of a Welcome.
func MarshalGroupSecrets(gs domain.GroupSecrets) []byte {
	return encode(func(b *cryptobyte.Builder) {
		addOpaque(b, gs.JoinerSecret)
		addOptional(b, len(gs.PathSecret) > 0, func(b *cryptobyte.Builder) { addOpaque(b, gs.PathSecret) })
	})
}

// UnmarshalGroupSecrets decodes a MarshalGroupSecrets result.
func UnmarshalGroupSecrets(data []byte) (domain.GroupSecrets, error) {
	var gs domain.GroupSecrets
	err := decode("group secrets", data, func(s *cryptobyte.String) bool {
		if !readOpaque(s, &gs.JoinerSecret) {
			return false
		}
		_, ok := readOptional(s, func(s *cryptobyte.String) bool { return readOpaque(s, &gs.PathSecret) })
		return ok
	})
	return gs, err
}

func addWelcome(b *cryptobyte.Builder, w *domain.Welcome) {
	b.AddUint16(uint16(w.CipherSuite))
	addVector(b, func(b *cryptobyte.Builder) {
		for _, egs := range w.Secrets {
			addOpaque(b, egs.NewMember)
			addHPKECiphertext(b, egs.EncryptedGroupSecrets)
		}
	})
	addOpaque(b, w.EncryptedGroupInfo)
}

func readWelcome(s *cryptobyte.String, w *domain.Welcome) bool {
	var cs uint16
	if !s.ReadUint16(&cs) {
		return false
	}
	w.CipherSuite = domain.CipherSuite(cs)
	w.Secrets = nil
	return readVector(s, func(s *cryptobyte.String) bool {
		var egs domain.EncryptedGroupSecrets
		if !readOpaque(s, (*[]byte)(&egs.NewMember)) || !readHPKECiphertext(s, &egs.EncryptedGroupSecrets) {
			return false
		}
		w.Secrets = append(w.Secrets, egs)
		return true
	}) && readOpaque(s, &w.EncryptedGroupInfo)
}

// MarshalWelcome encodes a Welcome.
func MarshalWelcome(w *domain.Welcome) []byte {
	return encode(func(b *cryptobyte.Builder) { addWelcome(b, w) })
}

// UnmarshalWelcome decodes a MarshalWelcome result.
func UnmarshalWelcome(data []byte) (*domain.Welcome, error) {
	w := new(domain.Welcome)
	if err := decode("welcome", data, func(s *cryptobyte.String) bool { return readWelcome(s, w) }); err != nil {
		return nil, err
	}
	return w, nil
}
