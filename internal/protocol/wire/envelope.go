package wire

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"

	"grove/internal/domain"
)

// MarshalMessage encodes the outer envelope exchanged with the delivery
// service.
func MarshalMessage(m *domain.Message) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(uint16(m.Version))
	b.AddUint16(uint16(m.WireFormat))
	switch m.WireFormat {
	case domain.WireFormatProposal:
		addProposalMessage(&b, m.Proposal)
	case domain.WireFormatCommit:
		addCommit(&b, m.Commit)
	case domain.WireFormatWelcome:
		addWelcome(&b, m.Welcome)
	case domain.WireFormatGroupInfo:
		addGroupInfoContent(&b, m.GroupInfo)
		addOpaque(&b, m.GroupInfo.Signature)
	case domain.WireFormatKeyPackage:
		addKeyPackage(&b, *m.KeyPackage)
	default:
		return nil, fmt.Errorf("%w: wire format %d", domain.ErrMalformed, m.WireFormat)
	}
	return b.Bytes()
}

// UnmarshalMessage decodes a MarshalMessage result.
func UnmarshalMessage(data []byte) (*domain.Message, error) {
	m := new(domain.Message)
	err := decode("message", data, func(s *cryptobyte.String) bool {
		var v, wf uint16
		if !s.ReadUint16(&v) || !s.ReadUint16(&wf) {
			return false
		}
		m.Version, m.WireFormat = domain.ProtocolVersion(v), domain.WireFormat(wf)
		if m.Version != domain.ProtocolVersionMLS10 {
			return false
		}
		switch m.WireFormat {
		case domain.WireFormatProposal:
			m.Proposal = new(domain.ProposalMessage)
			return readProposalMessage(s, m.Proposal)
		case domain.WireFormatCommit:
			m.Commit = new(domain.Commit)
			return readCommit(s, m.Commit)
		case domain.WireFormatWelcome:
			m.Welcome = new(domain.Welcome)
			return readWelcome(s, m.Welcome)
		case domain.WireFormatGroupInfo:
			m.GroupInfo = new(domain.GroupInfo)
			return readGroupInfo(s, m.GroupInfo)
		case domain.WireFormatKeyPackage:
			m.KeyPackage = new(domain.KeyPackage)
			return readKeyPackage(s, m.KeyPackage)
		default:
			return false
		}
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewProposalMessage wraps p in an envelope.
func NewProposalMessage(p *domain.ProposalMessage) *domain.Message {
	return &domain.Message{Version: domain.ProtocolVersionMLS10, WireFormat: domain.WireFormatProposal, Proposal: p}
}

// NewCommitMessage wraps c in an envelope.
func NewCommitMessage(c *domain.Commit) *domain.Message {
	return &domain.Message{Version: domain.ProtocolVersionMLS10, WireFormat: domain.WireFormatCommit, Commit: c}
}

// NewWelcomeMessage wraps w in an envelope.
func NewWelcomeMessage(w *domain.Welcome) *domain.Message {
	return &domain.Message{Version: domain.ProtocolVersionMLS10, WireFormat: domain.WireFormatWelcome, Welcome: w}
}

// NewKeyPackageMessage wraps kp in an envelope.
func NewKeyPackageMessage(kp domain.KeyPackage) *domain.Message {
	return &domain.Message{Version: domain.ProtocolVersionMLS10, WireFormat: domain.WireFormatKeyPackage, KeyPackage: &kp}
}
