package wire

import (
	"golang.org/x/crypto/cryptobyte"

	"grove/internal/domain"
)

// stateFormat versions the persisted GroupState layout.
const stateFormat uint16 = 1

func addSecrets(b *cryptobyte.Builder, es domain.EpochSecrets) {
	for _, v := range [][]byte{
		es.InitSecret, es.EpochSecret, es.EncryptionSecret, es.ExporterSecret,
		es.ConfirmationKey, es.MembershipKey, es.ResumptionPSK, es.EpochAuthenticator,
	} {
		addOpaque(b, v)
	}
}

func readSecrets(s *cryptobyte.String, es *domain.EpochSecrets) bool {
	for _, v := range []*[]byte{
		&es.InitSecret, &es.EpochSecret, &es.EncryptionSecret, &es.ExporterSecret,
		&es.ConfirmationKey, &es.MembershipKey, &es.ResumptionPSK, &es.EpochAuthenticator,
	} {
		if !readOpaque(s, v) {
			return false
		}
	}
	return true
}

// MarshalGroupState encodes the persisted snapshot of a group. The output
// holds private keys and must be sealed before it leaves the process.
func MarshalGroupState(st *domain.GroupState) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(stateFormat)
	addOpaque(&b, st.GroupID)
	b.AddUint64(uint64(st.Epoch))
	b.AddUint16(uint16(st.CipherSuite))
	b.AddUint8(uint8(st.Status))
	b.AddUint32(uint32(st.OwnLeaf))
	addNodes(&b, st.Tree)
	addOpaque(&b, st.ConfirmedTranscriptHash)
	addOpaque(&b, st.InterimTranscriptHash)
	addSecrets(&b, st.Secrets)
	addOpaque(&b, st.SignaturePrivate[:])
	addVector(&b, func(b *cryptobyte.Builder) {
		for _, k := range st.PrivateKeys {
			b.AddUint32(uint32(k.Node))
			addOpaque(b, k.Key[:])
		}
	})
	addVector(&b, func(b *cryptobyte.Builder) {
		for _, p := range st.PendingProposals {
			addOpaque(b, p.Ref)
			b.AddUint32(uint32(p.Sender))
			addProposal(b, p.Proposal)
		}
	})
	addVector(&b, func(b *cryptobyte.Builder) {
		for _, u := range st.PendingUpdates {
			addOpaque(b, u.Ref)
			addOpaque(b, u.EncryptionKey[:])
		}
	})
	return b.Bytes()
}

// UnmarshalGroupState decodes a MarshalGroupState result.
func UnmarshalGroupState(data []byte) (*domain.GroupState, error) {
	st := new(domain.GroupState)
	err := decode("group state", data, func(s *cryptobyte.String) bool {
		var format, cs uint16
		var epoch uint64
		var status uint8
		var own uint32
		if !s.ReadUint16(&format) || format != stateFormat ||
			!readOpaque(s, (*[]byte)(&st.GroupID)) ||
			!s.ReadUint64(&epoch) || !s.ReadUint16(&cs) ||
			!s.ReadUint8(&status) || !s.ReadUint32(&own) {
			return false
		}
		st.Epoch, st.CipherSuite = domain.Epoch(epoch), domain.CipherSuite(cs)
		st.Status, st.OwnLeaf = domain.GroupStatus(status), domain.LeafIndex(own)
		if !readNodes(s, &st.Tree) ||
			!readOpaque(s, &st.ConfirmedTranscriptHash) ||
			!readOpaque(s, &st.InterimTranscriptHash) ||
			!readSecrets(s, &st.Secrets) ||
			!readFixed(s, st.SignaturePrivate[:]) {
			return false
		}
		return readVector(s, func(s *cryptobyte.String) bool {
			var k domain.NodePrivateKey
			var node uint32
			if !s.ReadUint32(&node) || !readFixed(s, k.Key[:]) {
				return false
			}
			k.Node = domain.NodeIndex(node)
			st.PrivateKeys = append(st.PrivateKeys, k)
			return true
		}) && readVector(s, func(s *cryptobyte.String) bool {
			var p domain.PendingProposal
			var sender uint32
			if !readOpaque(s, (*[]byte)(&p.Ref)) || !s.ReadUint32(&sender) || !readProposal(s, &p.Proposal) {
				return false
			}
			p.Sender = domain.LeafIndex(sender)
			st.PendingProposals = append(st.PendingProposals, p)
			return true
		}) && readVector(s, func(s *cryptobyte.String) bool {
			var u domain.PendingUpdate
			if !readOpaque(s, (*[]byte)(&u.Ref)) || !readFixed(s, u.EncryptionKey[:]) {
				return false
			}
			st.PendingUpdates = append(st.PendingUpdates, u)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}
