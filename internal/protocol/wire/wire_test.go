package wire_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grove/internal/domain"
	"grove/internal/protocol/wire"
)

func sampleLeaf(src domain.LeafNodeSource) domain.LeafNode {
	return domain.LeafNode{
		EncryptionKey: domain.X25519Public{1, 2, 3},
		Credential:    domain.Credential{Identity: []byte("alice"), SignatureKey: domain.Ed25519Public{9}},
		Capabilities: domain.Capabilities{
			Versions:     []domain.ProtocolVersion{domain.ProtocolVersionMLS10},
			CipherSuites: []domain.CipherSuite{domain.CipherSuiteX25519AES128GCMSHA256Ed25519},
		},
		Source:    src,
		Lifetime:  domain.Lifetime{NotBefore: 10, NotAfter: 20},
		Signature: []byte("sig"),
	}
}

func sampleKeyPackage() domain.KeyPackage {
	return domain.KeyPackage{
		Version:     domain.ProtocolVersionMLS10,
		CipherSuite: domain.CipherSuiteX25519AES128GCMSHA256Ed25519,
		InitKey:     domain.X25519Public{7},
		LeafNode:    sampleLeaf(domain.LeafNodeSourceKeyPackage),
		Signature:   []byte("kp-sig"),
	}
}

func TestKeyPackage_RejectsTrailingBytes(t *testing.T) {
	enc := wire.MarshalKeyPackage(sampleKeyPackage())

	got, err := wire.UnmarshalKeyPackage(enc)
	require.NoError(t, err)
	assert.Equal(t, sampleKeyPackage(), got)

	_, err = wire.UnmarshalKeyPackage(append(enc, 0))
	assert.ErrorIs(t, err, domain.ErrMalformed)
	_, err = wire.UnmarshalKeyPackage(enc[:len(enc)-1])
	assert.ErrorIs(t, err, domain.ErrMalformed)
}

func TestLeafNode_CommitSourceDropsLifetime(t *testing.T) {
	leaf := sampleLeaf(domain.LeafNodeSourceCommit)
	got, err := wire.UnmarshalLeafNode(wire.MarshalLeafNode(leaf))
	require.NoError(t, err)
	assert.Equal(t, domain.Lifetime{}, got.Lifetime)
	assert.Equal(t, leaf.EncryptionKey, got.EncryptionKey)
}

func TestLeafNodeTBS_BindsGroupAndIndex(t *testing.T) {
	kpLeaf := sampleLeaf(domain.LeafNodeSourceKeyPackage)
	assert.Equal(t,
		wire.LeafNodeTBS(kpLeaf, []byte("a"), 0),
		wire.LeafNodeTBS(kpLeaf, []byte("b"), 3))

	upd := sampleLeaf(domain.LeafNodeSourceUpdate)
	assert.NotEqual(t,
		wire.LeafNodeTBS(upd, []byte("a"), 0),
		wire.LeafNodeTBS(upd, []byte("b"), 0))
	assert.NotEqual(t,
		wire.LeafNodeTBS(upd, []byte("a"), 0),
		wire.LeafNodeTBS(upd, []byte("a"), 1))
}

func TestTree_BlankPositions(t *testing.T) {
	leaf := sampleLeaf(domain.LeafNodeSourceKeyPackage)
	nodes := []*domain.Node{
		domain.LeafNodeOf(leaf),
		domain.ParentNodeOf(domain.ParentNode{EncryptionKey: domain.X25519Public{5}, UnmergedLeaves: []domain.LeafIndex{1}}),
		nil,
	}
	enc, err := wire.MarshalTree(nodes)
	require.NoError(t, err)

	got, err := wire.UnmarshalTree(enc)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Nil(t, got[2])
	assert.Equal(t, []domain.LeafIndex{1}, got[1].Parent.UnmergedLeaves)
	assert.Equal(t, leaf.Credential, got[0].Leaf.Credential)

	bad := append([]byte(nil), enc...)
	// first optional flag sits right after the vector length
	bad[4] = 2
	_, err = wire.UnmarshalTree(bad)
	assert.ErrorIs(t, err, domain.ErrMalformed)
}

func TestCommit_WithPathAndReferences(t *testing.T) {
	remove := domain.NewRemoveProposal(2)
	c := &domain.Commit{
		GroupID: []byte("team-42"),
		Epoch:   3,
		Sender:  1,
		Proposals: []domain.ProposalOrRef{
			{Type: domain.ProposalOrRefInline, Proposal: &remove},
			{Type: domain.ProposalOrRefReference, Reference: []byte{0xaa, 0xbb}},
		},
		Path: &domain.UpdatePath{
			LeafNode: sampleLeaf(domain.LeafNodeSourceCommit),
			Nodes: []domain.UpdatePathNode{{
				EncryptionKey:       domain.X25519Public{4},
				EncryptedPathSecret: []domain.HPKECiphertext{{KEMOutput: []byte("enc"), Ciphertext: []byte("ct")}},
			}},
		},
		Signature:       []byte("sig"),
		ConfirmationTag: []byte("tag"),
	}
	enc, err := wire.MarshalCommit(c)
	require.NoError(t, err)
	got, err := wire.UnmarshalCommit(enc)
	require.NoError(t, err)
	assert.Equal(t, c.GroupID, got.GroupID)
	assert.Equal(t, c.Proposals[1].Reference, got.Proposals[1].Reference)
	assert.Equal(t, domain.LeafIndex(2), got.Proposals[0].Proposal.Remove.Removed)
	require.NotNil(t, got.Path)
	assert.Equal(t, c.Path.Nodes, got.Path.Nodes)

	// the signature is excluded from the signed content but not from the
	// transcript input
	tbs1, err := wire.CommitTBS(c, domain.GroupContext{Epoch: 2})
	require.NoError(t, err)
	c.Signature = []byte("other")
	tbs2, err := wire.CommitTBS(c, domain.GroupContext{Epoch: 2})
	require.NoError(t, err)
	assert.Equal(t, tbs1, tbs2)
	in1, err := wire.ConfirmedTranscriptHashInput(c)
	require.NoError(t, err)
	c.Signature = []byte("sig")
	in2, err := wire.ConfirmedTranscriptHashInput(c)
	require.NoError(t, err)
	assert.NotEqual(t, in1, in2)
}

func TestMessage_UnknownWireFormat(t *testing.T) {
	_, err := wire.MarshalMessage(&domain.Message{Version: domain.ProtocolVersionMLS10, WireFormat: 99})
	assert.ErrorIs(t, err, domain.ErrMalformed)

	_, err = wire.UnmarshalMessage([]byte{0, 1, 0, 99})
	assert.ErrorIs(t, err, domain.ErrMalformed)
}

func TestMessage_Welcome(t *testing.T) {
	w := &domain.Welcome{
		CipherSuite: domain.CipherSuiteX25519ChaCha20Poly1305SHA256Ed25519,
		Secrets: []domain.EncryptedGroupSecrets{{
			NewMember:             []byte("ref"),
			EncryptedGroupSecrets: domain.HPKECiphertext{KEMOutput: []byte("k"), Ciphertext: []byte("c")},
		}},
		EncryptedGroupInfo: []byte("egi"),
	}
	enc, err := wire.MarshalMessage(wire.NewWelcomeMessage(w))
	require.NoError(t, err)
	got, err := wire.UnmarshalMessage(enc)
	require.NoError(t, err)
	assert.Equal(t, domain.WireFormatWelcome, got.WireFormat)
	assert.Equal(t, w, got.Welcome)
	assert.Nil(t, got.GroupID())
}

func TestGroupSecrets_OptionalPath(t *testing.T) {
	gs, err := wire.UnmarshalGroupSecrets(wire.MarshalGroupSecrets(domain.GroupSecrets{JoinerSecret: []byte("j")}))
	require.NoError(t, err)
	assert.Empty(t, gs.PathSecret)

	gs, err = wire.UnmarshalGroupSecrets(wire.MarshalGroupSecrets(domain.GroupSecrets{JoinerSecret: []byte("j"), PathSecret: []byte("p")}))
	require.NoError(t, err)
	assert.Equal(t, []byte("p"), gs.PathSecret)
}

func TestGroupState_PreservesKeysAndPending(t *testing.T) {
	st := &domain.GroupState{
		GroupID:                 []byte("g"),
		Epoch:                   4,
		CipherSuite:             domain.CipherSuiteX25519AES128GCMSHA256Ed25519,
		Status:                  domain.GroupStatusActive,
		OwnLeaf:                 1,
		Tree:                    []*domain.Node{nil, nil, domain.LeafNodeOf(sampleLeaf(domain.LeafNodeSourceCommit))},
		ConfirmedTranscriptHash: []byte("c"),
		InterimTranscriptHash:   []byte("i"),
		Secrets:                 domain.EpochSecrets{InitSecret: []byte("init"), EpochAuthenticator: []byte("auth")},
		SignaturePrivate:        domain.Ed25519Private{1},
		PrivateKeys:             []domain.NodePrivateKey{{Node: 2, Key: domain.X25519Private{3}}},
		PendingProposals:        []domain.PendingProposal{{Ref: []byte("r"), Sender: 0, Proposal: domain.NewRemoveProposal(1)}},
		PendingUpdates:          []domain.PendingUpdate{{Ref: []byte("u"), EncryptionKey: domain.X25519Private{8}}},
	}
	enc, err := wire.MarshalGroupState(st)
	require.NoError(t, err)
	got, err := wire.UnmarshalGroupState(enc)
	require.NoError(t, err)
	assert.Equal(t, st.PrivateKeys, got.PrivateKeys)
	assert.Equal(t, st.PendingProposals, got.PendingProposals)
	assert.Equal(t, st.PendingUpdates, got.PendingUpdates)
	assert.Equal(t, st.Secrets.EpochAuthenticator, got.Secrets.EpochAuthenticator)
	assert.True(t, bytes.Equal(st.GroupID, got.GroupID))

	enc[1] = 9 // format version
	_, err = wire.UnmarshalGroupState(enc)
	assert.ErrorIs(t, err, domain.ErrMalformed)
}
