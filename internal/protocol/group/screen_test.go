package group

import (
	"testing"
	"time"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/keypackage"
)

func TestScreen_ReceiverSeesConflicts(t *testing.T) {
	s, err := crypto.LookupSuite(domain.CipherSuiteX25519AES128GCMSHA256Ed25519)
	if err != nil {
		t.Fatal(err)
	}
	mk := func(name string) (domain.KeyPackage, domain.KeyPackagePrivateKeys, domain.Ed25519Private) {
		sk, pk, err := crypto.GenerateEd25519()
		if err != nil {
			t.Fatal(err)
		}
		kp, keys, err := keypackage.Generate(s, domain.Credential{Identity: []byte(name), SignatureKey: pk}, sk,
			keypackage.DefaultCapabilities(), keypackage.LifetimeFrom(time.Now(), time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		return kp, keys, sk
	}
	akp, akeys, ask := mk("alice")
	bkp, _, _ := mk("bob")
	ckp, _, csk := mk("carol")

	g, _, err := Create(s, []byte("g"), akp, akeys, ask, []domain.KeyPackage{bkp, ckp})
	if err != nil {
		t.Fatal(err)
	}

	_, pub, err := s.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	carolUpdate := keypackage.NewLeaf(s, csk, *g.tree.Leaf(2), pub, domain.LeafNodeSourceUpdate, g.groupID, 2)

	entries := []entry{
		{sender: 2, ref: []byte("u"), proposal: domain.NewUpdateProposal(carolUpdate)},
		{sender: 1, proposal: domain.NewRemoveProposal(2)},
		{sender: 1, proposal: domain.NewRemoveProposal(2)},
		{sender: 1, proposal: domain.NewRemoveProposal(1)},
	}
	problems := g.screen(1, entries)
	if problems[0] == nil {
		t.Fatal("update of a removed leaf must be rejected")
	}
	if problems[1] != nil {
		t.Fatalf("first remove rejected: %v", problems[1])
	}
	if problems[2] == nil {
		t.Fatal("duplicate remove must be rejected")
	}
	if problems[3] == nil {
		t.Fatal("committer removing itself must be rejected")
	}

	ordered := applyOrder([]entry{entries[1], entries[0]})
	if ordered[0].proposal.Type != domain.ProposalTypeUpdate {
		t.Fatal("updates apply before removes")
	}
}
