package group

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"grove/internal/domain"
	"grove/internal/protocol/keypackage"
	"grove/internal/protocol/tree"
	"grove/internal/protocol/wire"
)

const (
	framedContentLabel = "FramedContentTBS"
	proposalRefLabel   = "MLS 1.0 Proposal Reference"
)

// Propose signs p as a standalone proposal from the local member and queues
// it for the next commit.
func (g *Group) Propose(p domain.Proposal) (*domain.ProposalMessage, error) {
	if err := g.checkActive(); err != nil {
		return nil, err
	}
	if err := g.checkProposal(g.own, p); err != nil {
		return nil, err
	}
	switch {
	case p.Type == domain.ProposalTypeRemove && p.Remove.Removed == g.own:
		return nil, fmt.Errorf("%w: use Leave to remove yourself", domain.ErrInvalidProposal)
	case p.Type == domain.ProposalTypeUpdate:
		return nil, fmt.Errorf("%w: use ProposeUpdate", domain.ErrInvalidProposal)
	}
	msg, ref, err := g.signProposal(p)
	if err != nil {
		return nil, err
	}
	g.pending = append(g.pending, domain.PendingProposal{Ref: ref, Sender: g.own, Proposal: p})
	g.log.Debug("proposal queued", "type", p.Type, "ref", ref)
	return msg, nil
}

// ProposeAdd proposes adding the owner of kp.
func (g *Group) ProposeAdd(kp domain.KeyPackage) (*domain.ProposalMessage, error) {
	return g.Propose(domain.NewAddProposal(kp))
}

// ProposeRemove proposes removing the member at leaf.
func (g *Group) ProposeRemove(leaf domain.LeafIndex) (*domain.ProposalMessage, error) {
	return g.Propose(domain.NewRemoveProposal(leaf))
}

// ProposeUpdate proposes a fresh encryption key for the local leaf. The
// private key is kept until a commit that includes the proposal arrives.
func (g *Group) ProposeUpdate() (*domain.ProposalMessage, error) {
	if err := g.checkActive(); err != nil {
		return nil, err
	}
	priv, pub, err := g.suite.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	leaf := keypackage.NewLeaf(g.suite, g.signer, *g.tree.Leaf(g.own), pub, domain.LeafNodeSourceUpdate, g.groupID, g.own)
	p := domain.NewUpdateProposal(leaf)
	msg, ref, err := g.signProposal(p)
	if err != nil {
		return nil, err
	}
	g.pending = append(g.pending, domain.PendingProposal{Ref: ref, Sender: g.own, Proposal: p})
	g.updates = append(g.updates, domain.PendingUpdate{Ref: ref, EncryptionKey: priv})
	g.log.Debug("update proposed", "ref", ref)
	return msg, nil
}

// Leave asks the group to remove the local member. The returned proposal has
// to be committed by someone else. A sole member has nobody to ask, so the
// group is terminated right away and the proposal is nil.
func (g *Group) Leave() (*domain.ProposalMessage, error) {
	if err := g.checkActive(); err != nil {
		return nil, err
	}
	if g.tree.MemberCount() == 1 {
		g.terminate()
		g.log.Info("left group as last member")
		return nil, nil
	}
	p := domain.NewRemoveProposal(g.own)
	msg, ref, err := g.signProposal(p)
	if err != nil {
		return nil, err
	}
	// queued so that a commit referencing it resolves here too
	g.pending = append(g.pending, domain.PendingProposal{Ref: ref, Sender: g.own, Proposal: p})
	g.log.Info("leave requested", "epoch", g.epoch)
	return msg, nil
}

// ReceiveProposal verifies a peer's proposal and queues it.
func (g *Group) ReceiveProposal(msg *domain.ProposalMessage) error {
	if err := g.checkActive(); err != nil {
		return err
	}
	if !msg.GroupID.Equal(g.groupID) {
		return fmt.Errorf("%w: proposal for another group", domain.ErrValidationFailed)
	}
	if msg.Epoch != g.epoch {
		return fmt.Errorf("%w: proposal for epoch %d, at %d", domain.ErrStaleEpoch, msg.Epoch, g.epoch)
	}
	sender := g.tree.Leaf(msg.Sender)
	if sender == nil {
		return fmt.Errorf("%w: proposal sender %d is blank", domain.ErrValidationFailed, msg.Sender)
	}
	tbs, err := wire.ProposalTBS(msg, g.Context())
	if err != nil {
		return err
	}
	if !g.suite.VerifyWithLabel(sender.Credential.SignatureKey, framedContentLabel, tbs, msg.Signature) {
		return fmt.Errorf("%w: %w: proposal", domain.ErrValidationFailed, domain.ErrInvalidSignature)
	}
	if err := g.checkProposal(msg.Sender, msg.Proposal); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidationFailed, err)
	}
	ref, err := g.proposalRef(msg)
	if err != nil {
		return err
	}
	for _, p := range g.pending {
		if bytes.Equal(p.Ref, ref) {
			return nil
		}
	}
	g.pending = append(g.pending, domain.PendingProposal{Ref: ref, Sender: msg.Sender, Proposal: msg.Proposal})
	g.log.Debug("proposal received", "type", msg.Proposal.Type, "sender", msg.Sender, "ref", ref)
	return nil
}

func (g *Group) signProposal(p domain.Proposal) (*domain.ProposalMessage, domain.ProposalRef, error) {
	msg := &domain.ProposalMessage{GroupID: g.GroupID(), Epoch: g.epoch, Sender: g.own, Proposal: p}
	tbs, err := wire.ProposalTBS(msg, g.Context())
	if err != nil {
		return nil, nil, err
	}
	msg.Signature = g.suite.SignWithLabel(g.signer, framedContentLabel, tbs)
	ref, err := g.proposalRef(msg)
	if err != nil {
		return nil, nil, err
	}
	return msg, ref, nil
}

func (g *Group) proposalRef(msg *domain.ProposalMessage) (domain.ProposalRef, error) {
	enc, err := wire.MarshalProposalMessage(msg)
	if err != nil {
		return nil, err
	}
	return g.suite.RefHash(proposalRefLabel, enc), nil
}

// checkProposal validates one proposal on its own, against the current tree.
func (g *Group) checkProposal(sender domain.LeafIndex, p domain.Proposal) error {
	switch p.Type {
	case domain.ProposalTypeAdd:
		if p.Add == nil {
			return fmt.Errorf("%w: empty add", domain.ErrInvalidProposal)
		}
		kp := p.Add.KeyPackage
		if kp.CipherSuite != g.suite.ID() {
			return fmt.Errorf("%w: key package suite 0x%04x", domain.ErrInvalidProposal, uint16(kp.CipherSuite))
		}
		if err := keypackage.Validate(kp, g.now()); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidProposal, err)
		}
		// A key package adds one member, once.
		for _, key := range []domain.X25519Public{kp.LeafNode.EncryptionKey, kp.InitKey} {
			if i, ok := g.tree.FindLeaf(key); ok {
				return fmt.Errorf("%w: key package already in the group at leaf %d", domain.ErrInvalidProposal, i)
			}
		}
	case domain.ProposalTypeRemove:
		if p.Remove == nil || g.tree.Leaf(p.Remove.Removed) == nil {
			return fmt.Errorf("%w: remove of blank or missing leaf", domain.ErrInvalidProposal)
		}
	case domain.ProposalTypeUpdate:
		if p.Update == nil {
			return fmt.Errorf("%w: empty update", domain.ErrInvalidProposal)
		}
		cur := g.tree.Leaf(sender)
		leaf := p.Update.LeafNode
		if cur == nil || leaf.Source != domain.LeafNodeSourceUpdate ||
			leaf.Credential.SignatureKey != cur.Credential.SignatureKey ||
			!keypackage.VerifyLeaf(g.suite, leaf, g.groupID, sender) {
			return fmt.Errorf("%w: update leaf", domain.ErrInvalidProposal)
		}
	default:
		return fmt.Errorf("%w: type %d", domain.ErrInvalidProposal, p.Type)
	}
	return nil
}

// entry is one proposal a commit covers.
type entry struct {
	sender   domain.LeafIndex
	ref      domain.ProposalRef // nil when inline
	proposal domain.Proposal
}

func (e entry) orRef() domain.ProposalOrRef {
	if e.ref != nil {
		return domain.ProposalOrRef{Type: domain.ProposalOrRefReference, Reference: e.ref}
	}
	p := e.proposal
	return domain.ProposalOrRef{Type: domain.ProposalOrRefInline, Proposal: &p}
}

var errConflict = errors.New("conflicting proposals")

// screen checks a commit's proposal set as a whole. Removes are looked at
// first so that a Remove always beats an Update for the same leaf. For each
// offending entry the result holds the reason, nil otherwise.
func (g *Group) screen(committer domain.LeafIndex, entries []entry) []error {
	problems := make([]error, len(entries))
	removed := make(map[domain.LeafIndex]bool)
	updated := make(map[domain.LeafIndex]bool)
	added := make(map[string]bool)

	reject := func(i int, err error) { problems[i] = err }

	for _, t := range []domain.ProposalType{domain.ProposalTypeRemove, domain.ProposalTypeUpdate, domain.ProposalTypeAdd} {
		for i, e := range entries {
			if e.proposal.Type != t {
				continue
			}
			if err := g.checkProposal(e.sender, e.proposal); err != nil {
				reject(i, err)
				continue
			}
			switch t {
			case domain.ProposalTypeRemove:
				target := e.proposal.Remove.Removed
				switch {
				case target == committer:
					reject(i, fmt.Errorf("%w: committer removes itself", errConflict))
				case removed[target]:
					reject(i, fmt.Errorf("%w: leaf %d removed twice", errConflict, target))
				default:
					removed[target] = true
				}
			case domain.ProposalTypeUpdate:
				switch {
				case e.sender == committer:
					reject(i, fmt.Errorf("%w: committer update travels in the path", errConflict))
				case removed[e.sender]:
					reject(i, fmt.Errorf("%w: update of removed leaf %d", errConflict, e.sender))
				case updated[e.sender]:
					reject(i, fmt.Errorf("%w: leaf %d updated twice", errConflict, e.sender))
				default:
					updated[e.sender] = true
				}
			case domain.ProposalTypeAdd:
				key := string(keypackage.Ref(g.suite, e.proposal.Add.KeyPackage))
				if added[key] {
					reject(i, fmt.Errorf("%w: key package added twice", errConflict))
				} else {
					added[key] = true
				}
			}
		}
	}
	return problems
}

// applyOrder sorts entries Updates, Removes, Adds, keeping list order within
// a type.
func applyOrder(entries []entry) []entry {
	rank := map[domain.ProposalType]int{
		domain.ProposalTypeUpdate: 0,
		domain.ProposalTypeRemove: 1,
		domain.ProposalTypeAdd:    2,
	}
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b entry) int { return rank[a.proposal.Type] - rank[b.proposal.Type] })
	return out
}

// added is a member placed by an Add.
type added struct {
	leaf       domain.LeafIndex
	keyPackage domain.KeyPackage
}

// apply runs screened entries against t.
func apply(t *tree.Tree, entries []entry) ([]added, error) {
	var joiners []added
	for _, e := range applyOrder(entries) {
		switch e.proposal.Type {
		case domain.ProposalTypeUpdate:
			if err := t.UpdateLeaf(e.sender, e.proposal.Update.LeafNode); err != nil {
				return nil, err
			}
		case domain.ProposalTypeRemove:
			if err := t.RemoveLeaf(e.proposal.Remove.Removed); err != nil {
				return nil, err
			}
		case domain.ProposalTypeAdd:
			kp := e.proposal.Add.KeyPackage
			joiners = append(joiners, added{leaf: t.AddLeaf(kp.LeafNode), keyPackage: kp})
		}
	}
	return joiners, nil
}

func (g *Group) checkActive() error {
	if g.status != domain.GroupStatusActive {
		return domain.ErrTerminated
	}
	return nil
}
