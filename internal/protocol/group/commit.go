package group

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"maps"
	"slices"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/keypackage"
	"grove/internal/protocol/schedule"
	"grove/internal/protocol/tree"
	"grove/internal/protocol/welcome"
	"grove/internal/protocol/wire"
)

const updatePathLabel = "UpdatePathNode"

// CommitResult is what a local commit produces: the commit for existing
// members and one Welcome per added member.
type CommitResult struct {
	Commit   *domain.Commit
	Welcomes []domain.MemberWelcome
}

// Commit applies every pending proposal plus the inline ones, rotates the
// local member's path and advances the group one epoch. Pending proposals
// that no longer fit (conflicts, blank targets, the committer's own updates)
// are dropped; a bad inline proposal fails the whole commit with
// domain.ErrInvalidProposal.
func (g *Group) Commit(inline ...domain.Proposal) (*CommitResult, error) {
	if err := g.checkActive(); err != nil {
		return nil, err
	}

	entries := make([]entry, 0, len(g.pending)+len(inline))
	for _, p := range g.pending {
		entries = append(entries, entry{sender: p.Sender, ref: p.Ref, proposal: p.Proposal})
	}
	for _, p := range inline {
		entries = append(entries, entry{sender: g.own, proposal: p})
	}

	problems := g.screen(g.own, entries)
	kept := make([]entry, 0, len(entries))
	for i, e := range entries {
		switch {
		case problems[i] == nil:
			kept = append(kept, e)
		case e.ref == nil:
			if errors.Is(problems[i], domain.ErrInvalidProposal) {
				return nil, problems[i]
			}
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidProposal, problems[i])
		default:
			g.log.Debug("dropping pending proposal", "ref", e.ref, "err", problems[i])
		}
	}

	next := g.tree.Clone()
	joiners, err := apply(next, kept)
	if err != nil {
		return nil, err
	}

	leafSecret := make([]byte, g.suite.SecretSize())
	if _, err := rand.Read(leafSecret); err != nil {
		return nil, err
	}
	defer crypto.Wipe(leafSecret)
	leafPriv, leafPub, err := tree.NodeKeyPair(g.suite, leafSecret)
	if err != nil {
		return nil, err
	}
	leaf := keypackage.NewLeaf(g.suite, g.signer, *next.Leaf(g.own), leafPub, domain.LeafNodeSourceCommit, g.groupID, g.own)

	path := next.DirectPath(g.own)
	ps := tree.DerivePathSecrets(g.suite, leafSecret, path)
	privs := make([]domain.X25519Private, len(path))
	pubs := make([]domain.X25519Public, len(path))
	for i := range path {
		if privs[i], pubs[i], err = tree.NodeKeyPair(g.suite, ps.Secrets[i]); err != nil {
			return nil, err
		}
	}
	if err := next.MergePath(g.own, leaf, pubs); err != nil {
		return nil, err
	}

	newEpoch := g.epoch + 1
	ctx := wire.MarshalGroupContext(g.contextAt(newEpoch, next, g.confirmed))
	exclude := joinerNodes(joiners)
	copath := next.Copath(g.own)
	upath := &domain.UpdatePath{LeafNode: leaf, Nodes: make([]domain.UpdatePathNode, len(path))}
	for i := range path {
		upath.Nodes[i].EncryptionKey = pubs[i]
		for _, x := range resolutionExcept(next, copath[i], exclude) {
			ct, err := g.suite.EncryptWithLabel(next.Node(x).EncryptionKey(), updatePathLabel, ctx, ps.Secrets[i])
			if err != nil {
				return nil, err
			}
			upath.Nodes[i].EncryptedPathSecret = append(upath.Nodes[i].EncryptedPathSecret, ct)
		}
	}

	commit := &domain.Commit{GroupID: g.GroupID(), Epoch: newEpoch, Sender: g.own, Path: upath}
	for _, e := range kept {
		commit.Proposals = append(commit.Proposals, e.orRef())
	}
	tbs, err := wire.CommitTBS(commit, g.Context())
	if err != nil {
		return nil, err
	}
	commit.Signature = g.suite.SignWithLabel(g.signer, framedContentLabel, tbs)

	confirmed, err := schedule.ConfirmedTranscriptHash(g.suite, g.interim, commit)
	if err != nil {
		return nil, err
	}
	gc := g.contextAt(newEpoch, next, confirmed)
	ep := schedule.Advance(g.suite, g.secrets.InitSecret, ps.CommitSecret, gc)
	commit.ConfirmationTag = schedule.ConfirmationTag(g.suite, ep.Secrets.ConfirmationKey, confirmed)

	res := &CommitResult{Commit: commit}
	if len(joiners) > 0 {
		gi := &domain.GroupInfo{GroupContext: gc, ConfirmationTag: commit.ConfirmationTag, Signer: g.own}
		welcome.SignGroupInfo(g.suite, g.signer, gi)
		for _, j := range joiners {
			k := slices.Index(path, tree.CommonAncestor(g.own, j.leaf))
			w, err := welcome.Encode(g.suite, gi, ep.JoinerSecret, ep.WelcomeSecret, welcome.Recipient{
				KeyPackage: j.keyPackage,
				PathSecret: ps.Secrets[k],
			})
			if err != nil {
				return nil, err
			}
			res.Welcomes = append(res.Welcomes, domain.MemberWelcome{
				Member:  keypackage.Ref(g.suite, j.keyPackage),
				Welcome: w,
			})
		}
	}

	keys := map[domain.NodeIndex]domain.X25519Private{g.own.NodeIndex(): leafPriv}
	for i, x := range path {
		keys[x] = privs[i]
	}
	g.advance(next, newEpoch, confirmed, commit.ConfirmationTag, ep.Secrets, keys)
	g.log.Info("commit created",
		"epoch", g.epoch,
		"proposals", len(kept),
		"welcomes", len(res.Welcomes),
		"members", g.tree.MemberCount(),
	)
	return res, nil
}

// ApplyCommit processes a commit from another member. On any error the
// group is left exactly as it was. A commit that removes the local member
// terminates the group.
func (g *Group) ApplyCommit(c *domain.Commit) error {
	if err := g.checkActive(); err != nil {
		return err
	}
	if !c.GroupID.Equal(g.groupID) {
		return fmt.Errorf("%w: commit for another group", domain.ErrValidationFailed)
	}
	if c.Epoch != g.epoch+1 {
		return fmt.Errorf("%w: commit for epoch %d, at %d", domain.ErrStaleEpoch, c.Epoch, g.epoch)
	}
	committer := g.tree.Leaf(c.Sender)
	if committer == nil || c.Sender == g.own {
		return fmt.Errorf("%w: commit sender %d", domain.ErrValidationFailed, c.Sender)
	}
	tbs, err := wire.CommitTBS(c, g.Context())
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidationFailed, err)
	}
	if !g.suite.VerifyWithLabel(committer.Credential.SignatureKey, framedContentLabel, tbs, c.Signature) {
		return fmt.Errorf("%w: %w: commit", domain.ErrValidationFailed, domain.ErrInvalidSignature)
	}

	entries, err := g.resolve(c)
	if err != nil {
		return err
	}
	for _, p := range g.screen(c.Sender, entries) {
		if p != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidationFailed, p)
		}
	}
	if c.Path == nil {
		return fmt.Errorf("%w: commit without path", domain.ErrValidationFailed)
	}

	next := g.tree.Clone()
	joiners, err := apply(next, entries)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidationFailed, err)
	}
	// Removed members get no path secret, so past this point they can check
	// nothing beyond the signature and the proposals.
	if next.Leaf(g.own) == nil {
		g.epoch = c.Epoch
		g.tree = next
		g.terminate()
		g.log.Info("removed from group", "epoch", g.epoch, "by", c.Sender)
		return nil
	}

	leaf := c.Path.LeafNode
	if leaf.Source != domain.LeafNodeSourceCommit ||
		leaf.Credential.SignatureKey != committer.Credential.SignatureKey ||
		!keypackage.VerifyLeaf(g.suite, leaf, g.groupID, c.Sender) {
		return fmt.Errorf("%w: %w: committer leaf", domain.ErrValidationFailed, domain.ErrInvalidSignature)
	}
	path := next.DirectPath(c.Sender)
	if len(c.Path.Nodes) != len(path) {
		return fmt.Errorf("%w: path has %d nodes, want %d", domain.ErrValidationFailed, len(c.Path.Nodes), len(path))
	}
	pubs := make([]domain.X25519Public, len(path))
	for i, n := range c.Path.Nodes {
		pubs[i] = n.EncryptionKey
	}
	if err := next.MergePath(c.Sender, leaf, pubs); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidationFailed, err)
	}

	keys := maps.Clone(g.keys)
	for _, e := range entries {
		if e.proposal.Type != domain.ProposalTypeUpdate || e.sender != g.own {
			continue
		}
		i := slices.IndexFunc(g.updates, func(u domain.PendingUpdate) bool { return bytes.Equal(u.Ref, e.ref) })
		if i < 0 {
			return fmt.Errorf("%w: own update without a key", domain.ErrValidationFailed)
		}
		keys[g.own.NodeIndex()] = g.updates[i].EncryptionKey
	}
	pruneKeys(keys, next)

	k := slices.Index(path, tree.CommonAncestor(c.Sender, g.own))
	ctx := wire.MarshalGroupContext(g.contextAt(c.Epoch, next, g.confirmed))
	secret, err := g.decryptPathSecret(next, keys, next.Copath(c.Sender)[k], joinerNodes(joiners), ctx, c.Path.Nodes[k])
	if err != nil {
		return err
	}
	defer crypto.Wipe(secret)

	ps := tree.ExtendPathSecret(g.suite, secret, path[k:])
	for i, x := range ps.Nodes {
		priv, pub, err := tree.NodeKeyPair(g.suite, ps.Secrets[i])
		if err != nil {
			return err
		}
		if pub != pubs[k+i] {
			return fmt.Errorf("%w: path key mismatch at node %d", domain.ErrValidationFailed, x)
		}
		keys[x] = priv
	}

	confirmed, err := schedule.ConfirmedTranscriptHash(g.suite, g.interim, c)
	if err != nil {
		return err
	}
	ep := schedule.Advance(g.suite, g.secrets.InitSecret, ps.CommitSecret, g.contextAt(c.Epoch, next, confirmed))
	if !schedule.VerifyConfirmationTag(g.suite, ep.Secrets.ConfirmationKey, confirmed, c.ConfirmationTag) {
		return fmt.Errorf("%w: confirmation tag", domain.ErrValidationFailed)
	}

	g.advance(next, c.Epoch, confirmed, c.ConfirmationTag, ep.Secrets, keys)
	g.log.Info("commit applied",
		"epoch", g.epoch,
		"sender", c.Sender,
		"proposals", len(entries),
		"members", g.tree.MemberCount(),
	)
	return nil
}

// resolve turns a commit's proposal list into entries, looking references
// up in the pending queue.
func (g *Group) resolve(c *domain.Commit) ([]entry, error) {
	entries := make([]entry, 0, len(c.Proposals))
	for _, por := range c.Proposals {
		switch por.Type {
		case domain.ProposalOrRefInline:
			if por.Proposal == nil {
				return nil, fmt.Errorf("%w: empty inline proposal", domain.ErrValidationFailed)
			}
			entries = append(entries, entry{sender: c.Sender, proposal: *por.Proposal})
		case domain.ProposalOrRefReference:
			i := slices.IndexFunc(g.pending, func(p domain.PendingProposal) bool { return bytes.Equal(p.Ref, por.Reference) })
			if i < 0 {
				return nil, fmt.Errorf("%w: unknown proposal %x", domain.ErrValidationFailed, []byte(por.Reference))
			}
			p := g.pending[i]
			entries = append(entries, entry{sender: p.Sender, ref: p.Ref, proposal: p.Proposal})
		default:
			return nil, fmt.Errorf("%w: proposal-or-ref type %d", domain.ErrValidationFailed, por.Type)
		}
	}
	return entries, nil
}

// decryptPathSecret finds the node of copath's resolution the local member
// holds a key for and opens the matching ciphertext.
func (g *Group) decryptPathSecret(
	t *tree.Tree,
	keys map[domain.NodeIndex]domain.X25519Private,
	copath domain.NodeIndex,
	exclude map[domain.NodeIndex]bool,
	ctx []byte,
	node domain.UpdatePathNode,
) ([]byte, error) {
	res := resolutionExcept(t, copath, exclude)
	if len(node.EncryptedPathSecret) != len(res) {
		return nil, fmt.Errorf("%w: %d path ciphertexts for %d recipients", domain.ErrValidationFailed, len(node.EncryptedPathSecret), len(res))
	}
	for j, x := range res {
		priv, ok := keys[x]
		if !ok {
			continue
		}
		secret, err := g.suite.DecryptWithLabel(priv, updatePathLabel, ctx, node.EncryptedPathSecret[j])
		if err != nil {
			return nil, fmt.Errorf("%w: %w: path secret", domain.ErrValidationFailed, err)
		}
		return secret, nil
	}
	return nil, fmt.Errorf("%w: no key for the update path", domain.ErrValidationFailed)
}

// advance swaps in a new epoch.
func (g *Group) advance(
	t *tree.Tree,
	epoch domain.Epoch,
	confirmed, tag []byte,
	secrets domain.EpochSecrets,
	keys map[domain.NodeIndex]domain.X25519Private,
) {
	g.tree = t
	g.epoch = epoch
	g.confirmed = confirmed
	g.interim = schedule.InterimTranscriptHash(g.suite, confirmed, tag)
	g.secrets = secrets
	g.keys = keys
	g.pending = nil
	g.updates = nil
}

// pruneKeys drops private keys whose node is gone or carries another key.
func pruneKeys(keys map[domain.NodeIndex]domain.X25519Private, t *tree.Tree) {
	for x, priv := range keys {
		n := t.Node(x)
		if n == nil {
			delete(keys, x)
			continue
		}
		pub, err := crypto.PublicX25519(priv)
		if err != nil || pub != n.EncryptionKey() {
			delete(keys, x)
		}
	}
}

func joinerNodes(joiners []added) map[domain.NodeIndex]bool {
	out := make(map[domain.NodeIndex]bool, len(joiners))
	for _, j := range joiners {
		out[j.leaf.NodeIndex()] = true
	}
	return out
}

// resolutionExcept is the resolution of x without the leaves added by the
// commit being built or applied; those get their secrets from the Welcome.
func resolutionExcept(t *tree.Tree, x domain.NodeIndex, exclude map[domain.NodeIndex]bool) []domain.NodeIndex {
	return slices.DeleteFunc(t.Resolution(x), func(n domain.NodeIndex) bool { return exclude[n] })
}
