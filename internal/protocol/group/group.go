package group

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/schedule"
	"grove/internal/protocol/tree"
	"grove/internal/protocol/welcome"
	"grove/internal/protocol/wire"
)

// Group is one member's view of a group.
type Group struct {
	suite   crypto.Suite
	groupID domain.GroupID
	epoch   domain.Epoch
	status  domain.GroupStatus
	own     domain.LeafIndex
	tree    *tree.Tree

	confirmed []byte
	interim   []byte
	secrets   domain.EpochSecrets

	signer  domain.Ed25519Private
	keys    map[domain.NodeIndex]domain.X25519Private
	pending []domain.PendingProposal
	updates []domain.PendingUpdate

	log *slog.Logger
	now func() time.Time
}

// Option configures a Group.
type Option func(*Group)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Group) { g.log = l }
}

// WithClock overrides time.Now for key package lifetime checks.
func WithClock(now func() time.Time) Option {
	return func(g *Group) { g.now = now }
}

func newGroup(suite crypto.Suite, groupID domain.GroupID, opts []Option) *Group {
	g := &Group{
		suite:   suite,
		groupID: slices.Clone(groupID),
		status:  domain.GroupStatusActive,
		keys:    make(map[domain.NodeIndex]domain.X25519Private),
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	g.log = g.log.With("group", fmt.Sprintf("%x", []byte(g.groupID)))
	return g
}

// Create starts a group with the creator at leaf 0 and commits one Add per
// member, so the returned group is at epoch 1 and the result carries one
// Welcome per member.
func Create(
	suite crypto.Suite,
	groupID domain.GroupID,
	creator domain.KeyPackage,
	creatorKeys domain.KeyPackagePrivateKeys,
	signer domain.Ed25519Private,
	members []domain.KeyPackage,
	opts ...Option,
) (*Group, *CommitResult, error) {
	if len(groupID) == 0 {
		return nil, nil, fmt.Errorf("%w: empty group id", domain.ErrValidationFailed)
	}
	if creator.CipherSuite != suite.ID() {
		return nil, nil, fmt.Errorf("%w: creator key package suite", domain.ErrUnsupportedSuite)
	}
	if signer.Public() != creator.LeafNode.Credential.SignatureKey {
		return nil, nil, fmt.Errorf("%w: signer does not match creator credential", domain.ErrValidationFailed)
	}

	g := newGroup(suite, groupID, opts)
	g.tree = tree.New(creator.LeafNode)
	g.signer = signer
	g.keys[g.own.NodeIndex()] = creatorKeys.EncryptionKey

	secrets, err := schedule.Initial(suite)
	if err != nil {
		return nil, nil, err
	}
	g.secrets = secrets
	g.confirmed = nil
	tag := schedule.ConfirmationTag(suite, secrets.ConfirmationKey, g.confirmed)
	g.interim = schedule.InterimTranscriptHash(suite, g.confirmed, tag)

	adds := make([]domain.Proposal, 0, len(members))
	for _, kp := range members {
		adds = append(adds, domain.NewAddProposal(kp))
	}
	res, err := g.Commit(adds...)
	if err != nil {
		return nil, nil, err
	}
	g.log.Info("group created", "epoch", g.epoch, "members", g.tree.MemberCount())
	return g, res, nil
}

// Join builds the group state of a new member from a decoded Welcome.
func Join(
	joined *welcome.Joined,
	keys domain.KeyPackagePrivateKeys,
	signer domain.Ed25519Private,
	opts ...Option,
) (*Group, error) {
	gi := joined.GroupInfo
	gc := gi.GroupContext
	g := newGroup(joined.Suite, gc.GroupID, opts)
	g.epoch = gc.Epoch
	g.own = joined.OwnLeaf
	g.tree = joined.Tree
	g.signer = signer
	g.confirmed = slices.Clone(gc.ConfirmedTranscriptHash)
	g.interim = schedule.InterimTranscriptHash(g.suite, g.confirmed, gi.ConfirmationTag)
	g.secrets = joined.Epoch.Secrets
	g.keys[g.own.NodeIndex()] = keys.EncryptionKey

	if len(joined.PathSecret) > 0 {
		lca := tree.CommonAncestor(gi.Signer, g.own)
		nodes := append([]domain.NodeIndex{lca}, g.tree.Above(lca)...)
		ps := tree.ExtendPathSecret(g.suite, joined.PathSecret, nodes)
		for i, x := range nodes {
			priv, pub, err := tree.NodeKeyPair(g.suite, ps.Secrets[i])
			if err != nil {
				return nil, err
			}
			n := g.tree.Node(x)
			if n == nil || n.EncryptionKey() != pub {
				return nil, fmt.Errorf("%w: path secret does not match node %d", domain.ErrTreeMismatch, x)
			}
			g.keys[x] = priv
		}
	}
	g.log.Info("joined group", "epoch", g.epoch, "leaf", g.own)
	return g, nil
}

// GroupID returns the group identifier.
func (g *Group) GroupID() domain.GroupID { return slices.Clone(g.groupID) }

// Epoch returns the current epoch.
func (g *Group) Epoch() domain.Epoch { return g.epoch }

// Status reports whether the local member is still in the group.
func (g *Group) Status() domain.GroupStatus { return g.status }

// OwnLeaf is the local member's leaf index.
func (g *Group) OwnLeaf() domain.LeafIndex { return g.own }

// Suite returns the group's cipher suite.
func (g *Group) Suite() crypto.Suite { return g.suite }

// Members lists the current roster.
func (g *Group) Members() []domain.Member { return g.tree.Members() }

// EpochAuthenticator is a value every member of the epoch agrees on.
func (g *Group) EpochAuthenticator() []byte { return slices.Clone(g.secrets.EpochAuthenticator) }

// TreeHash is the hash of the current ratchet tree.
func (g *Group) TreeHash() []byte { return g.tree.Hash(g.suite) }

// ExportTree returns the ratchet tree snapshot a joiner needs.
func (g *Group) ExportTree() ([]byte, error) { return g.tree.Export() }

// Export derives application key material from the current epoch.
func (g *Group) Export(label string, context []byte, length int) ([]byte, error) {
	if g.status != domain.GroupStatusActive {
		return nil, domain.ErrTerminated
	}
	return schedule.Export(g.suite, g.secrets.ExporterSecret, label, context, length), nil
}

// PendingProposals lists the proposals queued for the next commit.
func (g *Group) PendingProposals() []domain.PendingProposal { return slices.Clone(g.pending) }

// Summary is the read-only view handed to callers.
func (g *Group) Summary() domain.GroupSummary {
	return domain.GroupSummary{
		GroupID:            g.GroupID(),
		Epoch:              g.epoch,
		Status:             g.status,
		CipherSuite:        g.suite.ID(),
		OwnLeaf:            g.own,
		Members:            g.Members(),
		EpochAuthenticator: g.EpochAuthenticator(),
	}
}

// Context returns the current group context.
func (g *Group) Context() domain.GroupContext {
	return g.contextAt(g.epoch, g.tree, g.confirmed)
}

func (g *Group) contextAt(epoch domain.Epoch, t *tree.Tree, confirmed []byte) domain.GroupContext {
	return domain.GroupContext{
		Version:                 domain.ProtocolVersionMLS10,
		CipherSuite:             g.suite.ID(),
		GroupID:                 g.groupID,
		Epoch:                   epoch,
		TreeHash:                t.Hash(g.suite),
		ConfirmedTranscriptHash: confirmed,
	}
}

// GroupInfo returns a signed GroupInfo for the current epoch.
func (g *Group) GroupInfo() *domain.GroupInfo {
	tag := schedule.ConfirmationTag(g.suite, g.secrets.ConfirmationKey, g.confirmed)
	gi := &domain.GroupInfo{GroupContext: g.Context(), ConfirmationTag: tag, Signer: g.own}
	welcome.SignGroupInfo(g.suite, g.signer, gi)
	return gi
}

// State snapshots the group for persistence. The result holds secrets.
func (g *Group) State() *domain.GroupState {
	st := &domain.GroupState{
		GroupID:                 g.GroupID(),
		Epoch:                   g.epoch,
		CipherSuite:             g.suite.ID(),
		Status:                  g.status,
		OwnLeaf:                 g.own,
		Tree:                    g.tree.Nodes(),
		ConfirmedTranscriptHash: slices.Clone(g.confirmed),
		InterimTranscriptHash:   slices.Clone(g.interim),
		Secrets:                 g.secrets,
		SignaturePrivate:        g.signer,
		PendingProposals:        slices.Clone(g.pending),
		PendingUpdates:          slices.Clone(g.updates),
	}
	for x, k := range g.keys {
		st.PrivateKeys = append(st.PrivateKeys, domain.NodePrivateKey{Node: x, Key: k})
	}
	slices.SortFunc(st.PrivateKeys, func(a, b domain.NodePrivateKey) int { return int(a.Node) - int(b.Node) })
	return st
}

// FromState restores a group saved with State.
func FromState(st *domain.GroupState, opts ...Option) (*Group, error) {
	suite, err := crypto.LookupSuite(st.CipherSuite)
	if err != nil {
		return nil, err
	}
	t, err := tree.FromNodes(st.Tree)
	if err != nil {
		return nil, err
	}
	g := newGroup(suite, st.GroupID, opts)
	g.epoch = st.Epoch
	g.status = st.Status
	g.own = st.OwnLeaf
	g.tree = t
	g.confirmed = slices.Clone(st.ConfirmedTranscriptHash)
	g.interim = slices.Clone(st.InterimTranscriptHash)
	g.secrets = st.Secrets
	g.signer = st.SignaturePrivate
	g.pending = slices.Clone(st.PendingProposals)
	g.updates = slices.Clone(st.PendingUpdates)
	for _, k := range st.PrivateKeys {
		g.keys[k.Node] = k.Key
	}
	return g, nil
}

// Marshal encodes State().
func (g *Group) Marshal() ([]byte, error) { return wire.MarshalGroupState(g.State()) }

// Unmarshal decodes a Marshal result.
func Unmarshal(data []byte, opts ...Option) (*Group, error) {
	st, err := wire.UnmarshalGroupState(data)
	if err != nil {
		return nil, err
	}
	return FromState(st, opts...)
}

// terminate drops every secret once the local member is out of the group.
func (g *Group) terminate() {
	g.status = domain.GroupStatusTerminated
	clear(g.keys)
	g.pending, g.updates = nil, nil
	g.secrets = domain.EpochSecrets{}
}
