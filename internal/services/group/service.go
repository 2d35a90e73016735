package group

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/group"
	"grove/internal/protocol/keypackage"
	"grove/internal/protocol/welcome"
)

// consumedCacheSize bounds the replay cache of key packages used to join.
const consumedCacheSize = 1024

// StoreOpener returns the group store for an identity's storage key.
type StoreOpener func(storageKey []byte) (domain.GroupStore, error)

// Service implements domain.GroupService.
type Service struct {
	ids    domain.IdentityStore
	kps    domain.KeyPackageStore
	groups StoreOpener
	suite  crypto.Suite
	log    *slog.Logger
	now    func() time.Time

	locks    sync.Map // group id -> *sync.Mutex
	consumed *lru.Cache[string, struct{}]
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock overrides time.Now for key package checks.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New returns a group service. New groups use suite.
func New(
	ids domain.IdentityStore,
	kps domain.KeyPackageStore,
	groups StoreOpener,
	suite crypto.Suite,
	opts ...Option,
) *Service {
	consumed, _ := lru.New[string, struct{}](consumedCacheSize)
	s := &Service{
		ids:      ids,
		kps:      kps,
		groups:   groups,
		suite:    suite,
		log:      slog.Default(),
		now:      time.Now,
		consumed: consumed,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// session is one call's view of the client: its identity and sealed store.
type session struct {
	id    domain.Identity
	store domain.GroupStore
}

func (s *Service) open(passphrase string) (*session, error) {
	id, err := s.ids.LoadIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	st, err := s.groups(id.StorageKey)
	if err != nil {
		return nil, err
	}
	return &session{id: id, store: st}, nil
}

func (s *Service) lock(id domain.GroupID) func() {
	v, _ := s.locks.LoadOrStore(string(id), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) groupOpts() []group.Option {
	return []group.Option{group.WithLogger(s.log), group.WithClock(s.now)}
}

func (s *Service) load(ctx context.Context, sess *session, id domain.GroupID) (*group.Group, error) {
	blob, err := sess.store.LoadGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	return group.Unmarshal(blob, s.groupOpts()...)
}

func (s *Service) save(ctx context.Context, sess *session, g *group.Group) error {
	blob, err := g.Marshal()
	if err != nil {
		return err
	}
	return sess.store.SaveGroup(ctx, g.GroupID(), blob)
}

// update loads a group, runs fn and persists the result if fn succeeds.
func (s *Service) update(
	ctx context.Context,
	passphrase string,
	id domain.GroupID,
	fn func(g *group.Group) error,
) (*group.Group, error) {
	sess, err := s.open(passphrase)
	if err != nil {
		return nil, err
	}
	unlock := s.lock(id)
	defer unlock()

	g, err := s.load(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := fn(g); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess, g); err != nil {
		return nil, err
	}
	return g, nil
}

// CreateGroup creates groupID with the local client at leaf 0 and adds the
// owners of members in the first commit.
func (s *Service) CreateGroup(
	ctx context.Context,
	passphrase string,
	groupID domain.GroupID,
	members []domain.KeyPackage,
) (domain.CommitOutput, error) {
	if len(groupID) == 0 {
		return domain.CommitOutput{}, fmt.Errorf("%w: empty group id", domain.ErrValidationFailed)
	}
	sess, err := s.open(passphrase)
	if err != nil {
		return domain.CommitOutput{}, err
	}
	unlock := s.lock(groupID)
	defer unlock()

	_, err = sess.store.LoadGroup(ctx, groupID)
	switch {
	case err == nil:
		return domain.CommitOutput{}, fmt.Errorf("%w: %q", domain.ErrDuplicateGroupID, groupID.String())
	case !errors.Is(err, domain.ErrNotFound):
		return domain.CommitOutput{}, err
	}

	// The creator's key package never leaves this call.
	creator, keys, err := keypackage.Generate(
		s.suite,
		sess.id.Credential,
		sess.id.SignaturePrivate,
		keypackage.DefaultCapabilities(),
		keypackage.LifetimeFrom(s.now(), keypackage.DefaultLifetime),
	)
	if err != nil {
		return domain.CommitOutput{}, err
	}
	g, res, err := group.Create(s.suite, groupID, creator, keys, sess.id.SignaturePrivate, members, s.groupOpts()...)
	if err != nil {
		return domain.CommitOutput{}, err
	}
	if err := s.save(ctx, sess, g); err != nil {
		return domain.CommitOutput{}, err
	}
	return output(g, res), nil
}

// JoinGroupByWelcome joins the group w was sealed for, using one of the
// local client's stored key packages and the supplied tree snapshot. The
// key package is consumed on success.
func (s *Service) JoinGroupByWelcome(
	ctx context.Context,
	passphrase string,
	w *domain.Welcome,
	ratchetTree []byte,
) (domain.GroupSummary, error) {
	sess, err := s.open(passphrase)
	if err != nil {
		return domain.GroupSummary{}, err
	}

	var (
		ref  domain.KeyPackageRef
		kp   domain.KeyPackage
		priv domain.KeyPackagePrivateKeys
	)
	for _, sec := range w.Secrets {
		if s.consumed.Contains(string(sec.NewMember)) {
			return domain.GroupSummary{}, fmt.Errorf("%w: key package %s already used", domain.ErrValidationFailed, sec.NewMember)
		}
		var ok bool
		kp, priv, ok, err = s.kps.LoadKeyPackage(sec.NewMember)
		if err != nil {
			return domain.GroupSummary{}, err
		}
		if ok {
			ref = sec.NewMember
			break
		}
	}
	if ref == nil {
		return domain.GroupSummary{}, fmt.Errorf("%w: welcome is for none of our key packages", domain.ErrDecryptFailure)
	}

	joined, err := welcome.Decode(w, kp, priv, ratchetTree)
	if err != nil {
		return domain.GroupSummary{}, err
	}
	g, err := group.Join(joined, priv, sess.id.SignaturePrivate, s.groupOpts()...)
	if err != nil {
		return domain.GroupSummary{}, err
	}

	unlock := s.lock(g.GroupID())
	defer unlock()
	_, err = sess.store.LoadGroup(ctx, g.GroupID())
	switch {
	case err == nil:
		return domain.GroupSummary{}, fmt.Errorf("%w: %q", domain.ErrDuplicateGroupID, g.GroupID().String())
	case !errors.Is(err, domain.ErrNotFound):
		return domain.GroupSummary{}, err
	}
	if err := s.save(ctx, sess, g); err != nil {
		return domain.GroupSummary{}, err
	}
	if _, _, _, err := s.kps.ConsumeKeyPackage(ref); err != nil {
		return domain.GroupSummary{}, err
	}
	s.consumed.Add(string(ref), struct{}{})
	return g.Summary(), nil
}

// ExportRatchetTree returns the tree snapshot joiners of the current epoch need.
func (s *Service) ExportRatchetTree(ctx context.Context, passphrase string, groupID domain.GroupID) ([]byte, error) {
	g, err := s.read(ctx, passphrase, groupID)
	if err != nil {
		return nil, err
	}
	return g.ExportTree()
}

// CheckGroupID returns the id of the stored group, or domain.ErrNotFound.
func (s *Service) CheckGroupID(ctx context.Context, passphrase string, groupID domain.GroupID) (domain.GroupID, error) {
	g, err := s.read(ctx, passphrase, groupID)
	if err != nil {
		return nil, err
	}
	return g.GroupID(), nil
}

// LoadGroup returns the summary of a stored group.
func (s *Service) LoadGroup(ctx context.Context, passphrase string, groupID domain.GroupID) (domain.GroupSummary, error) {
	g, err := s.read(ctx, passphrase, groupID)
	if err != nil {
		return domain.GroupSummary{}, err
	}
	return g.Summary(), nil
}

func (s *Service) read(ctx context.Context, passphrase string, groupID domain.GroupID) (*group.Group, error) {
	sess, err := s.open(passphrase)
	if err != nil {
		return nil, err
	}
	unlock := s.lock(groupID)
	defer unlock()
	return s.load(ctx, sess, groupID)
}

// ProposeAdd queues and returns an Add proposal for kp.
func (s *Service) ProposeAdd(
	ctx context.Context,
	passphrase string,
	groupID domain.GroupID,
	kp domain.KeyPackage,
) (*domain.ProposalMessage, error) {
	var msg *domain.ProposalMessage
	_, err := s.update(ctx, passphrase, groupID, func(g *group.Group) (err error) {
		msg, err = g.ProposeAdd(kp)
		return err
	})
	return msg, err
}

// ProposeRemove queues and returns a Remove proposal for leaf.
func (s *Service) ProposeRemove(
	ctx context.Context,
	passphrase string,
	groupID domain.GroupID,
	leaf domain.LeafIndex,
) (*domain.ProposalMessage, error) {
	var msg *domain.ProposalMessage
	_, err := s.update(ctx, passphrase, groupID, func(g *group.Group) (err error) {
		msg, err = g.ProposeRemove(leaf)
		return err
	})
	return msg, err
}

// ProposeUpdate queues and returns an Update of the local leaf.
func (s *Service) ProposeUpdate(ctx context.Context, passphrase string, groupID domain.GroupID) (*domain.ProposalMessage, error) {
	var msg *domain.ProposalMessage
	_, err := s.update(ctx, passphrase, groupID, func(g *group.Group) (err error) {
		msg, err = g.ProposeUpdate()
		return err
	})
	return msg, err
}

// ReceiveProposal verifies and queues a peer's proposal.
func (s *Service) ReceiveProposal(ctx context.Context, passphrase string, msg *domain.ProposalMessage) error {
	_, err := s.update(ctx, passphrase, msg.GroupID, func(g *group.Group) error {
		return g.ReceiveProposal(msg)
	})
	return err
}

// Commit commits the pending proposals plus inline ones.
func (s *Service) Commit(
	ctx context.Context,
	passphrase string,
	groupID domain.GroupID,
	inline []domain.Proposal,
) (domain.CommitOutput, error) {
	var res *group.CommitResult
	g, err := s.update(ctx, passphrase, groupID, func(g *group.Group) (err error) {
		res, err = g.Commit(inline...)
		return err
	})
	if err != nil {
		return domain.CommitOutput{}, err
	}
	return output(g, res), nil
}

// ApplyCommit applies a peer's commit. On error the stored state is unchanged.
func (s *Service) ApplyCommit(ctx context.Context, passphrase string, c *domain.Commit) (domain.GroupSummary, error) {
	g, err := s.update(ctx, passphrase, c.GroupID, func(g *group.Group) error {
		return g.ApplyCommit(c)
	})
	if err != nil {
		return domain.GroupSummary{}, err
	}
	return g.Summary(), nil
}

// Leave asks the group to remove the local member. The returned proposal is
// nil when the local member was alone and the group is now terminated.
func (s *Service) Leave(ctx context.Context, passphrase string, groupID domain.GroupID) (*domain.ProposalMessage, error) {
	var msg *domain.ProposalMessage
	_, err := s.update(ctx, passphrase, groupID, func(g *group.Group) (err error) {
		msg, err = g.Leave()
		return err
	})
	return msg, err
}

func output(g *group.Group, res *group.CommitResult) domain.CommitOutput {
	return domain.CommitOutput{Summary: g.Summary(), Commit: res.Commit, Welcomes: res.Welcomes}
}

// Compile-time assertion that Service implements domain.GroupService.
var _ domain.GroupService = (*Service)(nil)
