package group_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/services/group"
	"grove/internal/services/identity"
	"grove/internal/services/keypackage"
	"grove/internal/store"
)

const pass = "Correct-Horse-42"

type client struct {
	home   string
	groups *group.Service
	kps    *keypackage.Service
	opener group.StoreOpener
	ids    domain.IdentityStore
	kpst   domain.KeyPackageStore
	suite  crypto.Suite
}

func newClient(t *testing.T, name string) *client {
	t.Helper()
	home := t.TempDir()
	ids := store.NewIdentityFileStore(home, store.ScryptParams{N: 16, R: 8, P: 1})
	kpst := store.NewKeyPackageFileStore(home)
	_, _, err := identity.New(ids, nil).CreateClient(pass, []byte(name))
	require.NoError(t, err)

	suite, err := crypto.LookupSuite(domain.CipherSuiteX25519AES128GCMSHA256Ed25519)
	require.NoError(t, err)
	inner := store.NewGroupFileStore(home)
	opener := func(key []byte) (domain.GroupStore, error) { return store.NewSealedGroupStore(inner, key) }
	return &client{
		home:   home,
		groups: group.New(ids, kpst, opener, suite),
		kps:    keypackage.New(ids, kpst, suite),
		opener: opener,
		ids:    ids,
		kpst:   kpst,
		suite:  suite,
	}
}

func (c *client) keyPackage(t *testing.T) domain.KeyPackage {
	t.Helper()
	pkgs, err := c.kps.GenerateKeyPackages(pass, 1)
	require.NoError(t, err)
	return pkgs[0]
}

// team creates team-42 owned by alice with bob and carol joined.
func team(t *testing.T) (alice, bob, carol *client) {
	t.Helper()
	ctx := context.Background()
	alice, bob, carol = newClient(t, "alice"), newClient(t, "bob"), newClient(t, "carol")
	out, err := alice.groups.CreateGroup(ctx, pass, domain.GroupIDFromString("team-42"),
		[]domain.KeyPackage{bob.keyPackage(t), carol.keyPackage(t)})
	require.NoError(t, err)
	require.Len(t, out.Welcomes, 2)

	snapshot, err := alice.groups.ExportRatchetTree(ctx, pass, domain.GroupIDFromString("team-42"))
	require.NoError(t, err)
	_, err = bob.groups.JoinGroupByWelcome(ctx, pass, out.Welcomes[0].Welcome, snapshot)
	require.NoError(t, err)
	_, err = carol.groups.JoinGroupByWelcome(ctx, pass, out.Welcomes[1].Welcome, snapshot)
	require.NoError(t, err)
	return alice, bob, carol
}

func TestCreateAndJoin_Team42(t *testing.T) {
	ctx := context.Background()
	alice, bob, carol := team(t)
	id := domain.GroupIDFromString("team-42")

	creator, err := alice.groups.LoadGroup(ctx, pass, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Epoch(1), creator.Epoch)
	assert.Len(t, creator.Members, 3)

	for _, c := range []*client{bob, carol} {
		got, err := c.groups.CheckGroupID(ctx, pass, id)
		require.NoError(t, err)
		assert.Equal(t, "team-42", got.String())

		sum, err := c.groups.LoadGroup(ctx, pass, id)
		require.NoError(t, err)
		assert.Equal(t, creator.Epoch, sum.Epoch)
		assert.Len(t, sum.Members, len(creator.Members))
		assert.Equal(t, creator.EpochAuthenticator, sum.EpochAuthenticator)
	}

	// the joiners' key packages are spent
	refs, err := bob.kpst.ListKeyPackageRefs()
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestCreateGroup_Duplicate(t *testing.T) {
	ctx := context.Background()
	alice := newClient(t, "alice")
	id := domain.GroupIDFromString("dup")

	_, err := alice.groups.CreateGroup(ctx, pass, id, nil)
	require.NoError(t, err)
	_, err = alice.groups.CreateGroup(ctx, pass, id, nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateGroupID)

	_, err = alice.groups.CreateGroup(ctx, pass, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestLoadGroup_NotFound(t *testing.T) {
	alice := newClient(t, "alice")
	_, err := alice.groups.LoadGroup(context.Background(), pass, domain.GroupIDFromString("missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = alice.groups.CheckGroupID(context.Background(), pass, domain.GroupIDFromString("missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJoin_WelcomeReplay(t *testing.T) {
	ctx := context.Background()
	alice, bob := newClient(t, "alice"), newClient(t, "bob")
	id := domain.GroupIDFromString("replay")

	out, err := alice.groups.CreateGroup(ctx, pass, id, []domain.KeyPackage{bob.keyPackage(t)})
	require.NoError(t, err)
	snapshot, err := alice.groups.ExportRatchetTree(ctx, pass, id)
	require.NoError(t, err)
	w := out.Welcomes[0].Welcome

	_, err = bob.groups.JoinGroupByWelcome(ctx, pass, w, snapshot)
	require.NoError(t, err)
	_, err = bob.groups.JoinGroupByWelcome(ctx, pass, w, snapshot)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	// a fresh process has no replay cache, but the key package is gone
	fresh := group.New(bob.ids, bob.kpst, bob.opener, bob.suite)
	_, err = fresh.JoinGroupByWelcome(ctx, pass, w, snapshot)
	assert.ErrorIs(t, err, domain.ErrDecryptFailure)
}

func TestJoin_TreeMismatchKeepsKeyPackage(t *testing.T) {
	ctx := context.Background()
	alice, bob := newClient(t, "alice"), newClient(t, "bob")
	id := domain.GroupIDFromString("mismatch")

	out, err := alice.groups.CreateGroup(ctx, pass, id, []domain.KeyPackage{bob.keyPackage(t)})
	require.NoError(t, err)
	_, err = alice.groups.Commit(ctx, pass, id, nil)
	require.NoError(t, err)
	later, err := alice.groups.ExportRatchetTree(ctx, pass, id)
	require.NoError(t, err)

	_, err = bob.groups.JoinGroupByWelcome(ctx, pass, out.Welcomes[0].Welcome, later)
	assert.ErrorIs(t, err, domain.ErrTreeMismatch)
	refs, err := bob.kpst.ListKeyPackageRefs()
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestApplyCommit_TamperedTagThenStale(t *testing.T) {
	ctx := context.Background()
	alice, bob, carol := team(t)
	id := domain.GroupIDFromString("team-42")

	out, err := alice.groups.Commit(ctx, pass, id, []domain.Proposal{domain.NewRemoveProposal(1)})
	require.NoError(t, err)

	tampered := *out.Commit
	tampered.ConfirmationTag = append([]byte(nil), out.Commit.ConfirmationTag...)
	tampered.ConfirmationTag[len(tampered.ConfirmationTag)-1] ^= 0x01
	_, err = carol.groups.ApplyCommit(ctx, pass, &tampered)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	sum, err := carol.groups.LoadGroup(ctx, pass, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Epoch(1), sum.Epoch)

	sum, err = carol.groups.ApplyCommit(ctx, pass, out.Commit)
	require.NoError(t, err)
	assert.Equal(t, domain.Epoch(2), sum.Epoch)
	assert.Len(t, sum.Members, 2)

	_, err = carol.groups.ApplyCommit(ctx, pass, out.Commit)
	assert.ErrorIs(t, err, domain.ErrStaleEpoch)

	sum, err = bob.groups.ApplyCommit(ctx, pass, out.Commit)
	require.NoError(t, err)
	assert.Equal(t, domain.GroupStatusTerminated, sum.Status)
}

func TestProposalsThroughService(t *testing.T) {
	ctx := context.Background()
	alice, bob, carol := team(t)
	id := domain.GroupIDFromString("team-42")

	msg, err := bob.groups.ProposeUpdate(ctx, pass, id)
	require.NoError(t, err)
	require.NoError(t, alice.groups.ReceiveProposal(ctx, pass, msg))
	require.NoError(t, carol.groups.ReceiveProposal(ctx, pass, msg))

	out, err := alice.groups.Commit(ctx, pass, id, nil)
	require.NoError(t, err)
	for _, c := range []*client{bob, carol} {
		sum, err := c.groups.ApplyCommit(ctx, pass, out.Commit)
		require.NoError(t, err)
		assert.Equal(t, out.Summary.EpochAuthenticator, sum.EpochAuthenticator)
	}

	leave, err := carol.groups.Leave(ctx, pass, id)
	require.NoError(t, err)
	require.NoError(t, alice.groups.ReceiveProposal(ctx, pass, leave))
	require.NoError(t, bob.groups.ReceiveProposal(ctx, pass, leave))
	out, err = alice.groups.Commit(ctx, pass, id, nil)
	require.NoError(t, err)
	_, err = bob.groups.ApplyCommit(ctx, pass, out.Commit)
	require.NoError(t, err)
	sum, err := carol.groups.ApplyCommit(ctx, pass, out.Commit)
	require.NoError(t, err)
	assert.Equal(t, domain.GroupStatusTerminated, sum.Status)
}

func TestCommit_SerializedPerGroup(t *testing.T) {
	ctx := context.Background()
	alice := newClient(t, "alice")
	id := domain.GroupIDFromString("busy")
	_, err := alice.groups.CreateGroup(ctx, pass, id, nil)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := alice.groups.Commit(ctx, pass, id, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sum, err := alice.groups.LoadGroup(ctx, pass, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Epoch(1+n), sum.Epoch)
}

func TestWrongPassphrase(t *testing.T) {
	alice := newClient(t, "alice")
	_, err := alice.groups.CreateGroup(context.Background(), "Wrong-Horse-42", domain.GroupIDFromString("g"), nil)
	assert.ErrorIs(t, err, domain.ErrAuthFailure)
}
