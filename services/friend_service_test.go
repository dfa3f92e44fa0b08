package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GShadowBroker/library-server/models"
	"github.com/GShadowBroker/library-server/repository"
	apperrors "github.com/GShadowBroker/library-server/utils/errors"
)

type friendFixture struct {
	svc   *FriendService
	users repository.UserRepository
	alice *models.User
	bob   *models.User
}

func newFriendFixture(t *testing.T) *friendFixture {
	t.Helper()
	users := repository.NewMemoryUserRepository()
	alice := &models.User{Username: "alice", FriendIDs: []string{}, RequestIDs: []string{}}
	bob := &models.User{Username: "bob", FriendIDs: []string{}, RequestIDs: []string{}}
	require.NoError(t, users.Create(context.Background(), alice))
	require.NoError(t, users.Create(context.Background(), bob))
	return &friendFixture{svc: NewFriendService(users), users: users, alice: alice, bob: bob}
}

func (f *friendFixture) as(user *models.User) context.Context {
	return WithCurrentUser(context.Background(), user)
}

func (f *friendFixture) reload(t *testing.T, id string) *models.User {
	t.Helper()
	user, err := f.users.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user
}

func TestRequestFriend(t *testing.T) {
	f := newFriendFixture(t)

	target, err := f.svc.RequestFriend(f.as(f.alice), f.bob.ID)
	require.NoError(t, err)
	require.Equal(t, f.bob.ID, target.ID)
	require.Len(t, target.FriendRequests, 1)
	require.Equal(t, f.alice.ID, target.FriendRequests[0].ID)

	// The pending state lives only in the target's inbox.
	require.Equal(t, []string{f.alice.ID}, f.reload(t, f.bob.ID).RequestIDs)
	alice := f.reload(t, f.alice.ID)
	require.Empty(t, alice.RequestIDs)
	require.Empty(t, alice.FriendIDs)
}

func TestRequestFriendDuplicate(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.svc.RequestFriend(f.as(f.alice), f.bob.ID)
	require.NoError(t, err)

	_, err = f.svc.RequestFriend(f.as(f.alice), f.bob.ID)
	require.ErrorIs(t, err, apperrors.ErrDuplicateRequest)

	require.Equal(t, []string{f.alice.ID}, f.reload(t, f.bob.ID).RequestIDs)
}

func TestRequestFriendSelf(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.svc.RequestFriend(f.as(f.alice), f.alice.ID)
	require.ErrorIs(t, err, apperrors.ErrSelfReference)
}

func TestRequestFriendUnknownTarget(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.svc.RequestFriend(f.as(f.alice), "missing-id")
	require.Error(t, err)
	require.Equal(t, "NOT_FOUND", err.(*apperrors.APIError).Code)
}

func TestRequestFriendRequiresAuthentication(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.svc.RequestFriend(context.Background(), f.bob.ID)
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestAcceptFriendSymmetricClosure(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.svc.RequestFriend(f.as(f.alice), f.bob.ID)
	require.NoError(t, err)

	// The accept returns the new friend's record, not the acceptor's own.
	friend, err := f.svc.AcceptFriend(f.as(f.bob), f.alice.ID)
	require.NoError(t, err)
	require.Equal(t, f.alice.ID, friend.ID)
	require.Len(t, friend.Friends, 1)
	require.Equal(t, f.bob.ID, friend.Friends[0].ID)

	bob := f.reload(t, f.bob.ID)
	alice := f.reload(t, f.alice.ID)
	require.Contains(t, bob.FriendIDs, f.alice.ID)
	require.Contains(t, alice.FriendIDs, f.bob.ID)
	require.NotContains(t, bob.RequestIDs, f.alice.ID)
}

func TestAcceptFriendWithoutRequest(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.svc.AcceptFriend(f.as(f.bob), f.alice.ID)
	require.Error(t, err)
	require.Equal(t, "NOT_FOUND", err.(*apperrors.APIError).Code)
}

func TestAcceptFriendAlreadyFriends(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.svc.RequestFriend(f.as(f.alice), f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.AcceptFriend(f.as(f.bob), f.alice.ID)
	require.NoError(t, err)

	_, err = f.svc.AcceptFriend(f.as(f.bob), f.alice.ID)
	require.ErrorIs(t, err, apperrors.ErrAlreadyFriends)
}

func TestRequestAfterFriendship(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.svc.RequestFriend(f.as(f.alice), f.bob.ID)
	require.NoError(t, err)
	_, err = f.svc.AcceptFriend(f.as(f.bob), f.alice.ID)
	require.NoError(t, err)

	_, err = f.svc.RequestFriend(f.as(f.alice), f.bob.ID)
	require.ErrorIs(t, err, apperrors.ErrAlreadyFriends)
}

func TestRejectFriend(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.svc.RequestFriend(f.as(f.alice), f.bob.ID)
	require.NoError(t, err)

	rejected, err := f.svc.RejectFriend(f.as(f.bob), f.alice.ID)
	require.NoError(t, err)
	require.Empty(t, rejected.FriendRequests)
	require.Empty(t, rejected.Friends)

	require.Empty(t, f.reload(t, f.bob.ID).RequestIDs)
}

func TestRejectFriendIsIdempotent(t *testing.T) {
	f := newFriendFixture(t)

	// No pending request from alice: rejecting is a no-op, not an error.
	rejected, err := f.svc.RejectFriend(f.as(f.bob), f.alice.ID)
	require.NoError(t, err)
	require.Empty(t, rejected.FriendRequests)
}

// flakyUserRepo fails a configured number of Update calls per user id.
type flakyUserRepo struct {
	repository.UserRepository
	updateFailures map[string]int
}

func (r *flakyUserRepo) Update(ctx context.Context, user *models.User) error {
	if n := r.updateFailures[user.ID]; n > 0 {
		r.updateFailures[user.ID] = n - 1
		return fmt.Errorf("store unavailable")
	}
	return r.UserRepository.Update(ctx, user)
}

func TestAcceptFriendRetriesSecondaryWrite(t *testing.T) {
	f := newFriendFixture(t)
	flaky := &flakyUserRepo{UserRepository: f.users, updateFailures: map[string]int{}}
	svc := NewFriendService(flaky)

	_, err := svc.RequestFriend(f.as(f.alice), f.bob.ID)
	require.NoError(t, err)

	// First write to alice's record fails, the retry converges.
	flaky.updateFailures[f.alice.ID] = 1
	_, err = svc.AcceptFriend(f.as(f.bob), f.alice.ID)
	require.NoError(t, err)

	require.Contains(t, f.reload(t, f.alice.ID).FriendIDs, f.bob.ID)
	require.Contains(t, f.reload(t, f.bob.ID).FriendIDs, f.alice.ID)
}

func TestAcceptFriendSucceedsDespiteAsymmetry(t *testing.T) {
	f := newFriendFixture(t)
	flaky := &flakyUserRepo{UserRepository: f.users, updateFailures: map[string]int{}}
	svc := NewFriendService(flaky)

	_, err := svc.RequestFriend(f.as(f.alice), f.bob.ID)
	require.NoError(t, err)

	// The secondary write never succeeds. The accept still reports
	// success: the acceptor's record is the transition's source of truth,
	// and the returned friend record honestly shows the not-yet-converged
	// state of the sender's side.
	flaky.updateFailures[f.alice.ID] = backRefRetries
	friend, err := svc.AcceptFriend(f.as(f.bob), f.alice.ID)
	require.NoError(t, err)
	require.Equal(t, f.alice.ID, friend.ID)
	require.Empty(t, friend.Friends)

	require.Contains(t, f.reload(t, f.bob.ID).FriendIDs, f.alice.ID)
	require.NotContains(t, f.reload(t, f.alice.ID).FriendIDs, f.bob.ID)
}

func TestMe(t *testing.T) {
	f := newFriendFixture(t)

	me, err := f.svc.Me(f.as(f.alice))
	require.NoError(t, err)
	require.Equal(t, "alice", me.Username)
	require.NotNil(t, me.Friends)
	require.NotNil(t, me.FriendRequests)

	anonymous, err := f.svc.Me(context.Background())
	require.NoError(t, err)
	require.Nil(t, anonymous)
}

func TestAllUsers(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.svc.AllUsers(context.Background())
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	users, err := f.svc.AllUsers(f.as(f.alice))
	require.NoError(t, err)
	require.Len(t, users, 2)
}
