package services

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/GShadowBroker/library-server/metrics"
	"github.com/GShadowBroker/library-server/models"
	"github.com/GShadowBroker/library-server/repository"
	"github.com/GShadowBroker/library-server/utils/errors"
)

// FriendService governs the friend-relationship transitions between users:
// none -> requested -> accepted, with a reject path. A pending request lives
// only in the target's inbox; acceptance closes the relationship
// symmetrically on both records. The two-write accept sequence runs under a
// lock keyed by the sorted user-id pair.
type FriendService struct {
	users repository.UserRepository
	locks *keyedLock
}

func NewFriendService(users repository.UserRepository) *FriendService {
	return &FriendService{users: users, locks: newKeyedLock()}
}

// Me returns the current user, populated. Anonymous requests get nil, not
// an error.
func (s *FriendService) Me(ctx context.Context) (*models.User, error) {
	me := CurrentUser(ctx)
	if me == nil {
		return nil, nil
	}
	if err := s.populate(ctx, me); err != nil {
		return nil, err
	}
	return me, nil
}

// AllUsers lists every user with friends and pending requests populated.
func (s *FriendService) AllUsers(ctx context.Context) ([]*models.User, error) {
	if CurrentUser(ctx) == nil {
		return nil, errors.ErrUnauthenticated
	}
	users, err := s.users.All(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to list users", http.StatusInternalServerError)
	}
	for _, user := range users {
		if err := s.populate(ctx, user); err != nil {
			return nil, err
		}
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// RequestFriend records a pending request in the target's inbox. The
// requester's own record is untouched: the target's friend_requests entry is
// the single source of truth for the pending state.
func (s *FriendService) RequestFriend(ctx context.Context, targetID string) (*models.User, error) {
	me := CurrentUser(ctx)
	if me == nil {
		return nil, errors.ErrUnauthenticated
	}
	if targetID == me.ID {
		return nil, errors.ErrSelfReference
	}

	unlock := s.locks.Lock(pairKey(me.ID, targetID))
	defer unlock()

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to look up user", http.StatusInternalServerError)
	}
	if target == nil {
		return nil, errors.NewNotFound("id", "User not found")
	}
	if target.HasFriend(me.ID) {
		return nil, errors.ErrAlreadyFriends
	}
	if target.HasRequestFrom(me.ID) {
		return nil, errors.ErrDuplicateRequest
	}

	target.RequestIDs = append(target.RequestIDs, me.ID)
	if err := s.users.Update(ctx, target); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to save friend request", http.StatusInternalServerError)
	}
	metrics.FriendRequests.WithLabelValues("request").Inc()

	if err := s.populate(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// AcceptFriend moves the sender from the current user's inbox into both
// friends sets and returns the sender's record, the user's new friend.
// Write (i) on the acceptor's record is the transition's source of truth;
// write (ii) on the sender's record closes the symmetry and is retried,
// never rolled back. If (ii) exhausts its retries the accept still succeeds,
// the asymmetry is logged and counted, and a later accept or repair can
// converge it because (ii) is an idempotent append.
func (s *FriendService) AcceptFriend(ctx context.Context, senderID string) (*models.User, error) {
	me := CurrentUser(ctx)
	if me == nil {
		return nil, errors.ErrUnauthenticated
	}

	unlock := s.locks.Lock(pairKey(me.ID, senderID))
	defer unlock()

	mine, err := s.users.FindByID(ctx, me.ID)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to look up user", http.StatusInternalServerError)
	}
	if mine == nil {
		return nil, errors.ErrUnauthenticated
	}
	if mine.HasFriend(senderID) {
		return nil, errors.ErrAlreadyFriends
	}
	if !mine.HasRequestFrom(senderID) {
		return nil, errors.NewNotFound("id", "Friend request not found")
	}

	mine.RequestIDs = removeID(mine.RequestIDs, senderID)
	mine.FriendIDs = append(mine.FriendIDs, senderID)
	if err := s.users.Update(ctx, mine); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to accept friend request", http.StatusInternalServerError)
	}

	s.appendFriendRef(ctx, senderID, mine.ID)
	metrics.FriendRequests.WithLabelValues("accept").Inc()

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to look up user", http.StatusInternalServerError)
	}
	if sender == nil {
		// Unreachable in practice: users are never hard-deleted and the
		// request entry proved the sender existed.
		return nil, errors.NewNotFound("id", "User not found")
	}
	if err := s.populate(ctx, sender); err != nil {
		return nil, err
	}
	return sender, nil
}

// RejectFriend drops the sender from the current user's inbox. Idempotent:
// rejecting a request that does not exist is a no-op, not an error.
func (s *FriendService) RejectFriend(ctx context.Context, senderID string) (*models.User, error) {
	me := CurrentUser(ctx)
	if me == nil {
		return nil, errors.ErrUnauthenticated
	}

	mine, err := s.users.FindByID(ctx, me.ID)
	if err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to look up user", http.StatusInternalServerError)
	}
	if mine == nil {
		return nil, errors.ErrUnauthenticated
	}

	mine.RequestIDs = removeID(mine.RequestIDs, senderID)
	if err := s.users.Update(ctx, mine); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "Failed to reject friend request", http.StatusInternalServerError)
	}
	metrics.FriendRequests.WithLabelValues("reject").Inc()

	if err := s.populate(ctx, mine); err != nil {
		return nil, err
	}
	return mine, nil
}

// appendFriendRef appends acceptorID to the sender's friends set with a
// bounded retry, re-reading the sender each attempt.
func (s *FriendService) appendFriendRef(ctx context.Context, senderID, acceptorID string) {
	for attempt := 1; attempt <= backRefRetries; attempt++ {
		sender, err := s.users.FindByID(ctx, senderID)
		if err != nil {
			slog.Warn("friend back-reference read failed", "sender", senderID, "attempt", attempt, "error", err)
			continue
		}
		if sender == nil {
			break
		}
		if sender.HasFriend(acceptorID) {
			return
		}
		sender.FriendIDs = append(sender.FriendIDs, acceptorID)
		if err := s.users.Update(ctx, sender); err != nil {
			slog.Warn("friend back-reference append failed", "sender", senderID, "attempt", attempt, "error", err)
			continue
		}
		return
	}
	slog.Error("friend back-reference append exhausted retries, relationship is asymmetric", "sender", senderID, "acceptor", acceptorID)
	metrics.ConsistencyRepairFailures.WithLabelValues("friend_back_reference").Inc()
}

// populate resolves the user's friend and request id sets into user records.
// Nested users are left unpopulated to keep the structure acyclic.
func (s *FriendService) populate(ctx context.Context, user *models.User) error {
	friends, err := s.resolveUsers(ctx, user.FriendIDs)
	if err != nil {
		return err
	}
	requests, err := s.resolveUsers(ctx, user.RequestIDs)
	if err != nil {
		return err
	}
	user.Friends = friends
	user.FriendRequests = requests
	return nil
}

func (s *FriendService) resolveUsers(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, errors.Wrap(err, "DB_ERROR", "Failed to look up user", http.StatusInternalServerError)
		}
		if user == nil {
			// Users are never hard-deleted; a dangling id is unexpected
			// but must not break the listing.
			slog.Warn("dangling user reference", "id", id)
			continue
		}
		user.Friends = []*models.User{}
		user.FriendRequests = []*models.User{}
		users = append(users, user)
	}
	return users, nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, i := range ids {
		if i != id {
			out = append(out, i)
		}
	}
	return out
}
