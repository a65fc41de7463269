package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clipstream-backend/application/ports"
	"clipstream-backend/domain/core/entities"
	"clipstream-backend/domain/core/valueobjects"
	"clipstream-backend/infrastructure/persistence/memory"
	"clipstream-backend/infrastructure/persistence/repository"
	apperrors "clipstream-backend/pkg/errors"
)

type socialFixture struct {
	service *SocialGraphService
	users   ports.UserRepository
}

func newSocialFixture(t *testing.T) *socialFixture {
	t.Helper()
	store := memory.NewEntityStore()
	users := repository.NewUserRepository(store)
	service := NewSocialGraphService(users, memory.NewPairLocker(), nil, zap.NewNop())
	return &socialFixture{service: service, users: users}
}

func (f *socialFixture) createUser(t *testing.T, username string) *entities.User {
	t.Helper()
	user, err := entities.NewUser(username+"@example.com", username)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *socialFixture) reload(t *testing.T, id valueobjects.UserID) *entities.User {
	t.Helper()
	user, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

func TestFollow_Success(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	err := f.service.Follow(context.Background(), alice.ID.String(), bob.ID.String())
	require.NoError(t, err)

	gotAlice := f.reload(t, alice.ID)
	gotBob := f.reload(t, bob.ID)

	assert.True(t, gotAlice.IsFollowing(bob.ID))
	assert.True(t, gotBob.Followers.Contains(alice.ID.String()))
	assert.Equal(t, 1, gotAlice.FollowingCount)
	assert.Equal(t, 1, gotBob.FollowersCount)
	assert.NoError(t, gotAlice.CheckCountInvariants())
	assert.NoError(t, gotBob.CheckCountInvariants())
}

func TestFollow_Self(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")

	err := f.service.Follow(context.Background(), alice.ID.String(), alice.ID.String())
	assert.True(t, apperrors.IsInvalidOperation(err))
}

func TestFollow_TargetMissing(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")

	err := f.service.Follow(context.Background(), alice.ID.String(), valueobjects.NewUserID().String())
	assert.True(t, apperrors.IsNotFound(err))

	gotAlice := f.reload(t, alice.ID)
	assert.Equal(t, 0, gotAlice.Following.Len())
	assert.Equal(t, 0, gotAlice.FollowingCount)
}

func TestFollow_MalformedID(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")

	err := f.service.Follow(context.Background(), alice.ID.String(), "not-a-uuid")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFollow_Duplicate(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	require.NoError(t, f.service.Follow(context.Background(), alice.ID.String(), bob.ID.String()))

	err := f.service.Follow(context.Background(), alice.ID.String(), bob.ID.String())
	assert.True(t, apperrors.IsConflict(err))

	gotBob := f.reload(t, bob.ID)
	assert.Equal(t, 1, gotBob.FollowersCount)
}

func TestFollow_ConcurrentDuplicates(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	const attempts = 16
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- f.service.Follow(context.Background(), alice.ID.String(), bob.ID.String())
		}()
	}
	wg.Wait()
	close(results)

	successes, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case apperrors.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	gotAlice := f.reload(t, alice.ID)
	gotBob := f.reload(t, bob.ID)
	assert.Equal(t, 1, gotAlice.FollowingCount)
	assert.Equal(t, 1, gotBob.FollowersCount)
	assert.NoError(t, gotAlice.CheckCountInvariants())
	assert.NoError(t, gotBob.CheckCountInvariants())
}

func TestUnfollow_Success(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	require.NoError(t, f.service.Follow(context.Background(), alice.ID.String(), bob.ID.String()))

	err := f.service.Unfollow(context.Background(), alice.ID.String(), bob.ID.String())
	require.NoError(t, err)

	gotAlice := f.reload(t, alice.ID)
	gotBob := f.reload(t, bob.ID)
	assert.False(t, gotAlice.IsFollowing(bob.ID))
	assert.False(t, gotBob.Followers.Contains(alice.ID.String()))
	assert.Equal(t, 0, gotAlice.FollowingCount)
	assert.Equal(t, 0, gotBob.FollowersCount)
}

func TestUnfollow_NotFollowing(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	err := f.service.Unfollow(context.Background(), alice.ID.String(), bob.ID.String())
	assert.True(t, apperrors.IsConflict(err))
}

// failingFollowerWrites makes the second half of a follow fail so the
// compensating undo path runs.
type failingFollowerWrites struct {
	ports.UserRepository
}

func (r *failingFollowerWrites) AddRelation(ctx context.Context, id valueobjects.UserID, field ports.RelationField, member valueobjects.UserID) (bool, error) {
	if field == ports.RelationFollowers {
		return false, errors.New("store unavailable")
	}
	return r.UserRepository.AddRelation(ctx, id, field, member)
}

func TestFollow_SecondWriteFails_Compensates(t *testing.T) {
	store := memory.NewEntityStore()
	users := repository.NewUserRepository(store)
	failing := &failingFollowerWrites{UserRepository: users}
	service := NewSocialGraphService(failing, memory.NewPairLocker(), nil, zap.NewNop())

	alice, err := entities.NewUser("alice@example.com", "alice")
	require.NoError(t, err)
	bob, err := entities.NewUser("bob@example.com", "bob")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), alice))
	require.NoError(t, users.Create(context.Background(), bob))

	err = service.Follow(context.Background(), alice.ID.String(), bob.ID.String())
	require.Error(t, err)

	gotAlice, err := users.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.False(t, gotAlice.IsFollowing(bob.ID))
	assert.Equal(t, 0, gotAlice.FollowingCount)
	assert.NoError(t, gotAlice.CheckCountInvariants())
}

func TestSendFriendRequest_Success(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	err := f.service.SendFriendRequest(context.Background(), alice.ID.String(), bob.ID.String())
	require.NoError(t, err)

	gotBob := f.reload(t, bob.ID)
	assert.True(t, gotBob.HasPendingRequestFrom(alice.ID))
}

func TestSendFriendRequest_Duplicate(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	require.NoError(t, f.service.SendFriendRequest(context.Background(), alice.ID.String(), bob.ID.String()))

	err := f.service.SendFriendRequest(context.Background(), alice.ID.String(), bob.ID.String())
	assert.True(t, apperrors.IsConflict(err))
}

func TestSendFriendRequest_Self(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")

	err := f.service.SendFriendRequest(context.Background(), alice.ID.String(), alice.ID.String())
	assert.True(t, apperrors.IsInvalidOperation(err))
}

func TestSendFriendRequest_AlreadyFriends(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	require.NoError(t, f.service.SendFriendRequest(context.Background(), alice.ID.String(), bob.ID.String()))
	require.NoError(t, f.service.AcceptFriendRequest(context.Background(), bob.ID.String(), alice.ID.String()))

	err := f.service.SendFriendRequest(context.Background(), alice.ID.String(), bob.ID.String())
	assert.True(t, apperrors.IsConflict(err))
}

func TestAcceptFriendRequest_Success(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	require.NoError(t, f.service.SendFriendRequest(context.Background(), alice.ID.String(), bob.ID.String()))

	err := f.service.AcceptFriendRequest(context.Background(), bob.ID.String(), alice.ID.String())
	require.NoError(t, err)

	gotAlice := f.reload(t, alice.ID)
	gotBob := f.reload(t, bob.ID)
	assert.True(t, gotAlice.IsFriendsWith(bob.ID))
	assert.True(t, gotBob.IsFriendsWith(alice.ID))
	assert.False(t, gotBob.HasPendingRequestFrom(alice.ID))
}

func TestAcceptFriendRequest_NoPending(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	err := f.service.AcceptFriendRequest(context.Background(), bob.ID.String(), alice.ID.String())
	assert.True(t, apperrors.IsConflict(err))
}

func TestAcceptFriendRequest_MutualPending(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	require.NoError(t, f.service.SendFriendRequest(context.Background(), alice.ID.String(), bob.ID.String()))
	require.NoError(t, f.service.SendFriendRequest(context.Background(), bob.ID.String(), alice.ID.String()))

	// Accepting either request establishes the friendship once and clears
	// the pending entries on both sides.
	require.NoError(t, f.service.AcceptFriendRequest(context.Background(), bob.ID.String(), alice.ID.String()))

	gotAlice := f.reload(t, alice.ID)
	gotBob := f.reload(t, bob.ID)
	assert.True(t, gotAlice.IsFriendsWith(bob.ID))
	assert.True(t, gotBob.IsFriendsWith(alice.ID))
	assert.False(t, gotAlice.HasPendingRequestFrom(bob.ID))
	assert.False(t, gotBob.HasPendingRequestFrom(alice.ID))
	assert.Equal(t, 1, gotAlice.Friends.Len())
	assert.Equal(t, 1, gotBob.Friends.Len())

	err := f.service.AcceptFriendRequest(context.Background(), alice.ID.String(), bob.ID.String())
	assert.True(t, apperrors.IsConflict(err))
}

func TestRejectFriendRequest(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	require.NoError(t, f.service.SendFriendRequest(context.Background(), alice.ID.String(), bob.ID.String()))

	require.NoError(t, f.service.RejectFriendRequest(context.Background(), bob.ID.String(), alice.ID.String()))

	gotAlice := f.reload(t, alice.ID)
	gotBob := f.reload(t, bob.ID)
	assert.False(t, gotBob.HasPendingRequestFrom(alice.ID))
	assert.False(t, gotAlice.IsFriendsWith(bob.ID))
	assert.False(t, gotBob.IsFriendsWith(alice.ID))

	err := f.service.RejectFriendRequest(context.Background(), bob.ID.String(), alice.ID.String())
	assert.True(t, apperrors.IsConflict(err))
}

func TestGetFollowers_ReturnsProfiles(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	carol := f.createUser(t, "carol")
	require.NoError(t, f.service.Follow(context.Background(), bob.ID.String(), alice.ID.String()))
	require.NoError(t, f.service.Follow(context.Background(), carol.ID.String(), alice.ID.String()))

	profiles, err := f.service.GetFollowers(context.Background(), alice.ID.String())
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	usernames := []string{profiles[0].Username, profiles[1].Username}
	assert.ElementsMatch(t, []string{"bob", "carol"}, usernames)
}

func TestGetFollowing_UserMissing(t *testing.T) {
	f := newSocialFixture(t)

	_, err := f.service.GetFollowing(context.Background(), valueobjects.NewUserID().String())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateProfile(t *testing.T) {
	f := newSocialFixture(t)
	alice := f.createUser(t, "alice")

	bio := "hello there"
	profile, err := f.service.UpdateProfile(context.Background(), alice.ID.String(), ports.ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello there", profile.Bio)
	assert.Equal(t, "alice", profile.Username)
}
