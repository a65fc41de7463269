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

type engagementFixture struct {
	service *EngagementService
	videos  ports.VideoRepository
	users   ports.UserRepository
}

func newEngagementFixture(t *testing.T) *engagementFixture {
	t.Helper()
	store := memory.NewEntityStore()
	videos := repository.NewVideoRepository(store)
	users := repository.NewUserRepository(store)
	service := NewEngagementService(videos, users, nil, nil, zap.NewNop())
	return &engagementFixture{service: service, videos: videos, users: users}
}

func (f *engagementFixture) createUser(t *testing.T, username string) *entities.User {
	t.Helper()
	user, err := entities.NewUser(username+"@example.com", username)
	require.NoError(t, err)
	user.Avatar = "https://cdn.example.com/" + username + ".png"
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *engagementFixture) createVideo(t *testing.T, owner *entities.User) *entities.Video {
	t.Helper()
	video, err := entities.NewVideo(owner.ID, "my clip", "https://cdn.example.com/clip.mp4")
	require.NoError(t, err)
	require.NoError(t, f.videos.Create(context.Background(), video))
	return video
}

func (f *engagementFixture) reloadVideo(t *testing.T, id valueobjects.VideoID) *entities.Video {
	t.Helper()
	video, err := f.videos.GetByID(context.Background(), id)
	require.NoError(t, err)
	return video
}

func TestLike_Success(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	viewer := f.createUser(t, "viewer")
	video := f.createVideo(t, owner)

	require.NoError(t, f.service.Like(context.Background(), video.ID.String(), viewer.ID.String()))

	got := f.reloadVideo(t, video.ID)
	assert.True(t, got.IsLikedBy(viewer.ID))
	assert.Equal(t, 1, got.Likes)
	assert.NoError(t, got.CheckCountInvariants())
}

func TestLike_Duplicate(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	viewer := f.createUser(t, "viewer")
	video := f.createVideo(t, owner)
	require.NoError(t, f.service.Like(context.Background(), video.ID.String(), viewer.ID.String()))

	err := f.service.Like(context.Background(), video.ID.String(), viewer.ID.String())
	assert.True(t, apperrors.IsConflict(err))

	got := f.reloadVideo(t, video.ID)
	assert.Equal(t, 1, got.Likes)
}

func TestLike_VideoMissing(t *testing.T) {
	f := newEngagementFixture(t)
	viewer := f.createUser(t, "viewer")

	err := f.service.Like(context.Background(), valueobjects.NewVideoID().String(), viewer.ID.String())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLike_ConcurrentDuplicates(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	viewer := f.createUser(t, "viewer")
	video := f.createVideo(t, owner)

	const attempts = 16
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- f.service.Like(context.Background(), video.ID.String(), viewer.ID.String())
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.True(t, apperrors.IsConflict(err))
		}
	}
	assert.Equal(t, 1, successes)

	got := f.reloadVideo(t, video.ID)
	assert.Equal(t, 1, got.Likes)
	assert.Equal(t, 1, got.LikedBy.Len())
}

func TestUnlike_RemovesLike(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	viewer := f.createUser(t, "viewer")
	video := f.createVideo(t, owner)
	require.NoError(t, f.service.Like(context.Background(), video.ID.String(), viewer.ID.String()))

	require.NoError(t, f.service.Unlike(context.Background(), video.ID.String(), viewer.ID.String()))

	got := f.reloadVideo(t, video.ID)
	assert.False(t, got.IsLikedBy(viewer.ID))
	assert.Equal(t, 0, got.Likes)
}

func TestUnlike_AbsentIsNoOp(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	viewer := f.createUser(t, "viewer")
	video := f.createVideo(t, owner)

	require.NoError(t, f.service.Unlike(context.Background(), video.ID.String(), viewer.ID.String()))

	got := f.reloadVideo(t, video.ID)
	assert.Equal(t, 0, got.Likes)
}

func TestSaveAndUnsave(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	viewer := f.createUser(t, "viewer")
	video := f.createVideo(t, owner)

	require.NoError(t, f.service.Save(context.Background(), video.ID.String(), viewer.ID.String()))
	err := f.service.Save(context.Background(), video.ID.String(), viewer.ID.String())
	assert.True(t, apperrors.IsConflict(err))

	got := f.reloadVideo(t, video.ID)
	assert.Equal(t, 1, got.Saved)
	assert.True(t, got.IsSavedBy(viewer.ID))

	require.NoError(t, f.service.Unsave(context.Background(), video.ID.String(), viewer.ID.String()))
	require.NoError(t, f.service.Unsave(context.Background(), video.ID.String(), viewer.ID.String()))

	got = f.reloadVideo(t, video.ID)
	assert.Equal(t, 0, got.Saved)
}

func TestShare_AlwaysIncrements(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	viewer := f.createUser(t, "viewer")
	video := f.createVideo(t, owner)

	require.NoError(t, f.service.Share(context.Background(), video.ID.String(), viewer.ID.String()))
	require.NoError(t, f.service.Share(context.Background(), video.ID.String(), viewer.ID.String()))

	got := f.reloadVideo(t, video.ID)
	assert.Equal(t, 2, got.Shared)
	assert.Equal(t, 1, got.SharedBy.Len())
}

// countersMovedSeparately fails any standalone counter write. Membership and
// counter land in one store call, so engagement writes never hit this path.
type countersMovedSeparately struct {
	ports.EntityStore
}

func (s *countersMovedSeparately) AtomicIncrement(context.Context, string, string, string, int, *int) (int64, error) {
	return 0, errors.New("store unavailable")
}

func TestEngagementWrites_CountersMoveWithSets(t *testing.T) {
	store := &countersMovedSeparately{EntityStore: memory.NewEntityStore()}
	videos := repository.NewVideoRepository(store)
	users := repository.NewUserRepository(store)
	service := NewEngagementService(videos, users, nil, nil, zap.NewNop())

	owner, err := entities.NewUser("owner@example.com", "owner")
	require.NoError(t, err)
	viewer, err := entities.NewUser("viewer@example.com", "viewer")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), owner))
	require.NoError(t, users.Create(context.Background(), viewer))

	video, err := entities.NewVideo(owner.ID, "my clip", "https://cdn.example.com/clip.mp4")
	require.NoError(t, err)
	require.NoError(t, videos.Create(context.Background(), video))

	require.NoError(t, service.Like(context.Background(), video.ID.String(), viewer.ID.String()))
	require.NoError(t, service.Share(context.Background(), video.ID.String(), viewer.ID.String()))
	_, err = service.AddComment(context.Background(), video.ID.String(), viewer.ID.String(), "nice clip")
	require.NoError(t, err)
	require.NoError(t, service.Unlike(context.Background(), video.ID.String(), viewer.ID.String()))

	got, err := videos.GetByID(context.Background(), video.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Likes)
	assert.Equal(t, 1, got.Shared)
	assert.Equal(t, 1, got.CommentCount)
	assert.NoError(t, got.CheckCountInvariants())
}

func TestAddComment_DenormalizesAuthor(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	viewer := f.createUser(t, "viewer")
	video := f.createVideo(t, owner)

	comment, err := f.service.AddComment(context.Background(), video.ID.String(), viewer.ID.String(), "nice clip")
	require.NoError(t, err)
	assert.Equal(t, "viewer", comment.Username)
	assert.Equal(t, viewer.Avatar, comment.Avatar)

	got := f.reloadVideo(t, video.ID)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, 1, got.CommentCount)
	assert.Equal(t, "nice clip", got.Comments[0].Content)
	assert.NoError(t, got.CheckCountInvariants())
}

func TestAddComment_EmptyContent(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	video := f.createVideo(t, owner)

	_, err := f.service.AddComment(context.Background(), video.ID.String(), owner.ID.String(), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateComment_OnlyAuthor(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	viewer := f.createUser(t, "viewer")
	video := f.createVideo(t, owner)
	comment, err := f.service.AddComment(context.Background(), video.ID.String(), viewer.ID.String(), "first")
	require.NoError(t, err)

	_, err = f.service.UpdateComment(context.Background(), video.ID.String(), comment.ID.String(), owner.ID.String(), "hijacked")
	assert.True(t, apperrors.IsForbidden(err))

	updated, err := f.service.UpdateComment(context.Background(), video.ID.String(), comment.ID.String(), viewer.ID.String(), "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	got := f.reloadVideo(t, video.ID)
	assert.Equal(t, "edited", got.Comments[0].Content)
}

func TestDeleteComment(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	viewer := f.createUser(t, "viewer")
	video := f.createVideo(t, owner)
	comment, err := f.service.AddComment(context.Background(), video.ID.String(), viewer.ID.String(), "to delete")
	require.NoError(t, err)

	err = f.service.DeleteComment(context.Background(), video.ID.String(), comment.ID.String(), owner.ID.String())
	assert.True(t, apperrors.IsForbidden(err))

	require.NoError(t, f.service.DeleteComment(context.Background(), video.ID.String(), comment.ID.String(), viewer.ID.String()))

	got := f.reloadVideo(t, video.ID)
	assert.Empty(t, got.Comments)
	assert.Equal(t, 0, got.CommentCount)

	err = f.service.DeleteComment(context.Background(), video.ID.String(), comment.ID.String(), viewer.ID.String())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRecordView_BelowThreshold(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	video := f.createVideo(t, owner)

	result, err := f.service.RecordView(context.Background(), video.ID.String(), 7.9, 10)
	require.NoError(t, err)
	assert.False(t, result.Counted)

	got := f.reloadVideo(t, video.ID)
	assert.Equal(t, int64(0), got.Views)
}

func TestRecordView_AtThreshold(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	video := f.createVideo(t, owner)

	result, err := f.service.RecordView(context.Background(), video.ID.String(), 8, 10)
	require.NoError(t, err)
	assert.True(t, result.Counted)
	assert.Equal(t, int64(1), result.Views)

	got := f.reloadVideo(t, video.ID)
	assert.Equal(t, int64(1), got.Views)
}

func TestRecordView_InvalidDurations(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	video := f.createVideo(t, owner)

	_, err := f.service.RecordView(context.Background(), video.ID.String(), 5, 0)
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.service.RecordView(context.Background(), video.ID.String(), -1, 10)
	assert.True(t, apperrors.IsValidation(err))
}

func TestListPublicVideos_NewestFirst(t *testing.T) {
	f := newEngagementFixture(t)
	owner := f.createUser(t, "owner")
	first := f.createVideo(t, owner)
	second := f.createVideo(t, owner)

	hidden, err := entities.NewVideo(owner.ID, "private", "https://cdn.example.com/p.mp4")
	require.NoError(t, err)
	hidden.IsPublic = false
	require.NoError(t, f.videos.Create(context.Background(), hidden))

	page, err := f.service.ListPublicVideos(context.Background(), ports.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Videos, 2)
	assert.Equal(t, 2, page.Total)

	ids := []string{page.Videos[0].ID.String(), page.Videos[1].ID.String()}
	assert.ElementsMatch(t, []string{first.ID.String(), second.ID.String()}, ids)
}
