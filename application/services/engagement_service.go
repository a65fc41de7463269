package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"clipstream-backend/application/ports"
	"clipstream-backend/domain/core/entities"
	"clipstream-backend/domain/core/valueobjects"
	"clipstream-backend/domain/events"
	apperrors "clipstream-backend/pkg/errors"
	"clipstream-backend/pkg/observability"
)

// viewThreshold is the fraction of a video that must be watched for a play
// to count as a view.
const viewThreshold = 0.8

// EngagementService owns every mutation of a video's engagement state: the
// like/save/share membership sets, the embedded comment list, and the
// denormalized counters. All writes are single-document atomic; the membership
// set is the source of truth and each counter moves with its set.
type EngagementService struct {
	videos   ports.VideoRepository
	users    ports.UserRepository
	eventBus ports.EventBus
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewEngagementService creates the engagement service
func NewEngagementService(
	videos ports.VideoRepository,
	users ports.UserRepository,
	eventBus ports.EventBus,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *EngagementService {
	return &EngagementService{
		videos:   videos,
		users:    users,
		eventBus: eventBus,
		metrics:  metrics,
		logger:   logger,
	}
}

func parseVideoID(raw string) (valueobjects.VideoID, error) {
	id, err := valueobjects.NewVideoIDFromString(raw)
	if err != nil {
		return valueobjects.VideoID{}, apperrors.NewNotFoundError("video")
	}
	return id, nil
}

// Like records that the user liked the video. A duplicate like, whether seen
// at read time or lost to a concurrent racer, surfaces as a conflict.
func (s *EngagementService) Like(ctx context.Context, videoID, userID string) error {
	return s.addMembership(ctx, videoID, userID, ports.EngagementLikedBy,
		"you have already liked this video",
		func(v *entities.Video, u valueobjects.UserID) bool { return v.IsLikedBy(u) },
		func(vid valueobjects.VideoID, uid valueobjects.UserID) events.DomainEvent {
			return events.NewVideoLiked(vid, uid)
		},
		"video_liked",
	)
}

// Unlike removes the user's like. Removing an absent like succeeds without
// mutating anything.
func (s *EngagementService) Unlike(ctx context.Context, videoID, userID string) error {
	return s.removeMembership(ctx, videoID, userID, ports.EngagementLikedBy)
}

// Save records that the user saved the video
func (s *EngagementService) Save(ctx context.Context, videoID, userID string) error {
	return s.addMembership(ctx, videoID, userID, ports.EngagementSavedBy,
		"you have already saved this video",
		func(v *entities.Video, u valueobjects.UserID) bool { return v.IsSavedBy(u) },
		func(vid valueobjects.VideoID, uid valueobjects.UserID) events.DomainEvent {
			return events.NewVideoSaved(vid, uid)
		},
		"video_saved",
	)
}

// Unsave removes the user's save. Removing an absent save is a no-op success.
func (s *EngagementService) Unsave(ctx context.Context, videoID, userID string) error {
	return s.removeMembership(ctx, videoID, userID, ports.EngagementSavedBy)
}

func (s *EngagementService) addMembership(
	ctx context.Context,
	videoID, userID string,
	field ports.EngagementField,
	conflictMsg string,
	already func(*entities.Video, valueobjects.UserID) bool,
	newEvent func(valueobjects.VideoID, valueobjects.UserID) events.DomainEvent,
	metricName string,
) error {
	vid, err := parseVideoID(videoID)
	if err != nil {
		return err
	}
	uid, err := parseUserID(userID, "user")
	if err != nil {
		return err
	}

	video, err := s.videos.GetByID(ctx, vid)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, uid); err != nil {
		return err
	}
	if already(video, uid) {
		return apperrors.NewConflictError(conflictMsg)
	}

	applied, err := s.videos.AddEngagement(ctx, vid, field, uid)
	if err != nil {
		return apperrors.Wrapf(err, "failed to add %s membership", field)
	}
	if !applied {
		return apperrors.NewConflictError(conflictMsg)
	}

	s.publish(ctx, newEvent(vid, uid))
	s.count(metricName)
	return nil
}

func (s *EngagementService) removeMembership(
	ctx context.Context,
	videoID, userID string,
	field ports.EngagementField,
) error {
	vid, err := parseVideoID(videoID)
	if err != nil {
		return err
	}
	uid, err := parseUserID(userID, "user")
	if err != nil {
		return err
	}
	if _, err := s.videos.GetByID(ctx, vid); err != nil {
		return err
	}

	_, err = s.videos.RemoveEngagement(ctx, vid, field, uid)
	if err != nil {
		return apperrors.Wrapf(err, "failed to remove %s membership", field)
	}
	return nil
}

// Share records a share. Shares are append-only: every call increments the
// counter, so the shared count tracks share events while sharedBy records the
// distinct sharers.
func (s *EngagementService) Share(ctx context.Context, videoID, userID string) error {
	vid, err := parseVideoID(videoID)
	if err != nil {
		return err
	}
	uid, err := parseUserID(userID, "user")
	if err != nil {
		return err
	}
	if _, err := s.videos.GetByID(ctx, vid); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, uid); err != nil {
		return err
	}

	if err := s.videos.RecordShare(ctx, vid, uid); err != nil {
		return apperrors.Wrap(err, "failed to record share")
	}

	s.publish(ctx, events.NewVideoShared(vid, uid))
	s.count("video_shared")
	return nil
}

// AddComment appends a comment carrying the author's display fields as they
// are at write time. Returns the stored comment.
func (s *EngagementService) AddComment(ctx context.Context, videoID, userID, content string) (*entities.Comment, error) {
	vid, err := parseVideoID(videoID)
	if err != nil {
		return nil, err
	}
	uid, err := parseUserID(userID, "user")
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required")
	}

	if _, err := s.videos.GetByID(ctx, vid); err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	comment := entities.Comment{
		ID:        valueobjects.NewCommentID(),
		UserID:    uid,
		Content:   content,
		Username:  author.Username,
		Avatar:    author.Avatar,
		CreatedAt: time.Now(),
	}
	if err := s.videos.AppendComment(ctx, vid, comment); err != nil {
		return nil, apperrors.Wrap(err, "failed to append comment")
	}

	s.publish(ctx, events.NewCommentAdded(vid, comment.ID, uid))
	s.count("comment_added")
	return &comment, nil
}

// UpdateComment rewrites a comment's content. Only the author may edit.
func (s *EngagementService) UpdateComment(ctx context.Context, videoID, commentID, userID, content string) (*entities.Comment, error) {
	vid, err := parseVideoID(videoID)
	if err != nil {
		return nil, err
	}
	uid, err := parseUserID(userID, "user")
	if err != nil {
		return nil, err
	}
	cid, err := valueobjects.NewCommentIDFromString(commentID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("comment")
	}
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required")
	}

	video, err := s.videos.GetByID(ctx, vid)
	if err != nil {
		return nil, err
	}
	comment := video.FindComment(cid)
	if comment == nil {
		return nil, apperrors.NewNotFoundError("comment")
	}
	if !comment.UserID.Equals(uid) {
		return nil, apperrors.NewForbiddenError("you can only edit your own comments")
	}

	comment.Content = content
	if err := s.videos.ReplaceComments(ctx, vid, video.Comments); err != nil {
		return nil, apperrors.Wrap(err, "failed to update comment")
	}
	return comment, nil
}

// DeleteComment removes a comment. Only the author may delete.
func (s *EngagementService) DeleteComment(ctx context.Context, videoID, commentID, userID string) error {
	vid, err := parseVideoID(videoID)
	if err != nil {
		return err
	}
	uid, err := parseUserID(userID, "user")
	if err != nil {
		return err
	}
	cid, err := valueobjects.NewCommentIDFromString(commentID)
	if err != nil {
		return apperrors.NewNotFoundError("comment")
	}

	video, err := s.videos.GetByID(ctx, vid)
	if err != nil {
		return err
	}
	comment := video.FindComment(cid)
	if comment == nil {
		return apperrors.NewNotFoundError("comment")
	}
	if !comment.UserID.Equals(uid) {
		return apperrors.NewForbiddenError("you can only delete your own comments")
	}

	remaining := make([]entities.Comment, 0, len(video.Comments)-1)
	for _, c := range video.Comments {
		if !c.ID.Equals(cid) {
			remaining = append(remaining, c)
		}
	}
	if err := s.videos.ReplaceComments(ctx, vid, remaining); err != nil {
		return apperrors.Wrap(err, "failed to delete comment")
	}
	return nil
}

// ViewResult reports whether a watch report crossed the counting threshold
type ViewResult struct {
	Counted bool  `json:"counted"`
	Views   int64 `json:"views,omitempty"`
}

// RecordView counts a view only when the watched fraction reaches the
// threshold. A below-threshold report is a successful no-op, not an error.
func (s *EngagementService) RecordView(ctx context.Context, videoID string, watchDuration, totalDuration float64) (*ViewResult, error) {
	vid, err := parseVideoID(videoID)
	if err != nil {
		return nil, err
	}
	if totalDuration <= 0 {
		return nil, apperrors.NewValidationError("total duration must be positive")
	}
	if watchDuration < 0 {
		return nil, apperrors.NewValidationError("watch duration cannot be negative")
	}

	video, err := s.videos.GetByID(ctx, vid)
	if err != nil {
		return nil, err
	}

	if watchDuration/totalDuration < viewThreshold {
		return &ViewResult{Counted: false, Views: video.Views}, nil
	}

	if err := s.videos.IncrementViews(ctx, vid); err != nil {
		return nil, apperrors.Wrap(err, "failed to increment views")
	}

	s.publish(ctx, events.NewViewCounted(vid))
	s.count("view_counted")
	return &ViewResult{Counted: true, Views: video.Views + 1}, nil
}

// GetVideo returns one video by id
func (s *EngagementService) GetVideo(ctx context.Context, videoID string) (*entities.Video, error) {
	vid, err := parseVideoID(videoID)
	if err != nil {
		return nil, err
	}
	return s.videos.GetByID(ctx, vid)
}

// ListPublicVideos returns one page of the public feed
func (s *EngagementService) ListPublicVideos(ctx context.Context, page ports.Page) (*ports.VideoPage, error) {
	return s.videos.ListPublic(ctx, page)
}

// ListUserVideos returns one page of a user's uploads
func (s *EngagementService) ListUserVideos(ctx context.Context, userID string, page ports.Page) (*ports.VideoPage, error) {
	uid, err := parseUserID(userID, "user")
	if err != nil {
		return nil, err
	}
	return s.videos.ListByOwner(ctx, uid, page)
}

func (s *EngagementService) publish(ctx context.Context, event events.DomainEvent) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
	}
}

func (s *EngagementService) count(name string) {
	if s.metrics != nil {
		s.metrics.IncrementCounter(name, nil)
	}
}
