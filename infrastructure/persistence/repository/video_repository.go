package repository

import (
	"context"
	"fmt"
	"time"

	"clipstream-backend/application/ports"
	"clipstream-backend/domain/core/entities"
	"clipstream-backend/domain/core/valueobjects"
	apperrors "clipstream-backend/pkg/errors"
)

// VideoRepository maps video entities onto entity store documents.
// It implements ports.VideoRepository against any ports.EntityStore.
type VideoRepository struct {
	store ports.EntityStore
}

// NewVideoRepository creates a video repository backed by the given store
func NewVideoRepository(store ports.EntityStore) *VideoRepository {
	return &VideoRepository{store: store}
}

func encodeVideo(v *entities.Video) ports.Document {
	comments := make([]ports.Document, 0, len(v.Comments))
	for _, c := range v.Comments {
		comments = append(comments, encodeComment(c))
	}
	return ports.Document{
		"id":           v.ID.String(),
		"ownerId":      v.OwnerID.String(),
		"title":        v.Title,
		"desc":         v.Desc,
		"videoUrl":     v.VideoURL,
		"isPublic":     v.IsPublic,
		"likedBy":      v.LikedBy.Values(),
		"savedBy":      v.SavedBy.Values(),
		"sharedBy":     v.SharedBy.Values(),
		"comments":     comments,
		"likes":        v.Likes,
		"saved":        v.Saved,
		"shared":       v.Shared,
		"commentCount": v.CommentCount,
		"views":        v.Views,
		"createdAt":    encodeTime(v.CreatedAt),
		"updatedAt":    encodeTime(v.UpdatedAt),
	}
}

func decodeVideo(doc ports.Document) (*entities.Video, error) {
	id, err := valueobjects.NewVideoIDFromString(asString(doc["id"]))
	if err != nil {
		return nil, fmt.Errorf("invalid video id in document: %w", err)
	}
	ownerID, err := valueobjects.NewUserIDFromString(asString(doc["ownerId"]))
	if err != nil {
		return nil, fmt.Errorf("invalid owner id in document: %w", err)
	}

	rawComments := asDocumentSlice(doc["comments"])
	comments := make([]entities.Comment, 0, len(rawComments))
	for _, cd := range rawComments {
		c, err := decodeComment(cd)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	return &entities.Video{
		ID:           id,
		OwnerID:      ownerID,
		Title:        asString(doc["title"]),
		Desc:         asString(doc["desc"]),
		VideoURL:     asString(doc["videoUrl"]),
		IsPublic:     asBool(doc["isPublic"]),
		LikedBy:      valueobjects.NewIDSet(asStringSlice(doc["likedBy"])...),
		SavedBy:      valueobjects.NewIDSet(asStringSlice(doc["savedBy"])...),
		SharedBy:     valueobjects.NewIDSet(asStringSlice(doc["sharedBy"])...),
		Comments:     comments,
		Likes:        asInt(doc["likes"]),
		Saved:        asInt(doc["saved"]),
		Shared:       asInt(doc["shared"]),
		CommentCount: asInt(doc["commentCount"]),
		Views:        asInt64(doc["views"]),
		CreatedAt:    decodeTime(doc["createdAt"]),
		UpdatedAt:    decodeTime(doc["updatedAt"]),
	}, nil
}

// GetByID loads one video
func (r *VideoRepository) GetByID(ctx context.Context, id valueobjects.VideoID) (*entities.Video, error) {
	doc, err := r.store.Get(ctx, ports.CollectionVideos, id.String())
	if err != nil {
		return nil, err
	}
	video, err := decodeVideo(doc)
	if err != nil {
		return nil, apperrors.NewInternalError("corrupt video document").WithCause(err)
	}
	return video, nil
}

// Create persists a new video
func (r *VideoRepository) Create(ctx context.Context, video *entities.Video) error {
	_, err := r.store.Create(ctx, ports.CollectionVideos, encodeVideo(video))
	return err
}

// ListPublic returns one newest-first page of public videos with the total count
func (r *VideoRepository) ListPublic(ctx context.Context, page ports.Page) (*ports.VideoPage, error) {
	filter := ports.Filter{"isPublic": true}
	return r.list(ctx, filter, page)
}

// ListByOwner returns one newest-first page of a user's videos
func (r *VideoRepository) ListByOwner(ctx context.Context, ownerID valueobjects.UserID, page ports.Page) (*ports.VideoPage, error) {
	filter := ports.Filter{"ownerId": ownerID.String()}
	return r.list(ctx, filter, page)
}

func (r *VideoRepository) list(ctx context.Context, filter ports.Filter, page ports.Page) (*ports.VideoPage, error) {
	sort := ports.Sort{Field: "createdAt", Ascending: false}
	docs, err := r.store.Query(ctx, ports.CollectionVideos, filter, sort, page)
	if err != nil {
		return nil, err
	}
	total, err := r.store.Count(ctx, ports.CollectionVideos, filter)
	if err != nil {
		return nil, err
	}

	videos := make([]*entities.Video, 0, len(docs))
	for _, doc := range docs {
		video, err := decodeVideo(doc)
		if err != nil {
			return nil, apperrors.NewInternalError("corrupt video document").WithCause(err)
		}
		videos = append(videos, video)
	}
	return &ports.VideoPage{Videos: videos, Total: total}, nil
}

// engagementCounter pairs each membership set with its denormalized count
func engagementCounter(field ports.EngagementField) ports.VideoCountField {
	switch field {
	case ports.EngagementLikedBy:
		return ports.CountLikes
	case ports.EngagementSavedBy:
		return ports.CountSaved
	default:
		return ports.CountShared
	}
}

// AddEngagement inserts the user into a membership set if absent; the paired
// counter moves in the same store write
func (r *VideoRepository) AddEngagement(ctx context.Context, id valueobjects.VideoID, field ports.EngagementField, userID valueobjects.UserID) (bool, error) {
	return r.store.AtomicAddToSet(ctx, ports.CollectionVideos, id.String(), string(field), userID.String(), string(engagementCounter(field)))
}

// RemoveEngagement removes the user from a membership set; the paired counter
// moves in the same store write
func (r *VideoRepository) RemoveEngagement(ctx context.Context, id valueobjects.VideoID, field ports.EngagementField, userID valueobjects.UserID) (bool, error) {
	return r.store.AtomicRemoveFromSet(ctx, ports.CollectionVideos, id.String(), string(field), userID.String(), string(engagementCounter(field)))
}

// RecordShare bumps the share total and records the sharer in one write.
// Re-shares by the same user still count.
func (r *VideoRepository) RecordShare(ctx context.Context, id valueobjects.VideoID, userID valueobjects.UserID) error {
	_, err := r.store.AtomicIncrementAndAddToSet(ctx, ports.CollectionVideos, id.String(), string(ports.CountShared), string(ports.EngagementSharedBy), userID.String())
	return err
}

// AppendComment appends to the comment list and bumps commentCount together
func (r *VideoRepository) AppendComment(ctx context.Context, id valueobjects.VideoID, comment entities.Comment) error {
	return r.store.AtomicAppendToList(ctx, ports.CollectionVideos, id.String(), "comments", encodeComment(comment), string(ports.CountComments))
}

// ReplaceComments overwrites the comment list and derives commentCount from it
func (r *VideoRepository) ReplaceComments(ctx context.Context, id valueobjects.VideoID, comments []entities.Comment) error {
	encoded := make([]ports.Document, 0, len(comments))
	for _, c := range comments {
		encoded = append(encoded, encodeComment(c))
	}
	_, err := r.store.UpdateFields(ctx, ports.CollectionVideos, id.String(), ports.Document{
		"comments":     encoded,
		"commentCount": len(comments),
		"updatedAt":    encodeTime(time.Now()),
	})
	return err
}

// IncrementViews bumps the lifetime view counter
func (r *VideoRepository) IncrementViews(ctx context.Context, id valueobjects.VideoID) error {
	_, err := r.store.AtomicIncrement(ctx, ports.CollectionVideos, id.String(), "views", 1, nil)
	return err
}
