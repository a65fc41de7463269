package ports

import (
	"context"

	"clipstream-backend/domain/core/entities"
	"clipstream-backend/domain/core/valueobjects"
)

// RelationField names a user string-set field mutated through set operations
type RelationField string

const (
	RelationFollowers       RelationField = "followers"
	RelationFollowing       RelationField = "following"
	RelationFriends         RelationField = "friends"
	RelationPendingRequests RelationField = "pendingFriendRequests"
)

// UserCountField names a denormalized counter on the user document
type UserCountField string

const (
	CountFollowers UserCountField = "followersCount"
	CountFollowing UserCountField = "followingCount"
)

// ProfilePatch carries the mutable profile fields. Nil pointers are untouched.
type ProfilePatch struct {
	Username *string
	Avatar   *string
	Bio      *string
}

// UserRepository persists user nodes. Relation and counter mutations are
// single-document atomic; callers sequence cross-document pairs themselves.
type UserRepository interface {
	GetByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error)
	GetByIDs(ctx context.Context, ids []valueobjects.UserID) ([]*entities.User, error)
	Create(ctx context.Context, user *entities.User) error
	UpdateProfile(ctx context.Context, id valueobjects.UserID, patch ProfilePatch) (*entities.User, error)

	// AddRelation inserts member into the named set if absent.
	// Returns false, without mutating, when the member was already present.
	AddRelation(ctx context.Context, id valueobjects.UserID, field RelationField, member valueobjects.UserID) (bool, error)

	// RemoveRelation removes member from the named set.
	// Returns false, without mutating, when the member was absent.
	RemoveRelation(ctx context.Context, id valueobjects.UserID, field RelationField, member valueobjects.UserID) (bool, error)

	// AdjustCount changes a counter by delta, never dropping it below zero
	AdjustCount(ctx context.Context, id valueobjects.UserID, field UserCountField, delta int) error
}

// EngagementField names a video membership set
type EngagementField string

const (
	EngagementLikedBy  EngagementField = "likedBy"
	EngagementSavedBy  EngagementField = "savedBy"
	EngagementSharedBy EngagementField = "sharedBy"
)

// VideoCountField names a denormalized counter on the video document
type VideoCountField string

const (
	CountLikes    VideoCountField = "likes"
	CountSaved    VideoCountField = "saved"
	CountShared   VideoCountField = "shared"
	CountComments VideoCountField = "commentCount"
)

// VideoPage is one page of a video listing with its total match count
type VideoPage struct {
	Videos []*entities.Video
	Total  int
}

// VideoRepository persists videos and their embedded comment lists
type VideoRepository interface {
	GetByID(ctx context.Context, id valueobjects.VideoID) (*entities.Video, error)
	Create(ctx context.Context, video *entities.Video) error
	ListPublic(ctx context.Context, page Page) (*VideoPage, error)
	ListByOwner(ctx context.Context, ownerID valueobjects.UserID, page Page) (*VideoPage, error)

	// AddEngagement inserts the user into a membership set if absent; the
	// paired counter is bumped in the same write so set and count never
	// drift. Returns false, without mutating, when the user was already a
	// member.
	AddEngagement(ctx context.Context, id valueobjects.VideoID, field EngagementField, userID valueobjects.UserID) (bool, error)

	// RemoveEngagement removes the user from a membership set; the paired
	// counter drops in the same write. Returns false, without mutating,
	// when the user was absent.
	RemoveEngagement(ctx context.Context, id valueobjects.VideoID, field EngagementField, userID valueobjects.UserID) (bool, error)

	// RecordShare bumps the share total and records the sharer in one
	// write. Every share counts; sharedBy keeps distinct sharers.
	RecordShare(ctx context.Context, id valueobjects.VideoID, userID valueobjects.UserID) error

	// AppendComment atomically appends to the comment list and bumps commentCount
	AppendComment(ctx context.Context, id valueobjects.VideoID, comment entities.Comment) error

	// ReplaceComments overwrites the comment list and sets commentCount to its length
	ReplaceComments(ctx context.Context, id valueobjects.VideoID, comments []entities.Comment) error

	// IncrementViews bumps the lifetime view counter by one
	IncrementViews(ctx context.Context, id valueobjects.VideoID) error
}

// MessageRepository persists chat messages. Messages are append-only.
type MessageRepository interface {
	// Create persists the message and assigns its conversation sequence number
	Create(ctx context.Context, msg *entities.ChatMessage) error

	// GetConversation returns every message between the two users, in either
	// direction, ordered by creation time ascending with Seq breaking ties
	GetConversation(ctx context.Context, a, b valueobjects.UserID, page Page) ([]*entities.ChatMessage, error)
}
