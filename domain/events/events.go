package events

import (
	"time"

	"clipstream-backend/domain/core/valueobjects"
)

// SourceBackend is the event source identifier used on the bus
const SourceBackend = "clipstream.backend"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(aggregateID, eventType string) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   time.Now(),
		Version:     1,
	}
}

// Social graph events

// UserFollowed is raised after both sides of a follow edge are written
type UserFollowed struct {
	BaseEvent
	FollowerID valueobjects.UserID `json:"follower_id"`
	TargetID   valueobjects.UserID `json:"target_id"`
}

// NewUserFollowed creates a UserFollowed event
func NewUserFollowed(follower, target valueobjects.UserID) UserFollowed {
	return UserFollowed{
		BaseEvent:  newBase(follower.String(), "social.user_followed"),
		FollowerID: follower,
		TargetID:   target,
	}
}

// UserUnfollowed is raised after a follow edge is removed from both sides
type UserUnfollowed struct {
	BaseEvent
	FollowerID valueobjects.UserID `json:"follower_id"`
	TargetID   valueobjects.UserID `json:"target_id"`
}

// NewUserUnfollowed creates a UserUnfollowed event
func NewUserUnfollowed(follower, target valueobjects.UserID) UserUnfollowed {
	return UserUnfollowed{
		BaseEvent:  newBase(follower.String(), "social.user_unfollowed"),
		FollowerID: follower,
		TargetID:   target,
	}
}

// FriendRequestSent is raised when a request lands in the receiver's pending set
type FriendRequestSent struct {
	BaseEvent
	SenderID   valueobjects.UserID `json:"sender_id"`
	ReceiverID valueobjects.UserID `json:"receiver_id"`
}

// NewFriendRequestSent creates a FriendRequestSent event
func NewFriendRequestSent(sender, receiver valueobjects.UserID) FriendRequestSent {
	return FriendRequestSent{
		BaseEvent:  newBase(receiver.String(), "social.friend_request_sent"),
		SenderID:   sender,
		ReceiverID: receiver,
	}
}

// FriendRequestAccepted is raised after both friends sets are updated
type FriendRequestAccepted struct {
	BaseEvent
	SenderID   valueobjects.UserID `json:"sender_id"`
	ReceiverID valueobjects.UserID `json:"receiver_id"`
}

// NewFriendRequestAccepted creates a FriendRequestAccepted event
func NewFriendRequestAccepted(sender, receiver valueobjects.UserID) FriendRequestAccepted {
	return FriendRequestAccepted{
		BaseEvent:  newBase(receiver.String(), "social.friend_request_accepted"),
		SenderID:   sender,
		ReceiverID: receiver,
	}
}

// FriendRequestRejected is raised when a pending request is dropped
type FriendRequestRejected struct {
	BaseEvent
	SenderID   valueobjects.UserID `json:"sender_id"`
	ReceiverID valueobjects.UserID `json:"receiver_id"`
}

// NewFriendRequestRejected creates a FriendRequestRejected event
func NewFriendRequestRejected(sender, receiver valueobjects.UserID) FriendRequestRejected {
	return FriendRequestRejected{
		BaseEvent:  newBase(receiver.String(), "social.friend_request_rejected"),
		SenderID:   sender,
		ReceiverID: receiver,
	}
}

// Engagement events

// VideoLiked is raised after a like lands
type VideoLiked struct {
	BaseEvent
	VideoID valueobjects.VideoID `json:"video_id"`
	UserID  valueobjects.UserID  `json:"user_id"`
}

// NewVideoLiked creates a VideoLiked event
func NewVideoLiked(videoID valueobjects.VideoID, userID valueobjects.UserID) VideoLiked {
	return VideoLiked{
		BaseEvent: newBase(videoID.String(), "engagement.video_liked"),
		VideoID:   videoID,
		UserID:    userID,
	}
}

// VideoSaved is raised after a save lands
type VideoSaved struct {
	BaseEvent
	VideoID valueobjects.VideoID `json:"video_id"`
	UserID  valueobjects.UserID  `json:"user_id"`
}

// NewVideoSaved creates a VideoSaved event
func NewVideoSaved(videoID valueobjects.VideoID, userID valueobjects.UserID) VideoSaved {
	return VideoSaved{
		BaseEvent: newBase(videoID.String(), "engagement.video_saved"),
		VideoID:   videoID,
		UserID:    userID,
	}
}

// VideoShared is raised on every share call
type VideoShared struct {
	BaseEvent
	VideoID valueobjects.VideoID `json:"video_id"`
	UserID  valueobjects.UserID  `json:"user_id"`
}

// NewVideoShared creates a VideoShared event
func NewVideoShared(videoID valueobjects.VideoID, userID valueobjects.UserID) VideoShared {
	return VideoShared{
		BaseEvent: newBase(videoID.String(), "engagement.video_shared"),
		VideoID:   videoID,
		UserID:    userID,
	}
}

// CommentAdded is raised after a comment is appended
type CommentAdded struct {
	BaseEvent
	VideoID   valueobjects.VideoID   `json:"video_id"`
	CommentID valueobjects.CommentID `json:"comment_id"`
	UserID    valueobjects.UserID    `json:"user_id"`
}

// NewCommentAdded creates a CommentAdded event
func NewCommentAdded(videoID valueobjects.VideoID, commentID valueobjects.CommentID, userID valueobjects.UserID) CommentAdded {
	return CommentAdded{
		BaseEvent: newBase(videoID.String(), "engagement.comment_added"),
		VideoID:   videoID,
		CommentID: commentID,
		UserID:    userID,
	}
}

// ViewCounted is raised only when the watch threshold was met
type ViewCounted struct {
	BaseEvent
	VideoID valueobjects.VideoID `json:"video_id"`
}

// NewViewCounted creates a ViewCounted event
func NewViewCounted(videoID valueobjects.VideoID) ViewCounted {
	return ViewCounted{
		BaseEvent: newBase(videoID.String(), "engagement.view_counted"),
		VideoID:   videoID,
	}
}

// Messaging events

// MessageSent is raised after a chat message is persisted
type MessageSent struct {
	BaseEvent
	MessageID  valueobjects.MessageID `json:"message_id"`
	SenderID   valueobjects.UserID    `json:"sender_id"`
	ReceiverID valueobjects.UserID    `json:"receiver_id"`
}

// NewMessageSent creates a MessageSent event
func NewMessageSent(messageID valueobjects.MessageID, sender, receiver valueobjects.UserID) MessageSent {
	return MessageSent{
		BaseEvent:  newBase(messageID.String(), "chat.message_sent"),
		MessageID:  messageID,
		SenderID:   sender,
		ReceiverID: receiver,
	}
}
