package entities

import (
	"fmt"
	"time"

	"clipstream-backend/domain/core/valueobjects"
)

// Comment lives inside exactly one video's comment list. Author display
// fields are captured when the comment is written, not joined at read time.
type Comment struct {
	ID        valueobjects.CommentID `json:"id"`
	UserID    valueobjects.UserID    `json:"user_id"`
	Content   string                 `json:"content"`
	Username  string                 `json:"username"`
	Avatar    string                 `json:"avatar"`
	CreatedAt time.Time              `json:"created_at"`
}

// Video is the engagement target. The three membership sets and the views
// counter are mutated only through the engagement service; every denormalized
// counter must equal the size of its backing set or list.
type Video struct {
	ID       valueobjects.VideoID
	OwnerID  valueobjects.UserID
	Title    string
	Desc     string
	VideoURL string
	IsPublic bool

	LikedBy  valueobjects.IDSet
	SavedBy  valueobjects.IDSet
	SharedBy valueobjects.IDSet
	Comments []Comment // insertion order is chronological

	Likes        int
	Saved        int
	Shared       int
	CommentCount int
	Views        int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewVideo creates a video owned by the given user
func NewVideo(ownerID valueobjects.UserID, title, videoURL string) (*Video, error) {
	if ownerID.IsZero() {
		return nil, fmt.Errorf("owner id is required")
	}
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if videoURL == "" {
		return nil, fmt.Errorf("video url is required")
	}

	now := time.Now()
	return &Video{
		ID:        valueobjects.NewVideoID(),
		OwnerID:   ownerID,
		Title:     title,
		VideoURL:  videoURL,
		IsPublic:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsLikedBy reports whether the user already liked this video
func (v *Video) IsLikedBy(userID valueobjects.UserID) bool {
	return v.LikedBy.Contains(userID.String())
}

// IsSavedBy reports whether the user already saved this video
func (v *Video) IsSavedBy(userID valueobjects.UserID) bool {
	return v.SavedBy.Contains(userID.String())
}

// FindComment returns the comment with the given id, or nil
func (v *Video) FindComment(commentID valueobjects.CommentID) *Comment {
	for i := range v.Comments {
		if v.Comments[i].ID.Equals(commentID) {
			return &v.Comments[i]
		}
	}
	return nil
}

// CheckCountInvariants verifies denormalized counters against set/list sizes
func (v *Video) CheckCountInvariants() error {
	if v.Likes != v.LikedBy.Len() {
		return fmt.Errorf("likes %d != |likedBy| %d for video %s", v.Likes, v.LikedBy.Len(), v.ID.String())
	}
	if v.Saved != v.SavedBy.Len() {
		return fmt.Errorf("saved %d != |savedBy| %d for video %s", v.Saved, v.SavedBy.Len(), v.ID.String())
	}
	if v.CommentCount != len(v.Comments) {
		return fmt.Errorf("commentCount %d != |comments| %d for video %s", v.CommentCount, len(v.Comments), v.ID.String())
	}
	return nil
}
