package entities

import (
	"fmt"
	"time"

	"clipstream-backend/domain/core/valueobjects"
)

// User is the social-graph node for one account. The four relation sets and
// the two denormalized counters are owned by the social graph service; every
// mutation must keep each counter equal to its backing set cardinality.
type User struct {
	ID       valueobjects.UserID
	Email    string
	Username string
	Avatar   string
	Bio      string

	Followers             valueobjects.IDSet // users following this user
	Following             valueobjects.IDSet // users this user follows
	Friends               valueobjects.IDSet
	PendingFriendRequests valueobjects.IDSet // senders awaiting this user's decision

	FollowersCount int
	FollowingCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a user node with empty relations
func NewUser(email, username string) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	now := time.Now()
	return &User{
		ID:        valueobjects.NewUserID(),
		Email:     email,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsFollowing reports whether this user follows the target
func (u *User) IsFollowing(target valueobjects.UserID) bool {
	return u.Following.Contains(target.String())
}

// IsFriendsWith reports whether the friendship edge exists on this side
func (u *User) IsFriendsWith(other valueobjects.UserID) bool {
	return u.Friends.Contains(other.String())
}

// HasPendingRequestFrom reports whether sender has an open friend request
func (u *User) HasPendingRequestFrom(sender valueobjects.UserID) bool {
	return u.PendingFriendRequests.Contains(sender.String())
}

// CheckCountInvariants verifies the denormalized counters against set sizes.
// Returns an error naming the first counter that drifted.
func (u *User) CheckCountInvariants() error {
	if u.FollowersCount != u.Followers.Len() {
		return fmt.Errorf("followersCount %d != |followers| %d for user %s",
			u.FollowersCount, u.Followers.Len(), u.ID.String())
	}
	if u.FollowingCount != u.Following.Len() {
		return fmt.Errorf("followingCount %d != |following| %d for user %s",
			u.FollowingCount, u.Following.Len(), u.ID.String())
	}
	return nil
}

// Profile is the public projection of a user returned by read operations
type Profile struct {
	ID             valueobjects.UserID `json:"id"`
	Username       string              `json:"username"`
	Avatar         string              `json:"avatar"`
	Bio            string              `json:"bio"`
	FollowersCount int                 `json:"followers_count"`
	FollowingCount int                 `json:"following_count"`
}

// PublicProfile returns the display projection of this user
func (u *User) PublicProfile() Profile {
	return Profile{
		ID:             u.ID,
		Username:       u.Username,
		Avatar:         u.Avatar,
		Bio:            u.Bio,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
	}
}
