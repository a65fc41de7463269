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

// UserRepository maps user entities onto entity store documents.
// It implements ports.UserRepository against any ports.EntityStore.
type UserRepository struct {
	store ports.EntityStore
}

// NewUserRepository creates a user repository backed by the given store
func NewUserRepository(store ports.EntityStore) *UserRepository {
	return &UserRepository{store: store}
}

func encodeUser(u *entities.User) ports.Document {
	return ports.Document{
		"id":                    u.ID.String(),
		"email":                 u.Email,
		"username":              u.Username,
		"avatar":                u.Avatar,
		"bio":                   u.Bio,
		"followers":             u.Followers.Values(),
		"following":             u.Following.Values(),
		"friends":               u.Friends.Values(),
		"pendingFriendRequests": u.PendingFriendRequests.Values(),
		"followersCount":        u.FollowersCount,
		"followingCount":        u.FollowingCount,
		"createdAt":             encodeTime(u.CreatedAt),
		"updatedAt":             encodeTime(u.UpdatedAt),
	}
}

func decodeUser(doc ports.Document) (*entities.User, error) {
	id, err := valueobjects.NewUserIDFromString(asString(doc["id"]))
	if err != nil {
		return nil, fmt.Errorf("invalid user id in document: %w", err)
	}
	return &entities.User{
		ID:                    id,
		Email:                 asString(doc["email"]),
		Username:              asString(doc["username"]),
		Avatar:                asString(doc["avatar"]),
		Bio:                   asString(doc["bio"]),
		Followers:             valueobjects.NewIDSet(asStringSlice(doc["followers"])...),
		Following:             valueobjects.NewIDSet(asStringSlice(doc["following"])...),
		Friends:               valueobjects.NewIDSet(asStringSlice(doc["friends"])...),
		PendingFriendRequests: valueobjects.NewIDSet(asStringSlice(doc["pendingFriendRequests"])...),
		FollowersCount:        asInt(doc["followersCount"]),
		FollowingCount:        asInt(doc["followingCount"]),
		CreatedAt:             decodeTime(doc["createdAt"]),
		UpdatedAt:             decodeTime(doc["updatedAt"]),
	}, nil
}

// GetByID loads one user
func (r *UserRepository) GetByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error) {
	doc, err := r.store.Get(ctx, ports.CollectionUsers, id.String())
	if err != nil {
		return nil, err
	}
	user, err := decodeUser(doc)
	if err != nil {
		return nil, apperrors.NewInternalError("corrupt user document").WithCause(err)
	}
	return user, nil
}

// GetByIDs loads a batch of users, silently dropping ids that no longer exist
func (r *UserRepository) GetByIDs(ctx context.Context, ids []valueobjects.UserID) ([]*entities.User, error) {
	users := make([]*entities.User, 0, len(ids))
	for _, id := range ids {
		user, err := r.GetByID(ctx, id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// Create persists a new user
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	_, err := r.store.Create(ctx, ports.CollectionUsers, encodeUser(user))
	return err
}

// UpdateProfile patches the mutable display fields and returns the new state
func (r *UserRepository) UpdateProfile(ctx context.Context, id valueobjects.UserID, patch ports.ProfilePatch) (*entities.User, error) {
	fields := ports.Document{"updatedAt": encodeTime(time.Now())}
	if patch.Username != nil {
		fields["username"] = *patch.Username
	}
	if patch.Avatar != nil {
		fields["avatar"] = *patch.Avatar
	}
	if patch.Bio != nil {
		fields["bio"] = *patch.Bio
	}

	doc, err := r.store.UpdateFields(ctx, ports.CollectionUsers, id.String(), fields)
	if err != nil {
		return nil, err
	}
	user, err := decodeUser(doc)
	if err != nil {
		return nil, apperrors.NewInternalError("corrupt user document").WithCause(err)
	}
	return user, nil
}

// AddRelation inserts member into the named relation set if absent
func (r *UserRepository) AddRelation(ctx context.Context, id valueobjects.UserID, field ports.RelationField, member valueobjects.UserID) (bool, error) {
	return r.store.AtomicAddToSet(ctx, ports.CollectionUsers, id.String(), string(field), member.String(), "")
}

// RemoveRelation removes member from the named relation set
func (r *UserRepository) RemoveRelation(ctx context.Context, id valueobjects.UserID, field ports.RelationField, member valueobjects.UserID) (bool, error) {
	return r.store.AtomicRemoveFromSet(ctx, ports.CollectionUsers, id.String(), string(field), member.String(), "")
}

// AdjustCount changes a denormalized counter, clamped at zero
func (r *UserRepository) AdjustCount(ctx context.Context, id valueobjects.UserID, field ports.UserCountField, delta int) error {
	zero := 0
	_, err := r.store.AtomicIncrement(ctx, ports.CollectionUsers, id.String(), string(field), delta, &zero)
	return err
}
