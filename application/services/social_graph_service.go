package services

import (
	"context"

	"go.uber.org/zap"

	"clipstream-backend/application/ports"
	"clipstream-backend/domain/core/entities"
	"clipstream-backend/domain/core/valueobjects"
	"clipstream-backend/domain/events"
	apperrors "clipstream-backend/pkg/errors"
)

// SocialGraphService owns every mutation of the follow and friendship edges.
// Each symmetric mutation runs under a pair lock so concurrent calls touching
// the same two users serialize, and each applies its two document writes in a
// fixed order with a compensating undo if the second write fails.
type SocialGraphService struct {
	users    ports.UserRepository
	locker   ports.PairLocker
	eventBus ports.EventBus
	logger   *zap.Logger
}

// NewSocialGraphService creates the social graph service
func NewSocialGraphService(
	users ports.UserRepository,
	locker ports.PairLocker,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *SocialGraphService {
	return &SocialGraphService{
		users:    users,
		locker:   locker,
		eventBus: eventBus,
		logger:   logger,
	}
}

// parseUserID maps malformed ids to not-found, matching lookup semantics:
// an id that cannot exist behaves like an id that does not exist.
func parseUserID(raw, resource string) (valueobjects.UserID, error) {
	id, err := valueobjects.NewUserIDFromString(raw)
	if err != nil {
		return valueobjects.UserID{}, apperrors.NewNotFoundError(resource)
	}
	return id, nil
}

// Follow creates the follow edge from caller to target.
// Both user documents are updated and both denormalized counters move together.
func (s *SocialGraphService) Follow(ctx context.Context, callerID, targetID string) error {
	caller, err := parseUserID(callerID, "user")
	if err != nil {
		return err
	}
	target, err := parseUserID(targetID, "user")
	if err != nil {
		return err
	}
	if caller.Equals(target) {
		return apperrors.NewInvalidOperationError("you cannot follow yourself")
	}

	lock, err := s.locker.AcquirePair(ctx, caller.String(), target.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to acquire pair lock")
	}
	defer s.release(ctx, lock)

	callerUser, err := s.users.GetByID(ctx, caller)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, target); err != nil {
		return err
	}
	if callerUser.IsFollowing(target) {
		return apperrors.NewConflictError("you are already following this user")
	}

	applied, err := s.users.AddRelation(ctx, caller, ports.RelationFollowing, target)
	if err != nil {
		return apperrors.Wrap(err, "failed to record following edge")
	}
	if !applied {
		return apperrors.NewConflictError("you are already following this user")
	}
	if err := s.users.AdjustCount(ctx, caller, ports.CountFollowing, 1); err != nil {
		return apperrors.Wrap(err, "failed to update following count")
	}

	if err := s.applyFollowerSide(ctx, caller, target); err != nil {
		s.undoFollowingSide(ctx, caller, target)
		return err
	}

	s.publish(ctx, events.NewUserFollowed(caller, target))
	s.logger.Info("follow edge created",
		zap.String("follower_id", caller.String()),
		zap.String("target_id", target.String()),
	)
	return nil
}

func (s *SocialGraphService) applyFollowerSide(ctx context.Context, caller, target valueobjects.UserID) error {
	if _, err := s.users.AddRelation(ctx, target, ports.RelationFollowers, caller); err != nil {
		return apperrors.Wrap(err, "failed to record follower edge")
	}
	if err := s.users.AdjustCount(ctx, target, ports.CountFollowers, 1); err != nil {
		return apperrors.Wrap(err, "failed to update followers count")
	}
	return nil
}

// undoFollowingSide compensates the first half of a failed follow.
// Failures here are logged, not returned; the pair lock has already kept
// concurrent writers out and a reconciliation sweep handles the remainder.
func (s *SocialGraphService) undoFollowingSide(ctx context.Context, caller, target valueobjects.UserID) {
	if _, err := s.users.RemoveRelation(ctx, caller, ports.RelationFollowing, target); err != nil {
		s.logger.Error("failed to undo following edge",
			zap.String("follower_id", caller.String()),
			zap.String("target_id", target.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.users.AdjustCount(ctx, caller, ports.CountFollowing, -1); err != nil {
		s.logger.Error("failed to undo following count",
			zap.String("follower_id", caller.String()),
			zap.Error(err),
		)
	}
}

// Unfollow removes the follow edge from caller to target
func (s *SocialGraphService) Unfollow(ctx context.Context, callerID, targetID string) error {
	caller, err := parseUserID(callerID, "user")
	if err != nil {
		return err
	}
	target, err := parseUserID(targetID, "user")
	if err != nil {
		return err
	}
	if caller.Equals(target) {
		return apperrors.NewInvalidOperationError("you cannot unfollow yourself")
	}

	lock, err := s.locker.AcquirePair(ctx, caller.String(), target.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to acquire pair lock")
	}
	defer s.release(ctx, lock)

	callerUser, err := s.users.GetByID(ctx, caller)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, target); err != nil {
		return err
	}
	if !callerUser.IsFollowing(target) {
		return apperrors.NewConflictError("you are not following this user")
	}

	applied, err := s.users.RemoveRelation(ctx, caller, ports.RelationFollowing, target)
	if err != nil {
		return apperrors.Wrap(err, "failed to remove following edge")
	}
	if !applied {
		return apperrors.NewConflictError("you are not following this user")
	}
	if err := s.users.AdjustCount(ctx, caller, ports.CountFollowing, -1); err != nil {
		return apperrors.Wrap(err, "failed to update following count")
	}

	if err := s.removeFollowerSide(ctx, caller, target); err != nil {
		if _, undoErr := s.users.AddRelation(ctx, caller, ports.RelationFollowing, target); undoErr != nil {
			s.logger.Error("failed to undo unfollow",
				zap.String("follower_id", caller.String()),
				zap.String("target_id", target.String()),
				zap.Error(undoErr),
			)
		} else if undoErr := s.users.AdjustCount(ctx, caller, ports.CountFollowing, 1); undoErr != nil {
			s.logger.Error("failed to undo following count", zap.Error(undoErr))
		}
		return err
	}

	s.publish(ctx, events.NewUserUnfollowed(caller, target))
	s.logger.Info("follow edge removed",
		zap.String("follower_id", caller.String()),
		zap.String("target_id", target.String()),
	)
	return nil
}

func (s *SocialGraphService) removeFollowerSide(ctx context.Context, caller, target valueobjects.UserID) error {
	if _, err := s.users.RemoveRelation(ctx, target, ports.RelationFollowers, caller); err != nil {
		return apperrors.Wrap(err, "failed to remove follower edge")
	}
	if err := s.users.AdjustCount(ctx, target, ports.CountFollowers, -1); err != nil {
		return apperrors.Wrap(err, "failed to update followers count")
	}
	return nil
}

// SendFriendRequest records a pending friend request on the receiver
func (s *SocialGraphService) SendFriendRequest(ctx context.Context, senderID, receiverID string) error {
	sender, err := parseUserID(senderID, "user")
	if err != nil {
		return err
	}
	receiver, err := parseUserID(receiverID, "user")
	if err != nil {
		return err
	}
	if sender.Equals(receiver) {
		return apperrors.NewInvalidOperationError("you cannot send a friend request to yourself")
	}

	lock, err := s.locker.AcquirePair(ctx, sender.String(), receiver.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to acquire pair lock")
	}
	defer s.release(ctx, lock)

	senderUser, err := s.users.GetByID(ctx, sender)
	if err != nil {
		return err
	}
	receiverUser, err := s.users.GetByID(ctx, receiver)
	if err != nil {
		return err
	}
	if senderUser.IsFriendsWith(receiver) || receiverUser.IsFriendsWith(sender) {
		return apperrors.NewConflictError("you are already friends with this user")
	}
	if receiverUser.HasPendingRequestFrom(sender) {
		return apperrors.NewConflictError("friend request already sent")
	}

	applied, err := s.users.AddRelation(ctx, receiver, ports.RelationPendingRequests, sender)
	if err != nil {
		return apperrors.Wrap(err, "failed to record friend request")
	}
	if !applied {
		return apperrors.NewConflictError("friend request already sent")
	}

	s.publish(ctx, events.NewFriendRequestSent(sender, receiver))
	s.logger.Info("friend request sent",
		zap.String("sender_id", sender.String()),
		zap.String("receiver_id", receiver.String()),
	)
	return nil
}

// AcceptFriendRequest converts a pending request into a friendship. When both
// users had requested each other, accepting either request establishes the
// friendship once and clears both pending entries.
func (s *SocialGraphService) AcceptFriendRequest(ctx context.Context, receiverID, senderID string) error {
	receiver, err := parseUserID(receiverID, "user")
	if err != nil {
		return err
	}
	sender, err := parseUserID(senderID, "user")
	if err != nil {
		return err
	}
	if receiver.Equals(sender) {
		return apperrors.NewInvalidOperationError("you cannot accept a friend request from yourself")
	}

	lock, err := s.locker.AcquirePair(ctx, receiver.String(), sender.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to acquire pair lock")
	}
	defer s.release(ctx, lock)

	receiverUser, err := s.users.GetByID(ctx, receiver)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, sender); err != nil {
		return err
	}
	if !receiverUser.HasPendingRequestFrom(sender) {
		return apperrors.NewConflictError("no pending friend request from this user")
	}

	if _, err := s.users.AddRelation(ctx, receiver, ports.RelationFriends, sender); err != nil {
		return apperrors.Wrap(err, "failed to record friendship")
	}
	if _, err := s.users.AddRelation(ctx, sender, ports.RelationFriends, receiver); err != nil {
		if _, undoErr := s.users.RemoveRelation(ctx, receiver, ports.RelationFriends, sender); undoErr != nil {
			s.logger.Error("failed to undo friendship edge",
				zap.String("receiver_id", receiver.String()),
				zap.String("sender_id", sender.String()),
				zap.Error(undoErr),
			)
		}
		return apperrors.Wrap(err, "failed to record friendship")
	}

	// Clear pending entries on both sides; removals are idempotent so the
	// reverse-direction entry may or may not exist.
	if _, err := s.users.RemoveRelation(ctx, receiver, ports.RelationPendingRequests, sender); err != nil {
		s.logger.Error("failed to clear pending request",
			zap.String("receiver_id", receiver.String()),
			zap.Error(err),
		)
	}
	if _, err := s.users.RemoveRelation(ctx, sender, ports.RelationPendingRequests, receiver); err != nil {
		s.logger.Error("failed to clear reverse pending request",
			zap.String("sender_id", sender.String()),
			zap.Error(err),
		)
	}

	s.publish(ctx, events.NewFriendRequestAccepted(sender, receiver))
	s.logger.Info("friend request accepted",
		zap.String("receiver_id", receiver.String()),
		zap.String("sender_id", sender.String()),
	)
	return nil
}

// RejectFriendRequest drops a pending request without creating any edge
func (s *SocialGraphService) RejectFriendRequest(ctx context.Context, receiverID, senderID string) error {
	receiver, err := parseUserID(receiverID, "user")
	if err != nil {
		return err
	}
	sender, err := parseUserID(senderID, "user")
	if err != nil {
		return err
	}

	receiverUser, err := s.users.GetByID(ctx, receiver)
	if err != nil {
		return err
	}
	if !receiverUser.HasPendingRequestFrom(sender) {
		return apperrors.NewConflictError("no pending friend request from this user")
	}

	applied, err := s.users.RemoveRelation(ctx, receiver, ports.RelationPendingRequests, sender)
	if err != nil {
		return apperrors.Wrap(err, "failed to remove friend request")
	}
	if !applied {
		return apperrors.NewConflictError("no pending friend request from this user")
	}

	s.publish(ctx, events.NewFriendRequestRejected(sender, receiver))
	s.logger.Info("friend request rejected",
		zap.String("receiver_id", receiver.String()),
		zap.String("sender_id", sender.String()),
	)
	return nil
}

// GetProfile returns the public projection of one user
func (s *SocialGraphService) GetProfile(ctx context.Context, userID string) (*entities.Profile, error) {
	id, err := parseUserID(userID, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := user.PublicProfile()
	return &profile, nil
}

// UpdateProfile applies a partial profile update and returns the new projection
func (s *SocialGraphService) UpdateProfile(ctx context.Context, userID string, patch ports.ProfilePatch) (*entities.Profile, error) {
	id, err := parseUserID(userID, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.users.UpdateProfile(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	profile := user.PublicProfile()
	return &profile, nil
}

// GetFollowers returns the profiles of everyone following the user
func (s *SocialGraphService) GetFollowers(ctx context.Context, userID string) ([]entities.Profile, error) {
	return s.relationProfiles(ctx, userID, func(u *entities.User) valueobjects.IDSet { return u.Followers })
}

// GetFollowing returns the profiles of everyone the user follows
func (s *SocialGraphService) GetFollowing(ctx context.Context, userID string) ([]entities.Profile, error) {
	return s.relationProfiles(ctx, userID, func(u *entities.User) valueobjects.IDSet { return u.Following })
}

// GetFriends returns the profiles of the user's friends
func (s *SocialGraphService) GetFriends(ctx context.Context, userID string) ([]entities.Profile, error) {
	return s.relationProfiles(ctx, userID, func(u *entities.User) valueobjects.IDSet { return u.Friends })
}

// GetPendingRequests returns the profiles of users with open requests to this user
func (s *SocialGraphService) GetPendingRequests(ctx context.Context, userID string) ([]entities.Profile, error) {
	return s.relationProfiles(ctx, userID, func(u *entities.User) valueobjects.IDSet { return u.PendingFriendRequests })
}

func (s *SocialGraphService) relationProfiles(
	ctx context.Context,
	userID string,
	pick func(*entities.User) valueobjects.IDSet,
) ([]entities.Profile, error) {
	id, err := parseUserID(userID, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	raw := pick(user).Values()
	ids := make([]valueobjects.UserID, 0, len(raw))
	for _, r := range raw {
		memberID, err := valueobjects.NewUserIDFromString(r)
		if err != nil {
			s.logger.Warn("skipping malformed relation member",
				zap.String("user_id", id.String()),
				zap.String("member", r),
			)
			continue
		}
		ids = append(ids, memberID)
	}

	members, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load relation members")
	}

	profiles := make([]entities.Profile, 0, len(members))
	for _, m := range members {
		profiles = append(profiles, m.PublicProfile())
	}
	return profiles, nil
}

func (s *SocialGraphService) release(ctx context.Context, lock ports.PairLock) {
	if err := lock.Release(ctx); err != nil {
		s.logger.Warn("failed to release pair lock", zap.Error(err))
	}
}

func (s *SocialGraphService) publish(ctx context.Context, event events.DomainEvent) {
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
