package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"clipstream-backend/application/ports"
	"clipstream-backend/domain/core/entities"
	"clipstream-backend/domain/events"
	apperrors "clipstream-backend/pkg/errors"
)

// pushTimeout bounds the detached delivery attempt after a message persists
const pushTimeout = 10 * time.Second

// ChatService persists direct messages and fans them out to the receiver's
// live connections. Persistence is the success criterion; delivery is best
// effort and never fails the send.
type ChatService struct {
	messages ports.MessageRepository
	users    ports.UserRepository
	presence ports.Presence
	pusher   ports.Pusher
	eventBus ports.EventBus
	logger   *zap.Logger
}

// NewChatService creates the chat service
func NewChatService(
	messages ports.MessageRepository,
	users ports.UserRepository,
	presence ports.Presence,
	pusher ports.Pusher,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		messages: messages,
		users:    users,
		presence: presence,
		pusher:   pusher,
		eventBus: eventBus,
		logger:   logger,
	}
}

// SendMessage validates, persists, and then pushes the message to the
// receiver. The returned message is the persisted record; push failures are
// logged and do not affect the result.
func (s *ChatService) SendMessage(ctx context.Context, senderID, receiverID, content, kind string) (*entities.ChatMessage, error) {
	sender, err := parseUserID(senderID, "sender")
	if err != nil {
		return nil, err
	}
	receiver, err := parseUserID(receiverID, "receiver")
	if err != nil {
		return nil, err
	}
	if sender.Equals(receiver) {
		return nil, apperrors.NewInvalidOperationError("you cannot message yourself")
	}
	if content == "" {
		return nil, apperrors.NewValidationError("message content is required")
	}
	msgKind, err := entities.ParseMessageKind(kind)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if _, err := s.users.GetByID(ctx, sender); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, receiver); err != nil {
		return nil, err
	}

	msg, err := entities.NewChatMessage(sender, receiver, content, msgKind)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.Wrap(err, "failed to persist message")
	}

	s.deliver(msg)

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, events.NewMessageSent(msg.ID, sender, receiver)); err != nil {
			s.logger.Warn("failed to publish message event",
				zap.String("message_id", msg.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("message sent",
		zap.String("message_id", msg.ID.String()),
		zap.String("sender_id", sender.String()),
		zap.String("receiver_id", receiver.String()),
	)
	return msg, nil
}

// deliver pushes the persisted message to the receiver's connections in a
// detached goroutine so a slow transport never blocks the sender.
func (s *ChatService) deliver(msg *entities.ChatMessage) {
	if s.pusher == nil {
		return
	}
	receiverID := msg.ReceiverID.String()
	if s.presence != nil && !s.presence.IsOnline(receiverID) {
		return
	}

	go func() {
		pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()

		if err := s.pusher.Push(pushCtx, receiverID, ports.EventNewMessage, msg); err != nil {
			s.logger.Warn("message delivery failed",
				zap.String("message_id", msg.ID.String()),
				zap.String("receiver_id", receiverID),
				zap.Error(err),
			)
		}
	}()
}

// Notify pushes an ad hoc notification payload to a user's live connections.
// Nothing is persisted; an offline user simply misses it.
func (s *ChatService) Notify(ctx context.Context, userID string, payload interface{}) error {
	id, err := parseUserID(userID, "user")
	if err != nil {
		return err
	}
	if s.pusher == nil {
		return nil
	}
	if err := s.pusher.Push(ctx, id.String(), ports.EventNotification, payload); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("user_id", id.String()),
			zap.Error(err),
		)
	}
	return nil
}

// GetHistory returns the conversation between two users, both directions
// interleaved, oldest first.
func (s *ChatService) GetHistory(ctx context.Context, userID, otherID string, page ports.Page) ([]*entities.ChatMessage, error) {
	a, err := parseUserID(userID, "user")
	if err != nil {
		return nil, err
	}
	b, err := parseUserID(otherID, "user")
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.GetConversation(ctx, a, b, page)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load conversation")
	}
	return msgs, nil
}
