package repository

import (
	"context"
	"fmt"
	"strings"

	"clipstream-backend/application/ports"
	"clipstream-backend/domain/core/entities"
	"clipstream-backend/domain/core/valueobjects"
	apperrors "clipstream-backend/pkg/errors"
)

// MessageRepository maps chat messages onto entity store documents.
// Both directions of a conversation share one conversation key so history
// reads interleave naturally.
type MessageRepository struct {
	store ports.EntityStore
}

// NewMessageRepository creates a message repository backed by the given store
func NewMessageRepository(store ports.EntityStore) *MessageRepository {
	return &MessageRepository{store: store}
}

// conversationKey is order-independent: key(a,b) == key(b,a)
func conversationKey(a, b valueobjects.UserID) string {
	x, y := a.String(), b.String()
	if strings.Compare(x, y) > 0 {
		x, y = y, x
	}
	return x + "#" + y
}

func seqCounterID(convKey string) string { return "seq#" + convKey }

func encodeMessage(m *entities.ChatMessage, convKey string) ports.Document {
	return ports.Document{
		"id":             m.ID.String(),
		"conversationId": convKey,
		"senderId":       m.SenderID.String(),
		"receiverId":     m.ReceiverID.String(),
		"content":        m.Content,
		"kind":           string(m.Kind),
		"createdAt":      encodeTime(m.CreatedAt),
		"seq":            m.Seq,
	}
}

func decodeMessage(doc ports.Document) (*entities.ChatMessage, error) {
	id, err := valueobjects.NewMessageIDFromString(asString(doc["id"]))
	if err != nil {
		return nil, fmt.Errorf("invalid message id in document: %w", err)
	}
	sender, err := valueobjects.NewUserIDFromString(asString(doc["senderId"]))
	if err != nil {
		return nil, fmt.Errorf("invalid sender id in document: %w", err)
	}
	receiver, err := valueobjects.NewUserIDFromString(asString(doc["receiverId"]))
	if err != nil {
		return nil, fmt.Errorf("invalid receiver id in document: %w", err)
	}
	kind, err := entities.ParseMessageKind(asString(doc["kind"]))
	if err != nil {
		return nil, err
	}
	return &entities.ChatMessage{
		ID:         id,
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    asString(doc["content"]),
		Kind:       kind,
		CreatedAt:  decodeTime(doc["createdAt"]),
		Seq:        asInt64(doc["seq"]),
	}, nil
}

// Create assigns the next conversation sequence number and persists the message
func (r *MessageRepository) Create(ctx context.Context, msg *entities.ChatMessage) error {
	convKey := conversationKey(msg.SenderID, msg.ReceiverID)

	seq, err := r.store.AtomicIncrement(ctx, ports.CollectionMessages, seqCounterID(convKey), "value", 1, nil)
	if err != nil {
		return apperrors.Wrap(err, "failed to allocate message sequence")
	}
	msg.Seq = seq

	_, err = r.store.Create(ctx, ports.CollectionMessages, encodeMessage(msg, convKey))
	return err
}

// GetConversation returns messages between the two users oldest first
func (r *MessageRepository) GetConversation(ctx context.Context, a, b valueobjects.UserID, page ports.Page) ([]*entities.ChatMessage, error) {
	filter := ports.Filter{"conversationId": conversationKey(a, b)}
	sort := ports.Sort{Field: "seq", Ascending: true}

	docs, err := r.store.Query(ctx, ports.CollectionMessages, filter, sort, page)
	if err != nil {
		return nil, err
	}

	msgs := make([]*entities.ChatMessage, 0, len(docs))
	for _, doc := range docs {
		msg, err := decodeMessage(doc)
		if err != nil {
			return nil, apperrors.NewInternalError("corrupt message document").WithCause(err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
