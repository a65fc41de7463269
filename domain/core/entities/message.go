package entities

import (
	"fmt"
	"time"

	"clipstream-backend/domain/core/valueobjects"
)

// MessageKind is the payload type of a chat message
type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindVideo MessageKind = "video"
	MessageKindImage MessageKind = "image"
)

// ParseMessageKind validates a raw kind string, defaulting empty to text
func ParseMessageKind(raw string) (MessageKind, error) {
	switch MessageKind(raw) {
	case MessageKindText, MessageKindVideo, MessageKindImage:
		return MessageKind(raw), nil
	case "":
		return MessageKindText, nil
	default:
		return "", fmt.Errorf("unknown message kind: %q", raw)
	}
}

// ChatMessage is immutable once created. History ordering is by CreatedAt
// ascending; Seq breaks ties between messages persisted in the same instant.
type ChatMessage struct {
	ID         valueobjects.MessageID `json:"id"`
	SenderID   valueobjects.UserID    `json:"sender_id"`
	ReceiverID valueobjects.UserID    `json:"receiver_id"`
	Content    string                 `json:"content"`
	Kind       MessageKind            `json:"kind"`
	CreatedAt  time.Time              `json:"created_at"`
	Seq        int64                  `json:"seq"`
}

// NewChatMessage creates a message ready to persist
func NewChatMessage(sender, receiver valueobjects.UserID, content string, kind MessageKind) (*ChatMessage, error) {
	if sender.IsZero() || receiver.IsZero() {
		return nil, fmt.Errorf("sender and receiver are required")
	}
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}
	if kind == "" {
		kind = MessageKindText
	}

	return &ChatMessage{
		ID:         valueobjects.NewMessageID(),
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    content,
		Kind:       kind,
		CreatedAt:  time.Now(),
	}, nil
}
