package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// Opaque identifier value objects. Every cross-entity pointer in the store is
// one of these; raw strings are parsed exactly once at the boundary so that
// membership checks never compare differently-typed representations.

// UserID identifies a user account
type UserID struct {
	value string
}

// NewUserID creates a new random UserID
func NewUserID() UserID {
	return UserID{value: uuid.New().String()}
}

// NewUserIDFromString creates a UserID from an existing string
func NewUserIDFromString(id string) (UserID, error) {
	if err := validateID(id); err != nil {
		return UserID{}, err
	}
	return UserID{value: id}, nil
}

func (id UserID) String() string       { return id.value }
func (id UserID) IsZero() bool         { return id.value == "" }
func (id UserID) Equals(o UserID) bool { return id.value == o.value }

// MarshalJSON implements json.Marshaler
func (id UserID) MarshalJSON() ([]byte, error) { return marshalID(id.value) }

// UnmarshalJSON implements json.Unmarshaler
func (id *UserID) UnmarshalJSON(data []byte) error { return unmarshalID(data, &id.value) }

// VideoID identifies an uploaded video
type VideoID struct {
	value string
}

// NewVideoID creates a new random VideoID
func NewVideoID() VideoID {
	return VideoID{value: uuid.New().String()}
}

// NewVideoIDFromString creates a VideoID from an existing string
func NewVideoIDFromString(id string) (VideoID, error) {
	if err := validateID(id); err != nil {
		return VideoID{}, err
	}
	return VideoID{value: id}, nil
}

func (id VideoID) String() string        { return id.value }
func (id VideoID) IsZero() bool          { return id.value == "" }
func (id VideoID) Equals(o VideoID) bool { return id.value == o.value }

func (id VideoID) MarshalJSON() ([]byte, error)     { return marshalID(id.value) }
func (id *VideoID) UnmarshalJSON(data []byte) error { return unmarshalID(data, &id.value) }

// CommentID identifies a comment within a video
type CommentID struct {
	value string
}

// NewCommentID creates a new random CommentID
func NewCommentID() CommentID {
	return CommentID{value: uuid.New().String()}
}

// NewCommentIDFromString creates a CommentID from an existing string
func NewCommentIDFromString(id string) (CommentID, error) {
	if err := validateID(id); err != nil {
		return CommentID{}, err
	}
	return CommentID{value: id}, nil
}

func (id CommentID) String() string          { return id.value }
func (id CommentID) IsZero() bool            { return id.value == "" }
func (id CommentID) Equals(o CommentID) bool { return id.value == o.value }

func (id CommentID) MarshalJSON() ([]byte, error)     { return marshalID(id.value) }
func (id *CommentID) UnmarshalJSON(data []byte) error { return unmarshalID(data, &id.value) }

// MessageID identifies a chat message
type MessageID struct {
	value string
}

// NewMessageID creates a new random MessageID
func NewMessageID() MessageID {
	return MessageID{value: uuid.New().String()}
}

// NewMessageIDFromString creates a MessageID from an existing string
func NewMessageIDFromString(id string) (MessageID, error) {
	if err := validateID(id); err != nil {
		return MessageID{}, err
	}
	return MessageID{value: id}, nil
}

func (id MessageID) String() string          { return id.value }
func (id MessageID) IsZero() bool            { return id.value == "" }
func (id MessageID) Equals(o MessageID) bool { return id.value == o.value }

func (id MessageID) MarshalJSON() ([]byte, error)     { return marshalID(id.value) }
func (id *MessageID) UnmarshalJSON(data []byte) error { return unmarshalID(data, &id.value) }

func validateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("id must be a valid UUID")
	}
	return nil
}

func marshalID(value string) ([]byte, error) {
	return []byte(`"` + value + `"`), nil
}

func unmarshalID(data []byte, target *string) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("id must be a string")
	}
	*target = string(data[1 : len(data)-1])
	return nil
}
