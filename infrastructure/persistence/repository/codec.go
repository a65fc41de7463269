package repository

import (
	"fmt"
	"time"

	"clipstream-backend/application/ports"
	"clipstream-backend/domain/core/entities"
	"clipstream-backend/domain/core/valueobjects"
)

// Documents store timestamps as RFC3339 strings so the same codec works
// against both the DynamoDB and the in-memory store.
const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func decodeTime(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// asInt64 tolerates the numeric types different stores hand back
func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asInt(v interface{}) int { return int(asInt64(v)) }

// asStringSlice tolerates both []string and []interface{} set encodings
func asStringSlice(v interface{}) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []interface{}:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func asDocumentSlice(v interface{}) []ports.Document {
	switch vs := v.(type) {
	case []ports.Document:
		return vs
	case []interface{}:
		out := make([]ports.Document, 0, len(vs))
		for _, e := range vs {
			switch d := e.(type) {
			case ports.Document:
				out = append(out, d)
			case map[string]interface{}:
				out = append(out, ports.Document(d))
			}
		}
		return out
	default:
		return nil
	}
}

func encodeComment(c entities.Comment) ports.Document {
	return ports.Document{
		"id":        c.ID.String(),
		"userId":    c.UserID.String(),
		"content":   c.Content,
		"username":  c.Username,
		"avatar":    c.Avatar,
		"createdAt": encodeTime(c.CreatedAt),
	}
}

func decodeComment(doc ports.Document) (entities.Comment, error) {
	id, err := valueobjects.NewCommentIDFromString(asString(doc["id"]))
	if err != nil {
		return entities.Comment{}, fmt.Errorf("invalid comment id: %w", err)
	}
	userID, err := valueobjects.NewUserIDFromString(asString(doc["userId"]))
	if err != nil {
		return entities.Comment{}, fmt.Errorf("invalid comment author id: %w", err)
	}
	return entities.Comment{
		ID:        id,
		UserID:    userID,
		Content:   asString(doc["content"]),
		Username:  asString(doc["username"]),
		Avatar:    asString(doc["avatar"]),
		CreatedAt: decodeTime(doc["createdAt"]),
	}, nil
}
