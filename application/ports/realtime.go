package ports

import "context"

// RealtimeEvent names the frame type pushed to connected clients
type RealtimeEvent string

const (
	EventNewMessage   RealtimeEvent = "newMessage"
	EventNotification RealtimeEvent = "notification"
)

// Pusher delivers a payload to every live connection a user holds.
// Delivery is best effort; an error means no connection accepted the frame.
type Pusher interface {
	Push(ctx context.Context, userID string, event RealtimeEvent, payload interface{}) error
}

// Presence answers whether a user currently holds at least one live connection
type Presence interface {
	IsOnline(userID string) bool
	ConnectionCount(userID string) int
}
