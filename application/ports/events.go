package ports

import (
	"context"

	"clipstream-backend/domain/events"
)

// EventBus publishes domain events to interested consumers.
// Publishing is not part of any operation's success criteria; implementations
// log failures instead of propagating them.
type EventBus interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, batch []events.DomainEvent) error
}
