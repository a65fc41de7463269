package ports

import "context"

// Document is the raw record shape exchanged with the entity store
type Document map[string]interface{}

// Filter is an equality filter applied server-side where the store supports it
type Filter map[string]interface{}

// Sort orders query results by a single field
type Sort struct {
	Field     string
	Ascending bool
}

// Page bounds a query result window
type Page struct {
	Offset int
	Limit  int
}

// EntityStore is the durable record store boundary. Implementations must make
// every method atomic within a single document; cross-document coordination is
// the caller's responsibility. Transient backend failures are retried inside
// the adapter with bounded backoff; errors surfacing here are terminal for the
// current operation.
type EntityStore interface {
	// Get returns the document with the given id, or a typed not-found error
	Get(ctx context.Context, collection, id string) (Document, error)

	// Create persists a new document and returns it as stored
	Create(ctx context.Context, collection string, doc Document) (Document, error)

	// UpdateFields applies a partial patch to an existing document
	UpdateFields(ctx context.Context, collection, id string, patch Document) (Document, error)

	// AtomicAddToSet inserts value into a string-set field only if absent.
	// Returns false, with no mutation, when the value was already a member.
	// A non-empty counter is incremented by one in the same write, so a
	// membership set and its denormalized count cannot drift apart.
	AtomicAddToSet(ctx context.Context, collection, id, field, value, counter string) (bool, error)

	// AtomicRemoveFromSet removes value from a string-set field.
	// Returns false, with no mutation, when the value was not a member.
	// A non-empty counter is decremented by one in the same write.
	AtomicRemoveFromSet(ctx context.Context, collection, id, field, value, counter string) (bool, error)

	// AtomicIncrementAndAddToSet increments counter by one and merges value
	// into the set in a single write. Unlike AtomicAddToSet the increment
	// applies even when the value is already a member. Returns the new
	// counter value.
	AtomicIncrementAndAddToSet(ctx context.Context, collection, id, counter, field, value string) (int64, error)

	// AtomicIncrement adjusts a numeric field by delta and returns the new
	// value. When floor is non-nil the update is rejected (no mutation, no
	// error) if it would drop the field below that floor; the current value
	// is returned instead.
	AtomicIncrement(ctx context.Context, collection, id, field string, delta int, floor *int) (int64, error)

	// AtomicAppendToList appends a value to a list field. A non-empty
	// counter is incremented by one in the same write.
	AtomicAppendToList(ctx context.Context, collection, id, field string, value interface{}, counter string) error

	// Query returns matching documents ordered by sort within the page window
	Query(ctx context.Context, collection string, filter Filter, sort Sort, page Page) ([]Document, error)

	// Count returns the number of documents matching the filter
	Count(ctx context.Context, collection string, filter Filter) (int, error)
}

// Store collection names
const (
	CollectionUsers    = "users"
	CollectionVideos   = "videos"
	CollectionMessages = "messages"
)
