package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"clipstream-backend/application/ports"
	apperrors "clipstream-backend/pkg/errors"
)

// EntityStore is an in-memory ports.EntityStore with the same observable
// semantics as the DynamoDB adapter. It backs unit tests and local runs.
type EntityStore struct {
	mu   sync.RWMutex
	data map[string]map[string]ports.Document
}

// NewEntityStore creates an empty in-memory store
func NewEntityStore() *EntityStore {
	return &EntityStore{
		data: make(map[string]map[string]ports.Document),
	}
}

func resourceName(collection string) string {
	return strings.TrimSuffix(collection, "s")
}

func (s *EntityStore) collection(name string) map[string]ports.Document {
	c, ok := s.data[name]
	if !ok {
		c = make(map[string]ports.Document)
		s.data[name] = c
	}
	return c
}

// copyDocument returns a deep copy so callers never alias stored state
func copyDocument(doc ports.Document) ports.Document {
	out := make(ports.Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch value := v.(type) {
	case []string:
		return append([]string(nil), value...)
	case []ports.Document:
		out := make([]ports.Document, 0, len(value))
		for _, d := range value {
			out = append(out, copyDocument(d))
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(value))
		for _, e := range value {
			out = append(out, copyValue(e))
		}
		return out
	case ports.Document:
		return copyDocument(value)
	case map[string]interface{}:
		return copyDocument(ports.Document(value))
	default:
		return v
	}
}

// Get returns the document with the given id
func (s *EntityStore) Get(_ context.Context, collection, id string) (ports.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return nil, apperrors.NewNotFoundError(resourceName(collection))
	}
	return copyDocument(doc), nil
}

// Create persists a new document, failing with a conflict if the id exists
func (s *EntityStore) Create(_ context.Context, collection string, doc ports.Document) (ports.Document, error) {
	id, _ := doc["id"].(string)
	if id == "" {
		return nil, apperrors.NewValidationError("document requires an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, exists := c[id]; exists {
		return nil, apperrors.NewConflictError(fmt.Sprintf("%s already exists", resourceName(collection)))
	}
	c[id] = copyDocument(doc)
	return copyDocument(doc), nil
}

// UpdateFields applies a partial patch to an existing document
func (s *EntityStore) UpdateFields(_ context.Context, collection, id string, patch ports.Document) (ports.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return nil, apperrors.NewNotFoundError(resourceName(collection))
	}
	for k, v := range patch {
		doc[k] = copyValue(v)
	}
	return copyDocument(doc), nil
}

// AtomicAddToSet inserts value into a string-set field only if absent.
// A named counter moves under the same lock as the set write.
func (s *EntityStore) AtomicAddToSet(_ context.Context, collection, id, field, value, counter string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return false, nil
	}
	members := toStringSlice(doc[field])
	for _, m := range members {
		if m == value {
			return false, nil
		}
	}
	doc[field] = append(members, value)
	if counter != "" {
		doc[counter] = toInt64(doc[counter]) + 1
	}
	return true, nil
}

// AtomicRemoveFromSet removes value from a string-set field. A named
// counter moves under the same lock as the set write.
func (s *EntityStore) AtomicRemoveFromSet(_ context.Context, collection, id, field, value, counter string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return false, nil
	}
	members := toStringSlice(doc[field])
	for i, m := range members {
		if m == value {
			doc[field] = append(members[:i], members[i+1:]...)
			if counter != "" {
				doc[counter] = toInt64(doc[counter]) - 1
			}
			return true, nil
		}
	}
	return false, nil
}

// AtomicIncrementAndAddToSet bumps counter and merges value into the set in
// one step. The counter moves even when the value is already a member.
func (s *EntityStore) AtomicIncrementAndAddToSet(_ context.Context, collection, id, counter, field, value string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return 0, apperrors.NewNotFoundError(resourceName(collection))
	}

	members := toStringSlice(doc[field])
	present := false
	for _, m := range members {
		if m == value {
			present = true
			break
		}
	}
	if !present {
		doc[field] = append(members, value)
	}

	next := toInt64(doc[counter]) + 1
	doc[counter] = next
	return next, nil
}

// AtomicIncrement adjusts a numeric field and returns the new value.
// Without a floor the document is created on first increment.
func (s *EntityStore) AtomicIncrement(_ context.Context, collection, id, field string, delta int, floor *int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	doc, ok := c[id]
	if !ok {
		if floor != nil {
			return 0, apperrors.NewNotFoundError(resourceName(collection))
		}
		doc = ports.Document{"id": id}
		c[id] = doc
	}

	current := toInt64(doc[field])
	next := current + int64(delta)
	if floor != nil && next < int64(*floor) {
		return current, nil
	}
	doc[field] = next
	return next, nil
}

// AtomicAppendToList appends a value to a list field. A named counter is
// bumped under the same lock as the append.
func (s *EntityStore) AtomicAppendToList(_ context.Context, collection, id, field string, value interface{}, counter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return apperrors.NewNotFoundError(resourceName(collection))
	}

	switch list := doc[field].(type) {
	case nil:
		doc[field] = []interface{}{copyValue(value)}
	case []interface{}:
		doc[field] = append(list, copyValue(value))
	case []ports.Document:
		out := make([]interface{}, 0, len(list)+1)
		for _, d := range list {
			out = append(out, d)
		}
		doc[field] = append(out, copyValue(value))
	default:
		return apperrors.NewInternalError(fmt.Sprintf("field %q is not a list", field))
	}
	if counter != "" {
		doc[counter] = toInt64(doc[counter]) + 1
	}
	return nil
}

// Query returns matching documents ordered by sort within the page window
func (s *EntityStore) Query(_ context.Context, collection string, filter ports.Filter, sortBy ports.Sort, page ports.Page) ([]ports.Document, error) {
	s.mu.RLock()
	matched := s.match(collection, filter)
	s.mu.RUnlock()

	if sortBy.Field != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			less := compareValues(matched[i][sortBy.Field], matched[j][sortBy.Field]) < 0
			if sortBy.Ascending {
				return less
			}
			return !less
		})
	}

	if page.Offset >= len(matched) {
		return []ports.Document{}, nil
	}
	matched = matched[page.Offset:]
	if page.Limit > 0 && page.Limit < len(matched) {
		matched = matched[:page.Limit]
	}
	return matched, nil
}

// Count returns the number of documents matching the filter
func (s *EntityStore) Count(_ context.Context, collection string, filter ports.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.match(collection, filter)), nil
}

func (s *EntityStore) match(collection string, filter ports.Filter) []ports.Document {
	var matched []ports.Document
	for _, doc := range s.data[collection] {
		ok := true
		for field, want := range filter {
			if !valuesEqual(doc[field], want) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, copyDocument(doc))
		}
	}
	return matched
}

func toStringSlice(v interface{}) []string {
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

func toInt64(v interface{}) int64 {
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

func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch bv := b.(type) {
	case string:
		av, ok := a.(string)
		return ok && av == bv
	case bool:
		av, ok := a.(bool)
		return ok && av == bv
	case int, int64, float64:
		return toInt64(a) == toInt64(b)
	default:
		return false
	}
}

func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	default:
		an, bn := toInt64(a), toInt64(b)
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
}
