package valueobjects

import "sort"

// IDSet is a set of opaque identifiers backing a symmetric relation
// (followers, following, friends, pending requests, likedBy, ...).
// Membership is O(1); the wire/store representation is a deduplicated slice.
type IDSet struct {
	members map[string]struct{}
}

// NewIDSet creates a set from the given ids, dropping duplicates
func NewIDSet(ids ...string) IDSet {
	s := IDSet{members: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id != "" {
			s.members[id] = struct{}{}
		}
	}
	return s
}

// Contains reports membership
func (s IDSet) Contains(id string) bool {
	_, ok := s.members[id]
	return ok
}

// Add inserts an id and reports whether the set changed
func (s *IDSet) Add(id string) bool {
	if s.members == nil {
		s.members = make(map[string]struct{})
	}
	if _, ok := s.members[id]; ok {
		return false
	}
	s.members[id] = struct{}{}
	return true
}

// Remove deletes an id and reports whether the set changed
func (s *IDSet) Remove(id string) bool {
	if _, ok := s.members[id]; !ok {
		return false
	}
	delete(s.members, id)
	return true
}

// Len returns the set cardinality
func (s IDSet) Len() int {
	return len(s.members)
}

// Values returns the members in stable sorted order
func (s IDSet) Values() []string {
	out := make([]string, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
