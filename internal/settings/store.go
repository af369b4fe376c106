// Package settings holds the per-user auto-code settings in memory and
// moves them to and from durable storage as a single blob.
package settings

import "sort"

// Store maps users to their settings. Records are created lazily and are
// never deleted. Store is not safe for concurrent use; it is owned by the
// host event loop.
type Store struct {
	users map[UserID]*Settings
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{users: make(map[UserID]*Settings)}
}

// Get returns the settings for id, or nil if none exist yet.
func (s *Store) Get(id UserID) *Settings {
	return s.users[id]
}

// GetOrCreate returns the settings for id, creating a default record on
// first touch.
func (s *Store) GetOrCreate(id UserID) *Settings {
	st, ok := s.users[id]
	if !ok {
		st = &Settings{}
		s.users[id] = st
	}
	return st
}

// Len returns the number of users with settings.
func (s *Store) Len() int {
	return len(s.users)
}

// IDs returns every user with settings in a stable order.
func (s *Store) IDs() []UserID {
	ids := make([]UserID, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each calls fn for every user in ID order.
func (s *Store) Each(fn func(id UserID, st *Settings)) {
	for _, id := range s.IDs() {
		fn(id, s.users[id])
	}
}

// Snapshot returns a deep copy suitable for handing to a persister.
func (s *Store) Snapshot() map[UserID]Settings {
	out := make(map[UserID]Settings, len(s.users))
	for id, st := range s.users {
		out[id] = *st
	}
	return out
}

// Replace discards the current contents and loads data.
func (s *Store) Replace(data map[UserID]Settings) {
	s.users = make(map[UserID]*Settings, len(data))
	for id, st := range data {
		st := st
		s.users[id] = &st
	}
}
