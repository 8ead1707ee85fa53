package user

import (
	"context"
	"sort"
	"sync"
)

// Store persists profiles keyed by email.
type Store interface {
	Get(ctx context.Context, email string) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	// Upsert merges fields into the profile, creating it when missing.
	Upsert(ctx context.Context, email string, fields Profile) (WriteResult, error)
	// Update merges fields into an existing profile. A missing profile
	// yields a zero WriteResult, not an error.
	Update(ctx context.Context, email string, fields Profile) (WriteResult, error)
}

// MemoryStore implements Store in memory. Used by tests and local runs
// without a database file.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Profile
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied profiles.
func NewMemoryStore(items ...Profile) *MemoryStore {
	s := &MemoryStore{items: make(map[string]Profile, len(items))}
	for _, item := range items {
		if email := item.Email(); email != "" {
			s.items[email] = item.Clone()
		}
	}
	return s
}

// Get looks up a profile by email.
func (s *MemoryStore) Get(_ context.Context, email string) (Profile, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[email]
	if !ok {
		return nil, ErrNotFound
	}
	return item.Clone(), nil
}

// List returns every profile ordered by email.
func (s *MemoryStore) List(_ context.Context) ([]Profile, error) {
	s.mu.RLock()
	out := make([]Profile, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Email() < out[j].Email() })
	return out, nil
}

// Upsert merges fields, creating the profile when it does not exist.
func (s *MemoryStore) Upsert(_ context.Context, email string, fields Profile) (WriteResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return WriteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[email]
	merged, changed := existing.Merge(email, fields)
	s.items[email] = merged
	if !ok {
		return WriteResult{UpsertedCount: 1, UpsertedID: email}, nil
	}
	return writeResult(changed), nil
}

// Update merges fields into an existing profile.
func (s *MemoryStore) Update(_ context.Context, email string, fields Profile) (WriteResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return WriteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[email]
	if !ok {
		return WriteResult{}, nil
	}
	merged, changed := existing.Merge(email, fields)
	s.items[email] = merged
	return writeResult(changed), nil
}

func writeResult(changed bool) WriteResult {
	result := WriteResult{MatchedCount: 1}
	if changed {
		result.ModifiedCount = 1
	}
	return result
}
