package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"finpal/internal/core"
	"finpal/internal/records"
)

type Store struct {
	mu    sync.Mutex
	items map[string]core.UserRecord
	now   func() time.Time
}

func New() *Store {
	return &Store{items: make(map[string]core.UserRecord), now: time.Now}
}

// Load returns a copy of the stored record.
func (s *Store) Load(_ context.Context, username string) (core.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[username]
	if !ok {
		return core.UserRecord{}, records.ErrNotFound
	}
	return rec.Clone(), nil
}

// Save validates and stores a copy of rec, stamping UpdatedAt.
func (s *Store) Save(_ context.Context, rec core.UserRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	rec = rec.Clone()
	rec.UpdatedAt = s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Username] = rec
	return nil
}

// Usernames lists stored users in sorted order.
func (s *Store) Usernames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for u := range s.items {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}
