package memory

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"trackit/internal/snapshot"
	"trackit/internal/state"
)

// Store keeps encoded snapshots in process memory. Snapshots are stored
// encoded so callers never share slices with the store.
type Store struct {
	mu    sync.Mutex
	items map[string][]byte
}

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// NewFromDir seeds the store from <session>.json files in base. Missing
// directories and unreadable files are skipped.
func NewFromDir(base string) *Store {
	s := New()
	entries, err := os.ReadDir(base)
	if err != nil {
		return s
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if !snapshot.ValidSessionID(id) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(base, name))
		if err != nil {
			continue
		}
		if _, err := snapshot.Decode(data); err != nil {
			continue
		}
		s.items[id] = data
	}
	return s
}

func (s *Store) Load(_ context.Context, sessionID string) (state.State, bool, error) {
	s.mu.Lock()
	data, ok := s.items[sessionID]
	s.mu.Unlock()
	if !ok {
		return state.State{}, false, nil
	}
	st, err := snapshot.Decode(data)
	if err != nil {
		return state.State{}, false, err
	}
	return st, true, nil
}

func (s *Store) Save(_ context.Context, sessionID string, st state.State) error {
	if !snapshot.ValidSessionID(sessionID) {
		return snapshot.ErrInvalidSessionID
	}
	data, err := snapshot.Encode(st)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sessionID] = data
	return nil
}

func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
	return nil
}

// List returns the stored session ids in sorted order.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
