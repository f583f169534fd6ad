// Package snapshot defines how session state is persisted.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"trackit/internal/state"
)

var ErrInvalidSessionID = errors.New("invalid session id")

// ErrStaleVersion is returned by Save when the stored snapshot is already at
// the same or a newer version.
var ErrStaleVersion = errors.New("stale snapshot version")

// Store persists whole State snapshots keyed by session id.
type Store interface {
	// Load returns the stored state; the bool is false when none exists.
	Load(ctx context.Context, sessionID string) (state.State, bool, error)
	Save(ctx context.Context, sessionID string, s state.State) error
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// Encode serializes a snapshot.
func Encode(s state.State) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// Decode parses a snapshot written by Encode.
func Decode(data []byte) (state.State, error) {
	var s state.State
	if err := json.Unmarshal(data, &s); err != nil {
		return state.State{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// ValidSessionID reports whether id is safe to use as a storage key: 1 to
// 64 characters of letters, digits, dash or underscore.
func ValidSessionID(id string) bool {
	if len(id) == 0 || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
