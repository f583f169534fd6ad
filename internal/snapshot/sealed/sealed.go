// Package sealed stores each session snapshot as a passphrase-encrypted
// age file.
package sealed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"filippo.io/age"

	"trackit/internal/snapshot"
	"trackit/internal/state"
)

const (
	// ageHeader is the prefix of age-encrypted files
	ageHeader = "age-encryption.org"

	fileExt = ".age"

	// verifyFile holds verifyMagic encrypted with the store passphrase
	verifyFile  = ".sealed-verify"
	verifyMagic = `{"magic":"trackit-sealed-verify","version":1}`

	// DefaultWorkFactor is the scrypt cost used for new files.
	DefaultWorkFactor = 15
)

var ErrWrongPassphrase = errors.New("incorrect passphrase")

// Store writes one encrypted file per session under a base directory.
type Store struct {
	baseDir   string
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
	mu        sync.RWMutex
}

// Option tunes a Store.
type Option func(*Store)

// WithWorkFactor sets the scrypt work factor (log2 of N) for new files.
func WithWorkFactor(logN int) Option {
	return func(s *Store) { s.recipient.SetWorkFactor(logN) }
}

// Open prepares a store in baseDir. The first open writes a verification
// file; later opens check the passphrase against it.
func Open(baseDir, passphrase string, opts ...Option) (*Store, error) {
	if passphrase == "" {
		return nil, errors.New("sealed store requires a passphrase")
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("create recipient: %w", err)
	}
	recipient.SetWorkFactor(DefaultWorkFactor)

	s := &Store{baseDir: baseDir, identity: identity, recipient: recipient}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create sealed directory: %w", err)
	}
	if err := s.verify(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) verify() error {
	path := filepath.Join(s.baseDir, verifyFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		sealed, err := encryptData([]byte(verifyMagic), s.recipient)
		if err != nil {
			return fmt.Errorf("encrypt verification file: %w", err)
		}
		return atomicWrite(path, sealed, 0o600)
	}
	if err != nil {
		return fmt.Errorf("read verification file: %w", err)
	}
	plain, err := decryptData(data, s.identity)
	if err != nil || string(plain) != verifyMagic {
		return ErrWrongPassphrase
	}
	return nil
}

func (s *Store) path(sessionID string) (string, error) {
	if !snapshot.ValidSessionID(sessionID) {
		return "", snapshot.ErrInvalidSessionID
	}
	return filepath.Join(s.baseDir, sessionID+fileExt), nil
}

func (s *Store) Load(_ context.Context, sessionID string) (state.State, bool, error) {
	path, err := s.path(sessionID)
	if err != nil {
		return state.State{}, false, err
	}
	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return state.State{}, false, nil
	}
	if err != nil {
		return state.State{}, false, fmt.Errorf("read sealed snapshot: %w", err)
	}

	if isAgeEncrypted(data) {
		data, err = decryptData(data, s.identity)
		if err != nil {
			return state.State{}, false, fmt.Errorf("decrypt snapshot %s: %w", sessionID, err)
		}
	}
	st, err := snapshot.Decode(data)
	if err != nil {
		return state.State{}, false, err
	}
	return st, true, nil
}

func (s *Store) Save(_ context.Context, sessionID string, st state.State) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}
	plain, err := snapshot.Encode(st)
	if err != nil {
		return err
	}
	sealed, err := encryptData(plain, s.recipient)
	if err != nil {
		return fmt.Errorf("encrypt snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicWrite(path, sealed, 0o600)
}

func (s *Store) Delete(_ context.Context, sessionID string) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove sealed snapshot: %w", err)
	}
	return nil
}

func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list sealed snapshots: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func isAgeEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ageHeader))
}

// atomicWrite writes data to a file atomically using a temp file
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func encryptData(data []byte, recipient *age.ScryptRecipient) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decryptData(data []byte, identity *age.ScryptIdentity) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
