// Package session keeps one state.Store per open session, loading it from
// the snapshot backend on first use and writing every transition back.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"trackit/internal/log"
	"trackit/internal/snapshot"
	"trackit/internal/state"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session destroyed")
)

type entry struct {
	id        string
	store     *state.Store
	refs      int
	lastUsed  time.Time
	destroyed atomic.Bool
}

// ChangeFunc observes effective transitions of any open session.
type ChangeFunc func(ctx context.Context, sessionID string, next state.State, cmd state.Command)

// Manager owns the table of open sessions.
type Manager struct {
	backend     snapshot.Store
	logger      *log.Logger
	idleTimeout time.Duration
	now         func() time.Time
	newID       func() string

	mu       sync.Mutex
	sessions map[string]*entry
	group    singleflight.Group
	onChange []ChangeFunc
}

type Option func(*Manager)

func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idleTimeout = d }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(backend snapshot.Store, opts ...Option) *Manager {
	m := &Manager{
		backend:     backend,
		idleTimeout: 30 * time.Minute,
		now:         time.Now,
		newID:       uuid.NewString,
		sessions:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.New(log.DefaultConfig())
	}
	m.logger = m.logger.WithComponent(log.ComponentSession)
	return m
}

// Handle is a counted reference to an open session. Release must be called
// exactly once.
type Handle struct {
	ID    string
	Store *state.Store

	m    *Manager
	e    *entry
	once sync.Once
}

func (h *Handle) Release() {
	h.once.Do(func() { h.m.release(h.e) })
}

// Create starts a session with a seeded empty state and persists it.
func (m *Manager) Create(ctx context.Context) (*Handle, error) {
	id := m.newID()
	initial := state.New()
	if err := m.backend.Save(ctx, id, initial); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	e := m.register(id, initial)
	m.mu.Lock()
	e.refs++
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Session created", log.FieldSessionID, id)
	return &Handle{ID: id, Store: e.store, m: m, e: e}, nil
}

// Open returns a handle for an existing session, loading it from the
// backend when it is not in memory. Concurrent opens of the same session
// share one load.
func (m *Manager) Open(ctx context.Context, id string) (*Handle, error) {
	if !snapshot.ValidSessionID(id) {
		return nil, snapshot.ErrInvalidSessionID
	}

	// A load registers the entry with a fresh timestamp, so it survives
	// until the retry below picks it up.
	for attempt := 0; attempt < 3; attempt++ {
		m.mu.Lock()
		if e, ok := m.sessions[id]; ok {
			e.refs++
			e.lastUsed = m.now()
			m.mu.Unlock()
			return &Handle{ID: id, Store: e.store, m: m, e: e}, nil
		}
		m.mu.Unlock()

		if _, err, _ := m.group.Do(id, func() (any, error) {
			return nil, m.load(ctx, id)
		}); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("open session %s: evicted while loading", id)
}

func (m *Manager) load(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return nil
	}

	st, found, err := m.backend.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load session %s: %w", id, err)
	}
	if !found {
		return ErrNotFound
	}
	m.register(id, st)
	m.logger.DebugContext(ctx, "Session loaded", log.FieldSessionID, id, log.FieldVersion, st.Version)
	return nil
}

func (m *Manager) register(id string, initial state.State) *entry {
	e := &entry{id: id}
	e.store = state.NewStore(initial,
		state.WithCommitHook(m.persist(e)),
		state.WithListener(func(ctx context.Context, next state.State, cmd state.Command) {
			m.notify(ctx, id, next, cmd)
		}),
	)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing
	}
	e.lastUsed = m.now()
	m.sessions[id] = e
	return e
}

// OnChange subscribes fn to every effective transition. Subscribers run
// after the change is persisted and visible.
func (m *Manager) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

func (m *Manager) notify(ctx context.Context, id string, next state.State, cmd state.Command) {
	m.mu.Lock()
	subs := append([]ChangeFunc(nil), m.onChange...)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(ctx, id, next, cmd)
	}
}

// persist writes every effective transition through to the backend before
// it becomes visible. When another writer got there first the entry is
// evicted, so the next Open reloads the newer snapshot.
func (m *Manager) persist(e *entry) state.CommitHook {
	return func(ctx context.Context, next state.State, cmd state.Command) error {
		if e.destroyed.Load() {
			return ErrClosed
		}
		err := m.backend.Save(ctx, e.id, next)
		if errors.Is(err, snapshot.ErrStaleVersion) {
			m.evict(e)
			m.logger.WarnContext(ctx, "Session changed elsewhere, evicted",
				log.FieldSessionID, e.id, log.FieldVersion, next.Version)
		}
		return err
	}
}

func (m *Manager) evict(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[e.id] == e {
		delete(m.sessions, e.id)
	}
}

func (m *Manager) release(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.refs > 0 {
		e.refs--
	}
	e.lastUsed = m.now()
}

// Destroy drops the session from memory and from the backend. Handles still
// held fail their next write with ErrClosed.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if !snapshot.ValidSessionID(id) {
		return snapshot.ErrInvalidSessionID
	}

	m.mu.Lock()
	e, inMemory := m.sessions[id]
	if inMemory {
		e.destroyed.Store(true)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !inMemory {
		if _, found, err := m.backend.Load(ctx, id); err != nil {
			return fmt.Errorf("destroy session: %w", err)
		} else if !found {
			return ErrNotFound
		}
	}
	if err := m.backend.Delete(ctx, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	m.logger.InfoContext(ctx, "Session destroyed", log.FieldSessionID, id)
	return nil
}

// Reap unloads sessions idle for longer than the idle timeout. Sessions
// with outstanding handles are never reaped. Their snapshots stay in the
// backend.
func (m *Manager) Reap() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.idleTimeout)
	reaped := 0
	for id, e := range m.sessions {
		if e.refs == 0 && e.lastUsed.Before(cutoff) {
			delete(m.sessions, id)
			reaped++
		}
	}
	if reaped > 0 {
		m.logger.Debug("Idle sessions unloaded", "count", reaped)
	}
	return reaped
}

// Run reaps idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reap()
		}
	}
}

// Loaded returns the ids of the sessions currently in memory.
func (m *Manager) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns every persisted session id.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.backend.List(ctx)
}
