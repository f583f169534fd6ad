package state

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"trackit/internal/core"
)

// ErrIDConflict is returned when a generated id is empty or already used.
var ErrIDConflict = errors.New("record id already in use")

// IDGenerator issues record ids.
type IDGenerator interface {
	NewID() string
}

// ULIDGenerator issues lexically sortable ids that increase monotonically
// within the process, even inside the same millisecond.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

func (g *ULIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// CommitHook is called with the next state before it becomes visible.
// Returning an error aborts the transition.
type CommitHook func(ctx context.Context, next State, cmd Command) error

// Listener is told about every effective transition after it became
// visible. It runs outside the store lock.
type Listener func(ctx context.Context, next State, cmd Command)

// Store owns the state of one session. Every transition runs under a single
// mutex, together with the derived recomputation and the commit hook, so a
// reader never sees a half-applied change.
type Store struct {
	mu    sync.Mutex
	state State
	ids   IDGenerator
	hook  CommitHook

	listeners []Listener
}

type Option func(*Store)

// WithCommitHook installs a hook that runs inside every effective transition.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.hook = hook }
}

// WithListener registers l for effective transitions.
func WithListener(l Listener) Option {
	return func(s *Store) { s.listeners = append(s.listeners, l) }
}

// WithIDGenerator replaces the default ULID generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(s *Store) { s.ids = ids }
}

// NewStore wraps initial, recomputing every derived value first so a loaded
// snapshot can never carry a stale summary.
func NewStore(initial State, opts ...Option) *Store {
	s := &Store{
		state: initial.Recompute(),
		ids:   NewULIDGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Version returns the current state version.
func (s *Store) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Version
}

// Dispatch applies cmd. It returns the resulting state and whether it
// changed. When the commit hook fails the state is left as it was.
func (s *Store) Dispatch(ctx context.Context, cmd Command) (State, bool, error) {
	s.mu.Lock()
	next, changed, err := s.dispatchLocked(ctx, cmd)
	s.mu.Unlock()
	if changed {
		s.notify(ctx, next, cmd)
	}
	return next, changed, err
}

func (s *Store) notify(ctx context.Context, next State, cmd Command) {
	for _, l := range s.listeners {
		l(ctx, next, cmd)
	}
}

func (s *Store) dispatchLocked(ctx context.Context, cmd Command) (State, bool, error) {
	next, changed := Apply(s.state, cmd)
	if !changed {
		return s.state.Clone(), false, nil
	}
	if s.hook != nil {
		if err := s.hook(ctx, next, cmd); err != nil {
			return s.state.Clone(), false, fmt.Errorf("commit %s: %w", cmd.Kind(), err)
		}
	}
	s.state = next
	return next.Clone(), true, nil
}

// create assigns a fresh id under the lock and dispatches the command built
// from it.
func (s *Store) create(ctx context.Context, build func(id string) Command) (string, error) {
	s.mu.Lock()
	id := s.ids.NewID()
	cmd := build(id)
	next, changed, err := s.dispatchLocked(ctx, cmd)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if !changed {
		return "", fmt.Errorf("%s %q: %w", cmd.Kind(), id, ErrIDConflict)
	}
	s.notify(ctx, next, cmd)
	return id, nil
}

func (s *Store) found(ctx context.Context, cmd Command) (bool, error) {
	_, changed, err := s.Dispatch(ctx, cmd)
	return changed, err
}

func (s *Store) AddIncome(ctx context.Context, in core.Income) (core.Income, error) {
	id, err := s.create(ctx, func(id string) Command { in.ID = id; return AddIncome{Income: in} })
	in.ID = id
	return in, err
}

// UpdateIncome replaces the income with the same id and reports whether it
// existed.
func (s *Store) UpdateIncome(ctx context.Context, in core.Income) (bool, error) {
	return s.found(ctx, UpdateIncome{Income: in})
}

func (s *Store) DeleteIncome(ctx context.Context, id string) (bool, error) {
	return s.found(ctx, DeleteIncome{ID: id})
}

func (s *Store) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	id, err := s.create(ctx, func(id string) Command { e.ID = id; return AddExpense{Expense: e} })
	e.ID = id
	return e, err
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (bool, error) {
	return s.found(ctx, UpdateExpense{Expense: e})
}

func (s *Store) DeleteExpense(ctx context.Context, id string) (bool, error) {
	return s.found(ctx, DeleteExpense{ID: id})
}

func (s *Store) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := s.create(ctx, func(id string) Command { c.ID = id; return AddCategory{Category: c} })
	c.ID = id
	return c, err
}

func (s *Store) AddCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	id, err := s.create(ctx, func(id string) Command { c.ID = id; return AddCreditCard{Card: c} })
	c.ID = id
	return c, err
}

func (s *Store) UpdateCreditCard(ctx context.Context, c core.CreditCard) (bool, error) {
	return s.found(ctx, UpdateCreditCard{Card: c})
}

// DeleteCreditCard removes the card together with its transactions.
func (s *Store) DeleteCreditCard(ctx context.Context, id string) (bool, error) {
	return s.found(ctx, DeleteCreditCard{ID: id})
}

func (s *Store) AddCardTransaction(ctx context.Context, t core.CardTransaction) (core.CardTransaction, error) {
	id, err := s.create(ctx, func(id string) Command { t.ID = id; return AddCardTransaction{Transaction: t} })
	t.ID = id
	return t, err
}

func (s *Store) UpdateCardTransaction(ctx context.Context, t core.CardTransaction) (bool, error) {
	return s.found(ctx, UpdateCardTransaction{Transaction: t})
}

func (s *Store) DeleteCardTransaction(ctx context.Context, id string) (bool, error) {
	return s.found(ctx, DeleteCardTransaction{ID: id})
}

// AddFinancialGoal stores the goal and returns it with its derived progress.
func (s *Store) AddFinancialGoal(ctx context.Context, g core.FinancialGoal) (core.FinancialGoal, error) {
	id, err := s.create(ctx, func(id string) Command { g.ID = id; return AddFinancialGoal{Goal: g} })
	if err != nil {
		return g, err
	}
	return s.goal(id, g), nil
}

func (s *Store) UpdateFinancialGoal(ctx context.Context, g core.FinancialGoal) (bool, error) {
	return s.found(ctx, UpdateFinancialGoal{Goal: g})
}

// DeleteFinancialGoal removes the goal together with its contributions.
func (s *Store) DeleteFinancialGoal(ctx context.Context, id string) (bool, error) {
	return s.found(ctx, DeleteFinancialGoal{ID: id})
}

func (s *Store) AddGoalContribution(ctx context.Context, c core.GoalContribution) (core.GoalContribution, error) {
	id, err := s.create(ctx, func(id string) Command { c.ID = id; return AddGoalContribution{Contribution: c} })
	c.ID = id
	return c, err
}

func (s *Store) UpdateGoalContribution(ctx context.Context, c core.GoalContribution) (bool, error) {
	return s.found(ctx, UpdateGoalContribution{Contribution: c})
}

func (s *Store) DeleteGoalContribution(ctx context.Context, id string) (bool, error) {
	return s.found(ctx, DeleteGoalContribution{ID: id})
}

// CalculateGoalProgress refreshes one goal on demand and returns it. The
// bool is false when the goal does not exist.
func (s *Store) CalculateGoalProgress(ctx context.Context, goalID string) (core.FinancialGoal, bool, error) {
	next, _, err := s.Dispatch(ctx, CalculateGoalProgress{GoalID: goalID})
	if err != nil {
		return core.FinancialGoal{}, false, err
	}
	g, ok := Find(next.FinancialGoals, goalID)
	return g, ok, nil
}

func (s *Store) goal(id string, fallback core.FinancialGoal) core.FinancialGoal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := Find(s.state.FinancialGoals, id); ok {
		return g
	}
	return fallback
}
