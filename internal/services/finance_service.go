// Package services coordinates session state with persistence, change
// notifications and the cached dashboard read models.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"trackit/internal/amqp"
	"trackit/internal/cache"
	"trackit/internal/core"
	"trackit/internal/format"
	"trackit/internal/log"
	"trackit/internal/session"
	"trackit/internal/state"
)

// Publisher sends change notifications. A nil Publisher disables them.
type Publisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
	Close() error
}

// FinanceService is the entry point for every session operation.
type FinanceService struct {
	sessions   *session.Manager
	publisher  Publisher
	dashboards *cache.LRUCache[any]
	logger     *log.Logger
	events     *log.StructuredLogger
	now        func() time.Time
}

func NewFinanceService(sessions *session.Manager, publisher Publisher, dashboards *cache.LRUCache[any], logger *log.Logger) *FinanceService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if dashboards == nil {
		dashboards = cache.NewLRUCache[any](256, 5*time.Minute)
	}
	s := &FinanceService{
		sessions:   sessions,
		publisher:  publisher,
		dashboards: dashboards,
		logger:     logger.WithComponent(log.ComponentFinance),
		now:        time.Now,
	}
	s.events = log.NewStructuredLogger(s.logger)
	sessions.OnChange(s.onChange)
	return s
}

// onChange publishes a change message for every effective transition.
// Publishing failures are logged and never undo the change.
func (s *FinanceService) onChange(ctx context.Context, sessionID string, next state.State, cmd state.Command) {
	recordID := state.TargetID(cmd)
	s.events.LogCommandApplied(ctx, sessionID, cmd.Kind(), recordID, next.Version)

	if s.publisher == nil {
		return
	}
	msg := amqp.NewChangeMessage(sessionID, cmd.Kind(), recordID, next.Version)
	if err := s.publisher.PublishChange(ctx, msg); err != nil {
		s.events.LogError(ctx, "Failed to publish change message", err, log.OpPublish,
			log.NewFields().WithCommand(sessionID, cmd.Kind(), recordID, next.Version))
	}
}

// CreateSession starts a new session and returns its id.
func (s *FinanceService) CreateSession(ctx context.Context) (string, error) {
	h, err := s.sessions.Create(ctx)
	if err != nil {
		return "", err
	}
	h.Release()
	return h.ID, nil
}

// DestroySession deletes a session and its cached dashboards.
func (s *FinanceService) DestroySession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return err
	}
	s.dashboards.DeletePrefix(sessionID + ":")
	return nil
}

// WithStore runs fn against the session's store while holding a handle.
func (s *FinanceService) WithStore(ctx context.Context, sessionID string, fn func(*state.Store) error) error {
	h, err := s.sessions.Open(ctx, sessionID)
	if err != nil {
		return err
	}
	defer h.Release()
	return fn(h.Store)
}

// Snapshot returns a copy of the session state.
func (s *FinanceService) Snapshot(ctx context.Context, sessionID string) (state.State, error) {
	var snap state.State
	err := s.WithStore(ctx, sessionID, func(st *state.Store) error {
		snap = st.Snapshot()
		return nil
	})
	return snap, err
}

// Dispatch applies cmd to the session.
func (s *FinanceService) Dispatch(ctx context.Context, sessionID string, cmd state.Command) (state.State, bool, error) {
	var (
		next    state.State
		changed bool
	)
	err := s.WithStore(ctx, sessionID, func(st *state.Store) error {
		var err error
		next, changed, err = st.Dispatch(ctx, cmd)
		return err
	})
	return next, changed, err
}

// Overview is the summary and health with display strings.
type Overview struct {
	Summary core.FinancialSummary `json:"summary"`
	Health  core.FinancialHealth  `json:"health"`
	Display OverviewDisplay       `json:"display"`
}

type OverviewDisplay struct {
	TotalIncome       string `json:"totalIncome"`
	TotalExpenses     string `json:"totalExpenses"`
	NetIncome         string `json:"netIncome"`
	FixedExpenses     string `json:"fixedExpenses"`
	VariableExpenses  string `json:"variableExpenses"`
	MonthlyBudget     string `json:"monthlyBudget"`
	SavingsRate       string `json:"savingsRate"`
	BudgetUtilization string `json:"budgetUtilization"`
	HealthScore       string `json:"healthScore"`
}

func NewOverview(st state.State) Overview {
	sum := st.Summary
	return Overview{
		Summary: sum,
		Health:  st.Health,
		Display: OverviewDisplay{
			TotalIncome:       format.Currency(sum.TotalIncome),
			TotalExpenses:     format.Currency(sum.TotalExpenses),
			NetIncome:         format.Currency(sum.NetIncome),
			FixedExpenses:     format.Currency(sum.FixedExpenses),
			VariableExpenses:  format.Currency(sum.VariableExpenses),
			MonthlyBudget:     format.Currency(sum.MonthlyBudget),
			SavingsRate:       format.Percentage(sum.SavingsRate),
			BudgetUtilization: format.Percentage(sum.BudgetUtilization),
			HealthScore:       strconv.Itoa(st.Health.Score) + "/100",
		},
	}
}

// CardDashboard returns the card portfolio, cached per state version and day.
func (s *FinanceService) CardDashboard(ctx context.Context, sessionID string) (core.CardPortfolio, error) {
	return dashboard(ctx, s, sessionID, "cards", func(st state.State, now time.Time) core.CardPortfolio {
		return core.NewCardPortfolio(st.CreditCards, st.CardTransactions, now)
	})
}

// GoalDashboard returns the goal portfolio, cached per state version and day.
func (s *FinanceService) GoalDashboard(ctx context.Context, sessionID string) (core.GoalPortfolio, error) {
	return dashboard(ctx, s, sessionID, "goals", func(st state.State, now time.Time) core.GoalPortfolio {
		return core.NewGoalPortfolio(st.FinancialGoals, now)
	})
}

// OverviewDashboard returns the formatted summary and health.
func (s *FinanceService) OverviewDashboard(ctx context.Context, sessionID string) (Overview, error) {
	return dashboard(ctx, s, sessionID, "overview", func(st state.State, _ time.Time) Overview {
		return NewOverview(st)
	})
}

func dashboard[T any](ctx context.Context, s *FinanceService, sessionID, name string, build func(state.State, time.Time) T) (T, error) {
	var zero T
	snap, err := s.Snapshot(ctx, sessionID)
	if err != nil {
		return zero, err
	}
	now := s.now()
	key := fmt.Sprintf("%s:%d:%s:%s", sessionID, snap.Version, name, now.Format(core.DateLayout))

	v, err := s.dashboards.GetOrSet(key, func() (any, error) {
		return build(snap, now), nil
	})
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, errors.New("dashboard cache holds unexpected type")
	}
	return out, nil
}

// SavingsPlan projects a goal's completion. A positive monthly overrides the
// goal's planned contribution. The bool is false when the goal is unknown.
func (s *FinanceService) SavingsPlan(ctx context.Context, sessionID, goalID string, monthly float64) (core.SavingsPlan, bool, error) {
	snap, err := s.Snapshot(ctx, sessionID)
	if err != nil {
		return core.SavingsPlan{}, false, err
	}
	g, ok := state.Find(snap.FinancialGoals, goalID)
	if !ok {
		return core.SavingsPlan{}, false, nil
	}
	return core.PlanSavings(g, monthly, s.now()), true, nil
}

// Close releases the publisher.
func (s *FinanceService) Close() error {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
