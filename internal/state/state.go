// Package state holds the financial state of one session and the pure
// transition function that moves it forward.
package state

import (
	"trackit/internal/core"
)

// State is the complete persisted snapshot of a session. Summary and Health
// are derived from Incomes and Expenses and are never written directly.
type State struct {
	Version           int64                   `json:"version"`
	Incomes           []core.Income           `json:"incomes"`
	Expenses          []core.Expense          `json:"expenses"`
	Categories        []core.Category         `json:"categories"`
	Summary           core.FinancialSummary   `json:"summary"`
	Health            core.FinancialHealth    `json:"health"`
	CreditCards       []core.CreditCard       `json:"creditCards"`
	CardTransactions  []core.CardTransaction  `json:"cardTransactions"`
	FinancialGoals    []core.FinancialGoal    `json:"financialGoals"`
	GoalContributions []core.GoalContribution `json:"goalContributions"`
}

// Record is anything stored in a collection under a unique id.
type Record interface {
	RecordID() string
}

// SeedCategories returns the categories every new session starts with.
func SeedCategories() []core.Category {
	return []core.Category{
		{ID: "1", Name: "Salary", Type: core.CategoryIncome, Color: "#10B981", Icon: "💰"},
		{ID: "2", Name: "Freelance", Type: core.CategoryIncome, Color: "#3B82F6", Icon: "💼"},
		{ID: "3", Name: "Investments", Type: core.CategoryIncome, Color: "#8B5CF6", Icon: "📈"},
		{ID: "4", Name: "Housing", Type: core.CategoryExpense, Color: "#EF4444", Icon: "🏠"},
		{ID: "5", Name: "Food", Type: core.CategoryExpense, Color: "#F59E0B", Icon: "🍽️"},
		{ID: "6", Name: "Transport", Type: core.CategoryExpense, Color: "#06B6D4", Icon: "🚗"},
		{ID: "7", Name: "Entertainment", Type: core.CategoryExpense, Color: "#EC4899", Icon: "🎮"},
		{ID: "8", Name: "Health", Type: core.CategoryExpense, Color: "#84CC16", Icon: "🏥"},
	}
}

// New returns the initial state of a fresh session.
func New() State {
	return State{Categories: SeedCategories()}.Recompute()
}

// Recompute derives summary, health and every goal's progress from the
// stored collections. Nil collections become empty ones.
func (s State) Recompute() State {
	s = s.Clone()
	s.Summary = core.CalculateSummary(s.Incomes, s.Expenses)
	s.Health = core.CalculateHealth(s.Summary)
	for i, g := range s.FinancialGoals {
		s.FinancialGoals[i] = core.CalculateGoalProgress(g, s.GoalContributions)
	}
	return s
}

// Clone returns a deep copy that shares no backing arrays with s.
func (s State) Clone() State {
	out := s
	out.Incomes = cloneSlice(s.Incomes)
	out.Expenses = cloneSlice(s.Expenses)
	out.Categories = cloneSlice(s.Categories)
	out.CreditCards = cloneSlice(s.CreditCards)
	out.CardTransactions = cloneSlice(s.CardTransactions)
	out.FinancialGoals = cloneSlice(s.FinancialGoals)
	out.GoalContributions = cloneSlice(s.GoalContributions)
	out.Health.Recommendations = cloneSlice(s.Health.Recommendations)
	return out
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Find returns the record with the given id.
func Find[T Record](items []T, id string) (T, bool) {
	for _, it := range items {
		if it.RecordID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// TransactionsForCard returns the transactions that reference the card.
func (s State) TransactionsForCard(cardID string) []core.CardTransaction {
	return filter(s.CardTransactions, func(t core.CardTransaction) bool { return t.CardID == cardID })
}

// ContributionsForGoal returns the contributions that reference the goal.
func (s State) ContributionsForGoal(goalID string) []core.GoalContribution {
	return filter(s.GoalContributions, func(c core.GoalContribution) bool { return c.GoalID == goalID })
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// appendRecord returns a new slice with item at the end. Items with an
// empty id or an id already in items are refused.
func appendRecord[T Record](items []T, item T) ([]T, bool) {
	id := item.RecordID()
	if id == "" {
		return items, false
	}
	if _, dup := Find(items, id); dup {
		return items, false
	}
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, item), true
}

// replaceRecord swaps the record with the same id. The input is untouched.
func replaceRecord[T Record](items []T, item T) ([]T, bool) {
	for i, it := range items {
		if it.RecordID() == item.RecordID() {
			out := cloneSlice(items)
			out[i] = item
			return out, true
		}
	}
	return items, false
}

// removeWhere drops every matching record. The input is untouched.
func removeWhere[T any](items []T, drop func(T) bool) ([]T, bool) {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !drop(it) {
			out = append(out, it)
		}
	}
	if len(out) == len(items) {
		return items, false
	}
	return out, true
}

func removeRecord[T Record](items []T, id string) ([]T, bool) {
	return removeWhere(items, func(it T) bool { return it.RecordID() == id })
}
