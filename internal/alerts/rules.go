// Package alerts derives notifications from a session snapshot.
//
// Each concern is a Rule strategy; the Evaluator runs all of them over the
// same snapshot so every alert reflects one consistent state.
package alerts

import (
	"fmt"
	"sort"
	"time"

	"trackit/internal/core"
	"trackit/internal/format"
	"trackit/internal/state"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Alert is one notification about a session.
type Alert struct {
	Kind     string
	RecordID string
	Severity Severity
	Message  string
}

// Key identifies an alert for de-duplication.
func (a Alert) Key(sessionID string) string {
	return fmt.Sprintf("%s|%s|%s|%s", sessionID, a.Kind, a.RecordID, a.Severity)
}

// Rule inspects a snapshot and reports the alerts it finds.
type Rule interface {
	Name() string
	Evaluate(st state.State, now time.Time) []Alert
}

// HealthRule flags fair and poor financial health.
type HealthRule struct{}

func (HealthRule) Name() string { return "health" }

func (HealthRule) Evaluate(st state.State, _ time.Time) []Alert {
	// Nothing recorded yet
	if st.Summary.TotalIncome == 0 && st.Summary.TotalExpenses == 0 {
		return nil
	}
	var sev Severity
	switch st.Health.Status {
	case core.HealthPoor:
		sev = SeverityCritical
	case core.HealthFair:
		sev = SeverityWarning
	default:
		return nil
	}
	return []Alert{{
		Kind:     "health",
		Severity: sev,
		Message:  fmt.Sprintf("Financial health is %s (score %d/100)", st.Health.Status, st.Health.Score),
	}}
}

// BudgetRule flags budget use from the warning threshold up.
type BudgetRule struct{}

func (BudgetRule) Name() string { return "budget" }

func (BudgetRule) Evaluate(st state.State, _ time.Time) []Alert {
	u := st.Summary.BudgetUtilization
	switch {
	case u > core.BudgetExceededThreshold:
		return []Alert{{Kind: "budget", Severity: SeverityCritical,
			Message: fmt.Sprintf("Budget exceeded: %s of %s used", format.Percentage(u), format.Currency(st.Summary.MonthlyBudget))}}
	case u > core.BudgetWarningThreshold:
		return []Alert{{Kind: "budget", Severity: SeverityWarning,
			Message: fmt.Sprintf("Budget nearly used: %s of %s", format.Percentage(u), format.Currency(st.Summary.MonthlyBudget))}}
	}
	return nil
}

// CardUtilizationRule flags active cards at or above the utilization
// warning level.
type CardUtilizationRule struct{}

func (CardUtilizationRule) Name() string { return "card_utilization" }

func (CardUtilizationRule) Evaluate(st state.State, _ time.Time) []Alert {
	var out []Alert
	for _, c := range st.CreditCards {
		if !c.IsActive {
			continue
		}
		if u := c.Utilization(); u >= core.UtilizationWarning {
			sev := SeverityWarning
			if u >= 100 {
				sev = SeverityCritical
			}
			out = append(out, Alert{Kind: "card_utilization", RecordID: c.ID, Severity: sev,
				Message: fmt.Sprintf("%s is at %s of its %s limit", c.Name, format.Percentage(u), format.Currency(c.Limit))})
		}
	}
	return out
}

// CardDueRule reminds about payment due and cut-off dates of active credit
// cards with a balance, within Within days.
type CardDueRule struct {
	Within int
}

func (CardDueRule) Name() string { return "card_due" }

func (r CardDueRule) Evaluate(st state.State, now time.Time) []Alert {
	var out []Alert
	for _, c := range st.CreditCards {
		if !c.IsActive || c.Type != core.CardCredit || c.CurrentBalance <= 0 {
			continue
		}
		if d := core.DaysUntilDay(c.DueDate, now); c.DueDate > 0 && d <= r.Within {
			out = append(out, Alert{Kind: "card_due", RecordID: c.ID, Severity: SeverityWarning,
				Message: fmt.Sprintf("%s payment of %s due in %s", c.Name, format.CurrencyPrecise(c.CurrentBalance), days(d))})
		}
		if d := core.DaysUntilDay(c.CutOffDate, now); c.CutOffDate > 0 && d <= r.Within {
			out = append(out, Alert{Kind: "card_cutoff", RecordID: c.ID, Severity: SeverityInfo,
				Message: fmt.Sprintf("%s statement closes in %s", c.Name, days(d))})
		}
	}
	return out
}

// GoalRule reports completed goals and active goals past their target date.
type GoalRule struct{}

func (GoalRule) Name() string { return "goals" }

func (GoalRule) Evaluate(st state.State, now time.Time) []Alert {
	var out []Alert
	for _, snap := range core.NewGoalPortfolio(st.FinancialGoals, now).Goals {
		switch {
		case snap.Status == core.GoalCompleted:
			out = append(out, Alert{Kind: "goal_completed", RecordID: snap.ID, Severity: SeverityInfo,
				Message: fmt.Sprintf("Goal %q reached %s", snap.Name, format.Currency(snap.TargetAmount))})
		case snap.Overdue:
			out = append(out, Alert{Kind: "goal_overdue", RecordID: snap.ID, Severity: SeverityWarning,
				Message: fmt.Sprintf("Goal %q passed its target date %s with %s to go", snap.Name, format.Date(snap.TargetDate), format.Currency(snap.Remaining))})
		}
	}
	return out
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// Evaluator runs a fixed set of rules.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator returns an evaluator with every built-in rule. dueWithin is
// the reminder window for card dates, in days.
func NewEvaluator(dueWithin int) *Evaluator {
	return NewEvaluatorWithRules(
		HealthRule{},
		BudgetRule{},
		CardUtilizationRule{},
		CardDueRule{Within: dueWithin},
		GoalRule{},
	)
}

func NewEvaluatorWithRules(rules ...Rule) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate returns the alerts for st, most severe first.
func (e *Evaluator) Evaluate(st state.State, now time.Time) []Alert {
	var out []Alert
	for _, r := range e.rules {
		out = append(out, r.Evaluate(st, now)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Severity > out[j].Severity })
	return out
}
