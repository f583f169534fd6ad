package state

import "trackit/internal/core"

// Apply returns the state that results from running cmd against s and
// reports whether anything changed. s itself is never modified.
//
// Changes to incomes or expenses recompute the summary and then the health
// in the same call. Changes to goals or contributions recompute the
// progress of every goal they touch. Adds with an empty or already used id
// and updates or deletes of unknown ids return s unchanged.
func Apply(s State, cmd Command) (State, bool) {
	next := s
	var (
		changed    bool
		financials bool
		staleGoals []string
	)

	switch c := cmd.(type) {
	case AddIncome:
		next.Incomes, changed = appendRecord(s.Incomes, c.Income)
		financials = changed
	case UpdateIncome:
		next.Incomes, changed = replaceRecord(s.Incomes, c.Income)
		financials = changed
	case DeleteIncome:
		next.Incomes, changed = removeRecord(s.Incomes, c.ID)
		financials = changed

	case AddExpense:
		next.Expenses, changed = appendRecord(s.Expenses, c.Expense)
		financials = changed
	case UpdateExpense:
		next.Expenses, changed = replaceRecord(s.Expenses, c.Expense)
		financials = changed
	case DeleteExpense:
		next.Expenses, changed = removeRecord(s.Expenses, c.ID)
		financials = changed

	case AddCategory:
		next.Categories, changed = appendRecord(s.Categories, c.Category)

	case AddCreditCard:
		next.CreditCards, changed = appendRecord(s.CreditCards, c.Card)
	case UpdateCreditCard:
		next.CreditCards, changed = replaceRecord(s.CreditCards, c.Card)
	case DeleteCreditCard:
		var cardGone, txGone bool
		next.CreditCards, cardGone = removeRecord(s.CreditCards, c.ID)
		next.CardTransactions, txGone = removeWhere(s.CardTransactions, func(t core.CardTransaction) bool {
			return t.CardID == c.ID
		})
		changed = cardGone || txGone

	case AddCardTransaction:
		next.CardTransactions, changed = appendRecord(s.CardTransactions, c.Transaction)
	case UpdateCardTransaction:
		next.CardTransactions, changed = replaceRecord(s.CardTransactions, c.Transaction)
	case DeleteCardTransaction:
		next.CardTransactions, changed = removeRecord(s.CardTransactions, c.ID)

	case AddFinancialGoal:
		next.FinancialGoals, changed = appendRecord(s.FinancialGoals, c.Goal)
		if changed {
			staleGoals = []string{c.Goal.ID}
		}
	case UpdateFinancialGoal:
		next.FinancialGoals, changed = replaceRecord(s.FinancialGoals, c.Goal)
		staleGoals = []string{c.Goal.ID}
	case DeleteFinancialGoal:
		var goalGone, contribGone bool
		next.FinancialGoals, goalGone = removeRecord(s.FinancialGoals, c.ID)
		next.GoalContributions, contribGone = removeWhere(s.GoalContributions, func(gc core.GoalContribution) bool {
			return gc.GoalID == c.ID
		})
		changed = goalGone || contribGone

	case AddGoalContribution:
		next.GoalContributions, changed = appendRecord(s.GoalContributions, c.Contribution)
		if changed {
			staleGoals = []string{c.Contribution.GoalID}
		}
	case UpdateGoalContribution:
		if prev, ok := Find(s.GoalContributions, c.Contribution.ID); ok {
			staleGoals = []string{prev.GoalID, c.Contribution.GoalID}
		}
		next.GoalContributions, changed = replaceRecord(s.GoalContributions, c.Contribution)
	case DeleteGoalContribution:
		if prev, ok := Find(s.GoalContributions, c.ID); ok {
			staleGoals = []string{prev.GoalID}
		}
		next.GoalContributions, changed = removeRecord(s.GoalContributions, c.ID)

	case CalculateGoalProgress:
		staleGoals = []string{c.GoalID}
	}

	if len(staleGoals) > 0 {
		var progressed bool
		next.FinancialGoals, progressed = recomputeGoals(next.FinancialGoals, next.GoalContributions, staleGoals)
		changed = changed || progressed
	}

	if !changed {
		return s, false
	}

	if financials {
		next.Summary = core.CalculateSummary(next.Incomes, next.Expenses)
		next.Health = core.CalculateHealth(next.Summary)
	}
	next.Version = s.Version + 1
	return next, true
}

// recomputeGoals refreshes the progress of the listed goals and reports
// whether any of them actually moved.
func recomputeGoals(goals []core.FinancialGoal, contribs []core.GoalContribution, ids []string) ([]core.FinancialGoal, bool) {
	out := goals
	copied := false
	for i, g := range goals {
		if !contains(ids, g.ID) {
			continue
		}
		updated := core.CalculateGoalProgress(g, contribs)
		if updated == g {
			continue
		}
		if !copied {
			out = cloneSlice(goals)
			copied = true
		}
		out[i] = updated
	}
	return out, copied
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
