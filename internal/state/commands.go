package state

import "trackit/internal/core"

// Command is one requested change to a State. The set of commands is
// closed: only the types in this file implement it.
type Command interface {
	Kind() string
	command()
}

type (
	AddIncome    struct{ Income core.Income }
	UpdateIncome struct{ Income core.Income }
	DeleteIncome struct{ ID string }

	AddExpense    struct{ Expense core.Expense }
	UpdateExpense struct{ Expense core.Expense }
	DeleteExpense struct{ ID string }

	AddCategory struct{ Category core.Category }

	AddCreditCard    struct{ Card core.CreditCard }
	UpdateCreditCard struct{ Card core.CreditCard }
	DeleteCreditCard struct{ ID string }

	AddCardTransaction    struct{ Transaction core.CardTransaction }
	UpdateCardTransaction struct{ Transaction core.CardTransaction }
	DeleteCardTransaction struct{ ID string }

	AddFinancialGoal    struct{ Goal core.FinancialGoal }
	UpdateFinancialGoal struct{ Goal core.FinancialGoal }
	DeleteFinancialGoal struct{ ID string }

	AddGoalContribution    struct{ Contribution core.GoalContribution }
	UpdateGoalContribution struct{ Contribution core.GoalContribution }
	DeleteGoalContribution struct{ ID string }

	CalculateGoalProgress struct{ GoalID string }
)

func (AddIncome) Kind() string              { return "income.add" }
func (UpdateIncome) Kind() string           { return "income.update" }
func (DeleteIncome) Kind() string           { return "income.delete" }
func (AddExpense) Kind() string             { return "expense.add" }
func (UpdateExpense) Kind() string          { return "expense.update" }
func (DeleteExpense) Kind() string          { return "expense.delete" }
func (AddCategory) Kind() string            { return "category.add" }
func (AddCreditCard) Kind() string          { return "card.add" }
func (UpdateCreditCard) Kind() string       { return "card.update" }
func (DeleteCreditCard) Kind() string       { return "card.delete" }
func (AddCardTransaction) Kind() string     { return "card_transaction.add" }
func (UpdateCardTransaction) Kind() string  { return "card_transaction.update" }
func (DeleteCardTransaction) Kind() string  { return "card_transaction.delete" }
func (AddFinancialGoal) Kind() string       { return "goal.add" }
func (UpdateFinancialGoal) Kind() string    { return "goal.update" }
func (DeleteFinancialGoal) Kind() string    { return "goal.delete" }
func (AddGoalContribution) Kind() string    { return "goal_contribution.add" }
func (UpdateGoalContribution) Kind() string { return "goal_contribution.update" }
func (DeleteGoalContribution) Kind() string { return "goal_contribution.delete" }
func (CalculateGoalProgress) Kind() string  { return "goal.progress" }

func (AddIncome) command()              {}
func (UpdateIncome) command()           {}
func (DeleteIncome) command()           {}
func (AddExpense) command()             {}
func (UpdateExpense) command()          {}
func (DeleteExpense) command()          {}
func (AddCategory) command()            {}
func (AddCreditCard) command()          {}
func (UpdateCreditCard) command()       {}
func (DeleteCreditCard) command()       {}
func (AddCardTransaction) command()     {}
func (UpdateCardTransaction) command()  {}
func (DeleteCardTransaction) command()  {}
func (AddFinancialGoal) command()       {}
func (UpdateFinancialGoal) command()    {}
func (DeleteFinancialGoal) command()    {}
func (AddGoalContribution) command()    {}
func (UpdateGoalContribution) command() {}
func (DeleteGoalContribution) command() {}
func (CalculateGoalProgress) command()  {}

// TargetID returns the id of the record a command is about.
func TargetID(cmd Command) string {
	switch c := cmd.(type) {
	case AddIncome:
		return c.Income.ID
	case UpdateIncome:
		return c.Income.ID
	case DeleteIncome:
		return c.ID
	case AddExpense:
		return c.Expense.ID
	case UpdateExpense:
		return c.Expense.ID
	case DeleteExpense:
		return c.ID
	case AddCategory:
		return c.Category.ID
	case AddCreditCard:
		return c.Card.ID
	case UpdateCreditCard:
		return c.Card.ID
	case DeleteCreditCard:
		return c.ID
	case AddCardTransaction:
		return c.Transaction.ID
	case UpdateCardTransaction:
		return c.Transaction.ID
	case DeleteCardTransaction:
		return c.ID
	case AddFinancialGoal:
		return c.Goal.ID
	case UpdateFinancialGoal:
		return c.Goal.ID
	case DeleteFinancialGoal:
		return c.ID
	case AddGoalContribution:
		return c.Contribution.ID
	case UpdateGoalContribution:
		return c.Contribution.ID
	case DeleteGoalContribution:
		return c.ID
	case CalculateGoalProgress:
		return c.GoalID
	}
	return ""
}
