package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the ISO layout every record date is stored in.
const DateLayout = "2006-01-02"

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyDaily   Frequency = "daily"
	FrequencyOneTime Frequency = "one-time"
)

const (
	ExpenseFixed    ExpenseType = "fixed"
	ExpenseVariable ExpenseType = "variable"
)

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

const (
	CardCredit CardType = "credit"
	CardDebit  CardType = "debit"
)

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionPayment  TransactionType = "payment"
	TransactionFee      TransactionType = "fee"
	TransactionInterest TransactionType = "interest"
)

const (
	GoalSavings    GoalCategory = "savings"
	GoalInvestment GoalCategory = "investment"
	GoalPurchase   GoalCategory = "purchase"
	GoalDebt       GoalCategory = "debt"
	GoalEmergency  GoalCategory = "emergency"
	GoalVacation   GoalCategory = "vacation"
	GoalEducation  GoalCategory = "education"
	GoalOther      GoalCategory = "other"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
	GoalCancelled GoalStatus = "cancelled"
)

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthFair      HealthStatus = "fair"
	HealthPoor      HealthStatus = "poor"
)

type (
	Frequency       string
	ExpenseType     string
	CategoryType    string
	CardType        string
	TransactionType string
	GoalCategory    string
	Priority        string
	GoalStatus      string
	HealthStatus    string

	Income struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Amount      float64   `json:"amount"`
		Frequency   Frequency `json:"frequency"`
		Category    string    `json:"category"`
		Date        string    `json:"date"`
		Description string    `json:"description,omitempty"`
	}

	Expense struct {
		ID          string      `json:"id"`
		Name        string      `json:"name"`
		Amount      float64     `json:"amount"`
		Type        ExpenseType `json:"type"`
		Category    string      `json:"category"`
		Date        string      `json:"date"`
		Description string      `json:"description,omitempty"`
		IsRecurring bool        `json:"isRecurring"`
		Frequency   Frequency   `json:"frequency,omitempty"` // only meaningful when IsRecurring
	}

	Category struct {
		ID    string       `json:"id"`
		Name  string       `json:"name"`
		Type  CategoryType `json:"type"`
		Color string       `json:"color"`
		Icon  string       `json:"icon"`
	}

	CreditCard struct {
		ID              string   `json:"id"`
		Name            string   `json:"name"`
		Bank            string   `json:"bank"`
		Type            CardType `json:"type"`
		Limit           float64  `json:"limit"`
		CurrentBalance  float64  `json:"currentBalance"`
		AvailableCredit float64  `json:"availableCredit"`
		CutOffDate      int      `json:"cutOffDate"`
		DueDate         int      `json:"dueDate"`
		InterestRate    float64  `json:"interestRate"`
		Color           string   `json:"color"`
		Icon            string   `json:"icon"`
		IsActive        bool     `json:"isActive"`
		Description     string   `json:"description,omitempty"`
	}

	CardTransaction struct {
		ID                 string          `json:"id"`
		CardID             string          `json:"cardId"`
		Description        string          `json:"description"`
		Amount             float64         `json:"amount"`
		Type               TransactionType `json:"type"`
		Date               string          `json:"date"`
		Category           string          `json:"category"`
		Installments       int             `json:"installments,omitempty"`
		CurrentInstallment int             `json:"currentInstallment,omitempty"`
	}

	FinancialGoal struct {
		ID                  string       `json:"id"`
		Name                string       `json:"name"`
		Description         string       `json:"description,omitempty"`
		TargetAmount        float64      `json:"targetAmount"`
		CurrentAmount       float64      `json:"currentAmount"`
		StartDate           string       `json:"startDate"`
		TargetDate          string       `json:"targetDate"`
		Category            GoalCategory `json:"category"`
		Priority            Priority     `json:"priority"`
		Status              GoalStatus   `json:"status"`
		Color               string       `json:"color"`
		Icon                string       `json:"icon"`
		MonthlyContribution float64      `json:"monthlyContribution,omitempty"`
		Progress            float64      `json:"progress"`
	}

	GoalContribution struct {
		ID          string  `json:"id"`
		GoalID      string  `json:"goalId"`
		Amount      float64 `json:"amount"`
		Date        string  `json:"date"`
		Description string  `json:"description,omitempty"`
	}

	FinancialSummary struct {
		TotalIncome       float64 `json:"totalIncome"`
		TotalExpenses     float64 `json:"totalExpenses"`
		NetIncome         float64 `json:"netIncome"`
		SavingsRate       float64 `json:"savingsRate"`
		FixedExpenses     float64 `json:"fixedExpenses"`
		VariableExpenses  float64 `json:"variableExpenses"`
		MonthlyBudget     float64 `json:"monthlyBudget"`
		BudgetUtilization float64 `json:"budgetUtilization"`
	}

	FinancialHealth struct {
		Score           int          `json:"score"`
		Status          HealthStatus `json:"status"`
		Recommendations []string     `json:"recommendations"`
	}
)

var (
	ErrEmptyName              = errors.New("empty name")
	ErrEmptyDescription       = errors.New("empty description")
	ErrNegativeAmount         = errors.New("amount cannot be negative")
	ErrInvalidTarget          = errors.New("target amount must be greater than zero")
	ErrInvalidDate            = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidFrequency       = errors.New("invalid frequency")
	ErrInvalidExpenseType     = errors.New("invalid expense type")
	ErrInvalidCategoryType    = errors.New("invalid category type")
	ErrInvalidCardType        = errors.New("invalid card type")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidGoalCategory    = errors.New("invalid goal category")
	ErrInvalidPriority        = errors.New("invalid priority")
	ErrInvalidGoalStatus      = errors.New("invalid goal status")
	ErrInvalidDayOfMonth      = errors.New("day of month must be between 1 and 31")
	ErrInvalidInstallments    = errors.New("current installment exceeds installments")
	ErrMissingReference       = errors.New("missing parent reference")
)

func (i Income) RecordID() string           { return i.ID }
func (e Expense) RecordID() string          { return e.ID }
func (c Category) RecordID() string         { return c.ID }
func (c CreditCard) RecordID() string       { return c.ID }
func (t CardTransaction) RecordID() string  { return t.ID }
func (g FinancialGoal) RecordID() string    { return g.ID }
func (c GoalContribution) RecordID() string { return c.ID }

// ParseDate parses an ISO date. Empty or malformed input reports false.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func validateDate(s string, required bool) error {
	if strings.TrimSpace(s) == "" {
		if required {
			return ErrInvalidDate
		}
		return nil
	}
	if _, ok := ParseDate(s); !ok {
		return ErrInvalidDate
	}
	return nil
}

func validateName(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyName
	}
	if len(s) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func (f Frequency) validForIncome() bool {
	switch f {
	case FrequencyMonthly, FrequencyWeekly, FrequencyDaily, FrequencyOneTime:
		return true
	}
	return false
}

func (f Frequency) validForExpense() bool {
	switch f {
	case "", FrequencyMonthly, FrequencyWeekly, FrequencyDaily:
		return true
	}
	return false
}

func (i Income) Validate() error {
	if err := validateName(i.Name); err != nil {
		return err
	}
	if i.Amount < 0 {
		return ErrNegativeAmount
	}
	if !i.Frequency.validForIncome() {
		return ErrInvalidFrequency
	}
	return validateDate(i.Date, true)
}

func (e Expense) Validate() error {
	if err := validateName(e.Name); err != nil {
		return err
	}
	if e.Amount < 0 {
		return ErrNegativeAmount
	}
	switch e.Type {
	case ExpenseFixed, ExpenseVariable:
	default:
		return ErrInvalidExpenseType
	}
	if !e.Frequency.validForExpense() {
		return ErrInvalidFrequency
	}
	return validateDate(e.Date, true)
}

func (c Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	switch c.Type {
	case CategoryIncome, CategoryExpense:
		return nil
	default:
		return ErrInvalidCategoryType
	}
}

func (c CreditCard) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	switch c.Type {
	case CardCredit, CardDebit:
	default:
		return ErrInvalidCardType
	}
	if c.Limit < 0 || c.CurrentBalance < 0 || c.InterestRate < 0 {
		return ErrNegativeAmount
	}
	if c.CutOffDate < 1 || c.CutOffDate > 31 || c.DueDate < 1 || c.DueDate > 31 {
		return ErrInvalidDayOfMonth
	}
	return nil
}

func (t CardTransaction) Validate() error {
	if strings.TrimSpace(t.CardID) == "" {
		return ErrMissingReference
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.Amount < 0 {
		return ErrNegativeAmount
	}
	switch t.Type {
	case TransactionPurchase, TransactionPayment, TransactionFee, TransactionInterest:
	default:
		return ErrInvalidTransactionType
	}
	if t.Installments > 0 && t.CurrentInstallment > t.Installments {
		return ErrInvalidInstallments
	}
	return validateDate(t.Date, true)
}

func (g FinancialGoal) Validate() error {
	if err := validateName(g.Name); err != nil {
		return err
	}
	if g.TargetAmount <= 0 {
		return ErrInvalidTarget
	}
	if g.MonthlyContribution < 0 {
		return ErrNegativeAmount
	}
	switch g.Category {
	case GoalSavings, GoalInvestment, GoalPurchase, GoalDebt, GoalEmergency, GoalVacation, GoalEducation, GoalOther:
	default:
		return ErrInvalidGoalCategory
	}
	switch g.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return ErrInvalidPriority
	}
	switch g.Status {
	case GoalActive, GoalCompleted, GoalPaused, GoalCancelled:
	default:
		return ErrInvalidGoalStatus
	}
	if err := validateDate(g.StartDate, false); err != nil {
		return err
	}
	return validateDate(g.TargetDate, false)
}

func (c GoalContribution) Validate() error {
	if strings.TrimSpace(c.GoalID) == "" {
		return ErrMissingReference
	}
	if c.Amount < 0 {
		return ErrNegativeAmount
	}
	return validateDate(c.Date, true)
}
