package core

// Policy constants for monthly normalization.
const (
	WeeksPerMonth = 4.33
	DaysPerMonth  = 30.0

	// BudgetShare is the fraction of income treated as the monthly budget.
	BudgetShare = 0.8
)

// MonthlyEquivalent converts an amount with the given recurrence to a
// monthly value. Unknown or one-time frequencies count at face value.
func MonthlyEquivalent(amount float64, f Frequency) float64 {
	switch f {
	case FrequencyWeekly:
		return amount * WeeksPerMonth
	case FrequencyDaily:
		return amount * DaysPerMonth
	default:
		return amount
	}
}

// Monthly returns the income normalized to a month.
func (i Income) Monthly() float64 {
	return MonthlyEquivalent(i.Amount, i.Frequency)
}

// Monthly returns the expense normalized to a month. Non-recurring
// expenses count once at face value.
func (e Expense) Monthly() float64 {
	if !e.IsRecurring {
		return e.Amount
	}
	return MonthlyEquivalent(e.Amount, e.Frequency)
}

// CalculateSummary aggregates incomes and expenses into monthly totals.
func CalculateSummary(incomes []Income, expenses []Expense) FinancialSummary {
	var s FinancialSummary
	for _, in := range incomes {
		s.TotalIncome += in.Monthly()
	}
	for _, e := range expenses {
		m := e.Monthly()
		s.TotalExpenses += m
		switch e.Type {
		case ExpenseFixed:
			s.FixedExpenses += m
		case ExpenseVariable:
			s.VariableExpenses += m
		}
	}

	s.NetIncome = s.TotalIncome - s.TotalExpenses
	if s.TotalIncome > 0 {
		s.SavingsRate = s.NetIncome / s.TotalIncome * 100
	}
	s.MonthlyBudget = s.TotalIncome * BudgetShare
	if s.MonthlyBudget > 0 {
		s.BudgetUtilization = s.TotalExpenses / s.MonthlyBudget * 100
	}
	return s
}
