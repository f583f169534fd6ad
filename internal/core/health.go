package core

// Recommendation messages, one per unmet scoring tier.
const (
	RecSavingsBelowTarget = "Try to save at least 20% of your income"
	RecSavingsLow         = "Your savings rate is low, consider reducing expenses"
	RecSavingsUrgent      = "Urgent: you need to increase your savings rate"
	RecBudgetNearLimit    = "You are close to exceeding your monthly budget"
	RecBudgetExceeded     = "You are exceeding your monthly budget"
	RecFixedHigh          = "Consider reducing your fixed expenses"
	RecFixedVeryHigh      = "Your fixed expenses are very high"
	RecNegativeNetIncome  = "Your expenses exceed your income"
)

// Budget utilization tiers, in percent.
const (
	BudgetWarningThreshold  = 80.0
	BudgetExceededThreshold = 100.0
)

// CalculateHealth scores a summary from 0 to 100. Factors are evaluated in
// a fixed order and the recommendations keep that order.
func CalculateHealth(s FinancialSummary) FinancialHealth {
	score := 0
	recs := []string{}

	switch {
	case s.SavingsRate >= 20:
		score += 30
	case s.SavingsRate >= 10:
		score += 20
		recs = append(recs, RecSavingsBelowTarget)
	case s.SavingsRate >= 5:
		score += 10
		recs = append(recs, RecSavingsLow)
	default:
		recs = append(recs, RecSavingsUrgent)
	}

	switch {
	case s.BudgetUtilization <= BudgetWarningThreshold:
		score += 25
	case s.BudgetUtilization <= BudgetExceededThreshold:
		score += 15
		recs = append(recs, RecBudgetNearLimit)
	default:
		score += 5
		recs = append(recs, RecBudgetExceeded)
	}

	switch ratio := FixedExpenseRatio(s); {
	case ratio <= 0.6:
		score += 25
	case ratio <= 0.8:
		score += 15
		recs = append(recs, RecFixedHigh)
	default:
		score += 5
		recs = append(recs, RecFixedVeryHigh)
	}

	if s.NetIncome > 0 {
		score += 20
	} else {
		recs = append(recs, RecNegativeNetIncome)
	}

	return FinancialHealth{
		Score:           score,
		Status:          HealthStatusForScore(score),
		Recommendations: recs,
	}
}

// FixedExpenseRatio is fixed/total expenses, 0 when there are no expenses.
func FixedExpenseRatio(s FinancialSummary) float64 {
	if s.TotalExpenses == 0 {
		return 0
	}
	return s.FixedExpenses / s.TotalExpenses
}

// HealthStatusForScore maps a score to its tier.
func HealthStatusForScore(score int) HealthStatus {
	switch {
	case score >= 80:
		return HealthExcellent
	case score >= 60:
		return HealthGood
	case score >= 40:
		return HealthFair
	default:
		return HealthPoor
	}
}
