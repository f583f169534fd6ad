package core

import (
	"math"
	"time"
)

// CalculateGoalProgress derives CurrentAmount and Progress from the
// contributions that belong to the goal. Contributions for other goals are
// ignored. A goal with a non-positive target counts as fully funded.
// Status is forced to completed at 100 and otherwise left untouched.
func CalculateGoalProgress(goal FinancialGoal, contributions []GoalContribution) FinancialGoal {
	total := 0.0
	for _, c := range contributions {
		if c.GoalID == goal.ID {
			total += c.Amount
		}
	}

	progress := 100.0
	if goal.TargetAmount > 0 {
		progress = math.Max(0, math.Min(total/goal.TargetAmount*100, 100))
	}

	goal.CurrentAmount = total
	goal.Progress = progress
	if progress >= 100 {
		goal.Status = GoalCompleted
	}
	return goal
}

// GoalPortfolio aggregates all goals of a state.
type GoalPortfolio struct {
	TotalGoals      int            `json:"totalGoals"`
	ActiveGoals     int            `json:"activeGoals"`
	CompletedGoals  int            `json:"completedGoals"`
	TotalTarget     float64        `json:"totalTargetAmount"`
	TotalCurrent    float64        `json:"totalCurrentAmount"`
	OverallProgress float64        `json:"overallProgress"`
	Goals           []GoalSnapshot `json:"goals"`
}

// GoalSnapshot is a goal plus its time-dependent figures.
type GoalSnapshot struct {
	FinancialGoal
	Remaining       float64 `json:"remaining"`
	DaysUntilTarget *int    `json:"daysUntilTarget,omitempty"`
	Overdue         bool    `json:"overdue"`
}

// NewGoalPortfolio builds the portfolio view as of now.
func NewGoalPortfolio(goals []FinancialGoal, now time.Time) GoalPortfolio {
	p := GoalPortfolio{TotalGoals: len(goals), Goals: make([]GoalSnapshot, 0, len(goals))}
	for _, g := range goals {
		switch g.Status {
		case GoalActive:
			p.ActiveGoals++
		case GoalCompleted:
			p.CompletedGoals++
		}
		p.TotalTarget += g.TargetAmount
		p.TotalCurrent += g.CurrentAmount

		snap := GoalSnapshot{FinancialGoal: g, Remaining: math.Max(g.TargetAmount-g.CurrentAmount, 0)}
		if days, ok := DaysUntilTarget(g.TargetDate, now); ok {
			snap.DaysUntilTarget = &days
			snap.Overdue = days < 0 && g.Status == GoalActive
		}
		p.Goals = append(p.Goals, snap)
	}
	if p.TotalTarget > 0 {
		p.OverallProgress = p.TotalCurrent / p.TotalTarget * 100
	}
	return p
}

// DaysUntilTarget returns the whole days, rounded up, between now and the
// target date. Negative values mean the date has passed.
func DaysUntilTarget(targetDate string, now time.Time) (int, bool) {
	target, ok := ParseDate(targetDate)
	if !ok {
		return 0, false
	}
	diff := target.Sub(now).Hours() / 24
	return int(math.Ceil(diff)), true
}

// MonthsToGoal is the number of monthly contributions needed to close the
// gap. It is 0 when nothing remains or no contribution is planned.
func MonthsToGoal(target, current, monthly float64) int {
	remaining := target - current
	if monthly <= 0 || remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining / monthly))
}

// SavingsPlan projects when a goal is reached at its monthly contribution.
type SavingsPlan struct {
	GoalID              string  `json:"goalId"`
	Remaining           float64 `json:"remaining"`
	MonthlyContribution float64 `json:"monthlyContribution"`
	MonthsToGoal        int     `json:"monthsToGoal"`
	ProjectedDate       string  `json:"projectedDate,omitempty"`
	// RequiredMonthly is what must be saved per month to hit TargetDate,
	// rounded to cents.
	RequiredMonthly float64 `json:"requiredMonthly,omitempty"`
	OnTrack         bool    `json:"onTrack"`
}

// PlanSavings builds the savings plan for a goal. The monthly override is
// used when positive, otherwise the goal's own MonthlyContribution.
func PlanSavings(g FinancialGoal, monthly float64, now time.Time) SavingsPlan {
	if monthly <= 0 {
		monthly = g.MonthlyContribution
	}
	plan := SavingsPlan{
		GoalID:              g.ID,
		Remaining:           math.Max(g.TargetAmount-g.CurrentAmount, 0),
		MonthlyContribution: monthly,
		MonthsToGoal:        MonthsToGoal(g.TargetAmount, g.CurrentAmount, monthly),
	}
	if plan.MonthsToGoal > 0 || plan.Remaining == 0 {
		plan.ProjectedDate = now.AddDate(0, plan.MonthsToGoal, 0).Format(DateLayout)
	}

	target, ok := ParseDate(g.TargetDate)
	if !ok {
		plan.OnTrack = plan.Remaining == 0 || plan.MonthsToGoal > 0
		return plan
	}
	months := monthsBetween(now, target)
	if plan.Remaining > 0 && months > 0 {
		plan.RequiredMonthly = RoundCents(plan.Remaining / float64(months))
	}
	plan.OnTrack = plan.Remaining == 0 || (plan.MonthsToGoal > 0 && plan.MonthsToGoal <= months)
	return plan
}

func monthsBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 1 {
		return 1
	}
	return months
}
