package state

import (
	"math"
	"reflect"
	"testing"

	"trackit/internal/core"
)

func TestNewSeedsCategories(t *testing.T) {
	s := New()
	if len(s.Categories) != 8 {
		t.Fatalf("expected 8 seed categories, got %d", len(s.Categories))
	}
	if s.Health.Status != core.HealthFair || s.Health.Score != 50 {
		t.Fatalf("empty state health = %+v", s.Health)
	}
	if s.Incomes == nil || s.GoalContributions == nil {
		t.Fatalf("collections should be empty, not nil")
	}
}

func TestApplyRecomputesSummaryAndHealth(t *testing.T) {
	s := New()
	s, _ = Apply(s, AddIncome{Income: core.Income{ID: "i1", Amount: 3000, Frequency: core.FrequencyMonthly}})
	if s.Summary.TotalIncome != 3000 || s.Summary.MonthlyBudget != 2400 {
		t.Fatalf("summary not recomputed after income add: %+v", s.Summary)
	}
	if s.Health.Score != 100 {
		t.Fatalf("expected perfect health, got %+v", s.Health)
	}

	s, _ = Apply(s, AddExpense{Expense: core.Expense{ID: "e1", Amount: 100, Type: core.ExpenseFixed, IsRecurring: true, Frequency: core.FrequencyWeekly}})
	if math.Abs(s.Summary.TotalExpenses-433) > 0.01 {
		t.Fatalf("expense not normalized: %+v", s.Summary)
	}
	assertConsistent(t, s)

	// Update that pushes expenses over budget must be reflected in health.
	s, changed := Apply(s, UpdateExpense{Expense: core.Expense{ID: "e1", Amount: 3500, Type: core.ExpenseFixed}})
	if !changed {
		t.Fatalf("update of existing expense should change state")
	}
	assertConsistent(t, s)
	if s.Health.Status != core.HealthPoor {
		t.Fatalf("expected poor health after overspending, got %+v", s.Health)
	}

	s, _ = Apply(s, DeleteExpense{ID: "e1"})
	assertConsistent(t, s)
	if s.Summary.TotalExpenses != 0 {
		t.Fatalf("expenses should be zero after delete")
	}
}

func assertConsistent(t *testing.T, s State) {
	t.Helper()
	want := core.CalculateSummary(s.Incomes, s.Expenses)
	if s.Summary != want {
		t.Fatalf("stale summary: %+v vs %+v", s.Summary, want)
	}
	if h := core.CalculateHealth(want); !reflect.DeepEqual(s.Health, h) {
		t.Fatalf("stale health: %+v vs %+v", s.Health, h)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := New()
	s, _ = Apply(s, AddIncome{Income: core.Income{ID: "i1", Name: "a", Amount: 10}})
	before := s.Clone()

	_, _ = Apply(s, UpdateIncome{Income: core.Income{ID: "i1", Name: "b", Amount: 20}})
	_, _ = Apply(s, DeleteIncome{ID: "i1"})
	_, _ = Apply(s, AddIncome{Income: core.Income{ID: "i2"}})

	if !reflect.DeepEqual(before, s) {
		t.Fatalf("Apply mutated its input")
	}
}

func TestApplyUnknownIDIsNoop(t *testing.T) {
	s := New()
	cmds := []Command{
		UpdateIncome{Income: core.Income{ID: "missing"}},
		DeleteIncome{ID: "missing"},
		UpdateExpense{Expense: core.Expense{ID: "missing"}},
		DeleteExpense{ID: "missing"},
		UpdateCreditCard{Card: core.CreditCard{ID: "missing"}},
		DeleteCreditCard{ID: "missing"},
		UpdateCardTransaction{Transaction: core.CardTransaction{ID: "missing"}},
		DeleteCardTransaction{ID: "missing"},
		UpdateFinancialGoal{Goal: core.FinancialGoal{ID: "missing"}},
		DeleteFinancialGoal{ID: "missing"},
		UpdateGoalContribution{Contribution: core.GoalContribution{ID: "missing"}},
		DeleteGoalContribution{ID: "missing"},
		CalculateGoalProgress{GoalID: "missing"},
	}
	for _, cmd := range cmds {
		t.Run(cmd.Kind(), func(t *testing.T) {
			next, changed := Apply(s, cmd)
			if changed {
				t.Fatalf("expected no change")
			}
			if next.Version != s.Version || !reflect.DeepEqual(next, s) {
				t.Fatalf("state changed for unknown id")
			}
		})
	}
}

func TestApplyRefusesEmptyOrDuplicateIDs(t *testing.T) {
	s := New()
	s, _ = Apply(s, AddIncome{Income: core.Income{ID: "i1", Amount: 1000, Frequency: core.FrequencyMonthly}})
	s, _ = Apply(s, AddFinancialGoal{Goal: core.FinancialGoal{ID: "g1", TargetAmount: 100, Status: core.GoalActive}})
	s, _ = Apply(s, AddGoalContribution{Contribution: core.GoalContribution{ID: "k1", GoalID: "g1", Amount: 10}})

	cmds := []Command{
		AddIncome{Income: core.Income{ID: "i1", Amount: 7, Frequency: core.FrequencyMonthly}},
		AddIncome{Income: core.Income{Amount: 7, Frequency: core.FrequencyMonthly}},
		AddExpense{Expense: core.Expense{Amount: 7, Type: core.ExpenseFixed}},
		AddCategory{Category: core.Category{ID: "1", Name: "Salary again", Type: core.CategoryIncome}},
		AddCreditCard{Card: core.CreditCard{}},
		AddCardTransaction{Transaction: core.CardTransaction{CardID: "c1"}},
		AddFinancialGoal{Goal: core.FinancialGoal{ID: "g1", TargetAmount: 5}},
		AddGoalContribution{Contribution: core.GoalContribution{ID: "k1", GoalID: "g1", Amount: 90}},
		AddGoalContribution{Contribution: core.GoalContribution{GoalID: "g1", Amount: 90}},
	}
	for _, cmd := range cmds {
		t.Run(cmd.Kind(), func(t *testing.T) {
			next, changed := Apply(s, cmd)
			if changed || !reflect.DeepEqual(next, s) {
				t.Fatalf("add with id %q changed the state", TargetID(cmd))
			}
		})
	}

	// A single delete still removes the one record.
	s, _ = Apply(s, DeleteIncome{ID: "i1"})
	if len(s.Incomes) != 0 || s.Summary.TotalIncome != 0 {
		t.Fatalf("incomes after delete: %+v", s.Incomes)
	}
}

func TestApplyVersionIncrements(t *testing.T) {
	s := New()
	s, _ = Apply(s, AddCategory{Category: core.Category{ID: "9", Name: "Pets", Type: core.CategoryExpense}})
	s, _ = Apply(s, AddCreditCard{Card: core.CreditCard{ID: "c1"}})
	if s.Version != 2 {
		t.Fatalf("version = %d, want 2", s.Version)
	}
	if len(s.Categories) != 9 {
		t.Fatalf("category not appended")
	}
}

func TestDeleteCreditCardCascades(t *testing.T) {
	s := New()
	s, _ = Apply(s, AddCreditCard{Card: core.CreditCard{ID: "c1"}})
	s, _ = Apply(s, AddCreditCard{Card: core.CreditCard{ID: "c2"}})
	s, _ = Apply(s, AddCardTransaction{Transaction: core.CardTransaction{ID: "t1", CardID: "c1"}})
	s, _ = Apply(s, AddCardTransaction{Transaction: core.CardTransaction{ID: "t2", CardID: "c1"}})
	s, _ = Apply(s, AddCardTransaction{Transaction: core.CardTransaction{ID: "t3", CardID: "c2"}})

	s, changed := Apply(s, DeleteCreditCard{ID: "c1"})
	if !changed {
		t.Fatalf("expected change")
	}
	if len(s.CreditCards) != 1 || s.CreditCards[0].ID != "c2" {
		t.Fatalf("cards after delete: %+v", s.CreditCards)
	}
	if len(s.CardTransactions) != 1 || s.CardTransactions[0].ID != "t3" {
		t.Fatalf("transactions after delete: %+v", s.CardTransactions)
	}
}

func TestDeleteGoalCascades(t *testing.T) {
	s := New()
	s, _ = Apply(s, AddFinancialGoal{Goal: core.FinancialGoal{ID: "g1", TargetAmount: 100, Status: core.GoalActive}})
	s, _ = Apply(s, AddFinancialGoal{Goal: core.FinancialGoal{ID: "g2", TargetAmount: 100, Status: core.GoalActive}})
	s, _ = Apply(s, AddGoalContribution{Contribution: core.GoalContribution{ID: "k1", GoalID: "g1", Amount: 10}})
	s, _ = Apply(s, AddGoalContribution{Contribution: core.GoalContribution{ID: "k2", GoalID: "g1", Amount: 10}})
	s, _ = Apply(s, AddGoalContribution{Contribution: core.GoalContribution{ID: "k3", GoalID: "g2", Amount: 10}})

	s, _ = Apply(s, DeleteFinancialGoal{ID: "g1"})
	if len(s.FinancialGoals) != 1 || s.FinancialGoals[0].ID != "g2" {
		t.Fatalf("goals after delete: %+v", s.FinancialGoals)
	}
	if len(s.GoalContributions) != 1 || s.GoalContributions[0].ID != "k3" {
		t.Fatalf("contributions after delete: %+v", s.GoalContributions)
	}
}

func TestGoalProgressFollowsContributions(t *testing.T) {
	s := New()
	s, _ = Apply(s, AddFinancialGoal{Goal: core.FinancialGoal{ID: "g1", TargetAmount: 1000, Status: core.GoalActive}})
	s, _ = Apply(s, AddFinancialGoal{Goal: core.FinancialGoal{ID: "g2", TargetAmount: 1000, Status: core.GoalActive}})

	s, _ = Apply(s, AddGoalContribution{Contribution: core.GoalContribution{ID: "k1", GoalID: "g1", Amount: 250}})
	g1, _ := Find(s.FinancialGoals, "g1")
	if g1.CurrentAmount != 250 || g1.Progress != 25 || g1.Status != core.GoalActive {
		t.Fatalf("g1 after contribution: %+v", g1)
	}

	// Moving the contribution to g2 refreshes both goals.
	s, _ = Apply(s, UpdateGoalContribution{Contribution: core.GoalContribution{ID: "k1", GoalID: "g2", Amount: 1500}})
	g1, _ = Find(s.FinancialGoals, "g1")
	g2, _ := Find(s.FinancialGoals, "g2")
	if g1.CurrentAmount != 0 || g1.Progress != 0 {
		t.Fatalf("g1 should be empty: %+v", g1)
	}
	if g2.Progress != 100 || g2.Status != core.GoalCompleted {
		t.Fatalf("g2 should be completed: %+v", g2)
	}

	// Removing the contribution drops progress but never un-completes.
	s, _ = Apply(s, DeleteGoalContribution{ID: "k1"})
	g2, _ = Find(s.FinancialGoals, "g2")
	if g2.CurrentAmount != 0 || g2.Status != core.GoalCompleted {
		t.Fatalf("g2 after delete: %+v", g2)
	}
}

func TestCalculateGoalProgressCommand(t *testing.T) {
	s := State{
		FinancialGoals:    []core.FinancialGoal{{ID: "g1", TargetAmount: 200, Status: core.GoalActive}},
		GoalContributions: []core.GoalContribution{{ID: "k1", GoalID: "g1", Amount: 50}},
	}
	next, changed := Apply(s, CalculateGoalProgress{GoalID: "g1"})
	if !changed || next.FinancialGoals[0].Progress != 25 {
		t.Fatalf("expected progress 25, got %+v", next.FinancialGoals)
	}
	again, changed := Apply(next, CalculateGoalProgress{GoalID: "g1"})
	if changed || again.Version != next.Version {
		t.Fatalf("recalculating an up to date goal should be a no-op")
	}
}

func TestUpdateGoalKeepsDerivedFields(t *testing.T) {
	s := New()
	s, _ = Apply(s, AddFinancialGoal{Goal: core.FinancialGoal{ID: "g1", TargetAmount: 1000, Status: core.GoalActive}})
	s, _ = Apply(s, AddGoalContribution{Contribution: core.GoalContribution{ID: "k1", GoalID: "g1", Amount: 400}})

	// A client sending stale derived values must not overwrite them.
	s, _ = Apply(s, UpdateFinancialGoal{Goal: core.FinancialGoal{ID: "g1", Name: "Car", TargetAmount: 800, Status: core.GoalActive, CurrentAmount: 0, Progress: 0}})
	g, _ := Find(s.FinancialGoals, "g1")
	if g.Name != "Car" || g.CurrentAmount != 400 || g.Progress != 50 {
		t.Fatalf("goal after update: %+v", g)
	}
}

func TestSummaryIgnoresOtherCommands(t *testing.T) {
	s := New()
	s, _ = Apply(s, AddIncome{Income: core.Income{ID: "i1", Amount: 1000, Frequency: core.FrequencyMonthly}})
	summary := s.Summary
	s, _ = Apply(s, AddCreditCard{Card: core.CreditCard{ID: "c1", CurrentBalance: 5000}})
	if s.Summary != summary {
		t.Fatalf("card changes must not touch the summary")
	}
}

func TestTargetID(t *testing.T) {
	if got := TargetID(AddIncome{Income: core.Income{ID: "x"}}); got != "x" {
		t.Fatalf("TargetID = %q", got)
	}
	if got := TargetID(CalculateGoalProgress{GoalID: "g"}); got != "g" {
		t.Fatalf("TargetID = %q", got)
	}
}
