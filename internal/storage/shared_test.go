package storage

import (
	"context"
	"errors"
	"testing"

	"trackit/internal/core"
	"trackit/internal/session"
	"trackit/internal/snapshot"
)

// Two processes sharing one database must never both report success for
// writes based on the same version.
func TestSharedRepositoryRejectsLostUpdates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := session.NewManager(repo)
	b := session.NewManager(repo)

	ha, err := a.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer ha.Release()
	hb, err := b.Open(ctx, ha.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := ha.Store.AddIncome(ctx, core.Income{Name: "Salary", Amount: 1000, Frequency: core.FrequencyMonthly}); err != nil {
		t.Fatalf("A AddIncome: %v", err)
	}
	_, err = hb.Store.AddExpense(ctx, core.Expense{Name: "Food", Amount: 7, Type: core.ExpenseVariable})
	if !errors.Is(err, snapshot.ErrStaleVersion) {
		t.Fatalf("B write on a stale version: expected ErrStaleVersion, got %v", err)
	}
	hb.Release()

	// B picks up A's change on the next open and can write on top of it.
	hb, err = b.Open(ctx, ha.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer hb.Release()
	if _, err := hb.Store.AddExpense(ctx, core.Expense{Name: "Food", Amount: 7, Type: core.ExpenseVariable}); err != nil {
		t.Fatalf("B AddExpense after reload: %v", err)
	}

	got, _, err := repo.Load(ctx, ha.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Version != 2 || len(got.Incomes) != 1 || len(got.Expenses) != 1 {
		t.Fatalf("unexpected stored snapshot: version=%d incomes=%d expenses=%d", got.Version, len(got.Incomes), len(got.Expenses))
	}
}
