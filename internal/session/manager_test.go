package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trackit/internal/core"
	"trackit/internal/snapshot"
	"trackit/internal/snapshot/memory"
	"trackit/internal/state"
)

// slowStore counts loads and delays them so concurrent opens overlap.
type slowStore struct {
	*memory.Store
	loads   atomic.Int32
	failOn  string
	saveErr error
}

func (s *slowStore) Load(ctx context.Context, id string) (state.State, bool, error) {
	s.loads.Add(1)
	time.Sleep(20 * time.Millisecond)
	return s.Store.Load(ctx, id)
}

func (s *slowStore) Save(ctx context.Context, id string, st state.State) error {
	if s.saveErr != nil && len(st.Incomes) > 0 {
		return s.saveErr
	}
	return s.Store.Save(ctx, id, st)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestManager(t *testing.T) (*Manager, *slowStore, *clock) {
	t.Helper()
	backend := &slowStore{Store: memory.New()}
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(backend, WithIdleTimeout(10*time.Minute))
	m.now = c.now
	return m, backend, c
}

func TestCreateWritesThrough(t *testing.T) {
	ctx := context.Background()
	m, backend, _ := newTestManager(t)

	h, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Release()

	if _, err := h.Store.AddIncome(ctx, core.Income{Name: "Salary", Amount: 3000, Frequency: core.FrequencyMonthly, Category: "Salary"}); err != nil {
		t.Fatalf("AddIncome: %v", err)
	}

	saved, ok, err := backend.Store.Load(ctx, h.ID)
	if err != nil || !ok {
		t.Fatalf("snapshot missing: ok=%v err=%v", ok, err)
	}
	if saved.Version != 1 || saved.Summary.TotalIncome != 3000 {
		t.Fatalf("persisted snapshot is stale: version=%d summary=%+v", saved.Version, saved.Summary)
	}
}

func TestOpenSharesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	m, backend, _ := newTestManager(t)
	if err := backend.Store.Save(ctx, "shared", state.New()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	stores := make([]*state.Store, 10)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := m.Open(ctx, "shared")
			if err != nil {
				t.Errorf("Open: %v", err)
				return
			}
			stores[i] = h.Store
			h.Release()
		}(i)
	}
	wg.Wait()

	if n := backend.loads.Load(); n != 1 {
		t.Fatalf("backend loaded %d times, want 1", n)
	}
	for _, s := range stores {
		if s != stores[0] {
			t.Fatal("every handle should share one store")
		}
	}
}

func TestOpenErrors(t *testing.T) {
	m, _, _ := newTestManager(t)
	if _, err := m.Open(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Open(context.Background(), "../bad"); !errors.Is(err, snapshot.ErrInvalidSessionID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
}

func TestReapSkipsHeldSessions(t *testing.T) {
	ctx := context.Background()
	m, backend, c := newTestManager(t)

	held, _ := m.Create(ctx)
	idle, _ := m.Create(ctx)
	idle.Release()

	c.t = c.t.Add(11 * time.Minute)
	if n := m.Reap(); n != 1 {
		t.Fatalf("Reap = %d, want 1", n)
	}
	loaded := m.Loaded()
	if len(loaded) != 1 || loaded[0] != held.ID {
		t.Fatalf("loaded = %v, want only %s", loaded, held.ID)
	}

	// Reaped sessions reload from the backend.
	h, err := m.Open(ctx, idle.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	h.Release()
	if backend.loads.Load() != 1 {
		t.Fatalf("expected one backend load, got %d", backend.loads.Load())
	}
	held.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	m, _, c := newTestManager(t)
	a, _ := m.Create(context.Background())
	b, _ := m.Open(context.Background(), a.ID)

	a.Release()
	a.Release()

	c.t = c.t.Add(time.Hour)
	if n := m.Reap(); n != 0 {
		t.Fatal("b still holds the session")
	}
	// Releasing counts as use, so the idle period starts over.
	b.Release()
	if n := m.Reap(); n != 0 {
		t.Fatal("session was just released")
	}
	c.t = c.t.Add(time.Hour)
	if n := m.Reap(); n != 1 {
		t.Fatal("session should be reaped once released")
	}
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	m, backend, _ := newTestManager(t)

	h, _ := m.Create(ctx)
	if err := m.Destroy(ctx, h.ID); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, ok, _ := backend.Store.Load(ctx, h.ID); ok {
		t.Fatal("snapshot should be deleted")
	}
	if _, err := h.Store.AddExpense(ctx, core.Expense{Name: "x", Amount: 1, Type: core.ExpenseFixed}); !errors.Is(err, ErrClosed) {
		t.Fatalf("write after destroy = %v, want ErrClosed", err)
	}
	if err := m.Destroy(ctx, h.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second destroy = %v, want ErrNotFound", err)
	}
	ids, _ := m.List(ctx)
	if len(ids) != 0 {
		t.Fatalf("List = %v", ids)
	}
}

func TestFailedPersistRollsBack(t *testing.T) {
	ctx := context.Background()
	m, backend, _ := newTestManager(t)
	h, _ := m.Create(ctx)
	defer h.Release()

	backend.saveErr = errors.New("disk full")
	if _, err := h.Store.AddIncome(ctx, core.Income{Name: "Bonus", Amount: 10, Frequency: core.FrequencyOneTime}); err == nil {
		t.Fatal("expected persistence error")
	}
	if snap := h.Store.Snapshot(); len(snap.Incomes) != 0 || snap.Version != 0 {
		t.Fatalf("failed write leaked into state: %+v", snap.Incomes)
	}
}

func TestOnChange(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	var kinds []string
	m.OnChange(func(_ context.Context, id string, next state.State, cmd state.Command) {
		kinds = append(kinds, id+"/"+cmd.Kind())
	})

	h, _ := m.Create(ctx)
	defer h.Release()
	if _, err := h.Store.AddFinancialGoal(ctx, core.FinancialGoal{Name: "Trip", TargetAmount: 1000, Category: core.GoalVacation}); err != nil {
		t.Fatal(err)
	}
	if len(kinds) != 1 || kinds[0] != h.ID+"/goal.add" {
		t.Fatalf("changes = %v", kinds)
	}
}

func TestStaleCommitEvictsSession(t *testing.T) {
	ctx := context.Background()
	m, backend, _ := newTestManager(t)

	h, _ := m.Create(ctx)
	backend.saveErr = snapshot.ErrStaleVersion
	_, err := h.Store.AddIncome(ctx, core.Income{Name: "Salary", Amount: 1, Frequency: core.FrequencyMonthly})
	if !errors.Is(err, snapshot.ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}
	h.Release()
	if len(m.Loaded()) != 0 {
		t.Fatalf("stale session still loaded: %v", m.Loaded())
	}

	backend.saveErr = nil
	h, err = m.Open(ctx, h.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer h.Release()
	if backend.loads.Load() != 1 {
		t.Fatalf("expected a reload from the backend, got %d loads", backend.loads.Load())
	}
}
