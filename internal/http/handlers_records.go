package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trackit/internal/core"
	"trackit/internal/log"
	"trackit/internal/state"
)

// record is what every CRUD collection holds.
type record interface {
	RecordID() string
	Validate() error
}

// resource describes one record collection of a session and how the API
// maps onto its store operations.
type resource[T record] struct {
	path   string
	noun   string
	parse  func(*RequestBodyParser, time.Time) T
	setID  func(*T, string)
	list   func(state.State) []T
	add    func(*state.Store, context.Context, T) (T, error)
	update func(*state.Store, context.Context, T) (bool, error)
	remove func(*state.Store, context.Context, string) (bool, error)
}

var incomeResource = resource[core.Income]{
	path:   "incomes",
	noun:   "income",
	parse:  parseIncome,
	setID:  func(v *core.Income, id string) { v.ID = id },
	list:   func(s state.State) []core.Income { return s.Incomes },
	add:    (*state.Store).AddIncome,
	update: (*state.Store).UpdateIncome,
	remove: (*state.Store).DeleteIncome,
}

var expenseResource = resource[core.Expense]{
	path:   "expenses",
	noun:   "expense",
	parse:  parseExpense,
	setID:  func(v *core.Expense, id string) { v.ID = id },
	list:   func(s state.State) []core.Expense { return s.Expenses },
	add:    (*state.Store).AddExpense,
	update: (*state.Store).UpdateExpense,
	remove: (*state.Store).DeleteExpense,
}

var cardResource = resource[core.CreditCard]{
	path:   "cards",
	noun:   "card",
	parse:  parseCreditCard,
	setID:  func(v *core.CreditCard, id string) { v.ID = id },
	list:   func(s state.State) []core.CreditCard { return s.CreditCards },
	add:    (*state.Store).AddCreditCard,
	update: (*state.Store).UpdateCreditCard,
	remove: (*state.Store).DeleteCreditCard,
}

var cardTransactionResource = resource[core.CardTransaction]{
	path:   "card-transactions",
	noun:   "card transaction",
	parse:  parseCardTransaction,
	setID:  func(v *core.CardTransaction, id string) { v.ID = id },
	list:   func(s state.State) []core.CardTransaction { return s.CardTransactions },
	add:    (*state.Store).AddCardTransaction,
	update: (*state.Store).UpdateCardTransaction,
	remove: (*state.Store).DeleteCardTransaction,
}

var goalResource = resource[core.FinancialGoal]{
	path:   "goals",
	noun:   "goal",
	parse:  parseFinancialGoal,
	setID:  func(v *core.FinancialGoal, id string) { v.ID = id },
	list:   func(s state.State) []core.FinancialGoal { return s.FinancialGoals },
	add:    (*state.Store).AddFinancialGoal,
	update: (*state.Store).UpdateFinancialGoal,
	remove: (*state.Store).DeleteFinancialGoal,
}

var goalContributionResource = resource[core.GoalContribution]{
	path:   "goal-contributions",
	noun:   "goal contribution",
	parse:  parseGoalContribution,
	setID:  func(v *core.GoalContribution, id string) { v.ID = id },
	list:   func(s state.State) []core.GoalContribution { return s.GoalContributions },
	add:    (*state.Store).AddGoalContribution,
	update: (*state.Store).UpdateGoalContribution,
	remove: (*state.Store).DeleteGoalContribution,
}

// mountResource registers list, create, update and delete for res. extra
// adds routes below the same prefix.
func mountResource[T record](r chi.Router, s *Server, res resource[T], extra func(chi.Router)) {
	r.Route("/"+res.path, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) { listRecords(s, res, w, r) })
		r.Post("/", func(w http.ResponseWriter, r *http.Request) { createRecord(s, res, w, r) })
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) { updateRecord(s, res, w, r) })
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) { deleteRecord(s, res, w, r) })
		if extra != nil {
			extra(r)
		}
	})
}

func listRecords[T record](s *Server, res resource[T], w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(nonNil(res.list(snap))).Write(w)
}

func createRecord[T record](s *Server, res resource[T], w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	rec := res.parse(p, s.now())
	if err := rec.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	var created T
	err := s.svc.WithStore(r.Context(), sessionID(r), func(st *state.Store) error {
		var err error
		created, err = res.add(st, r.Context(), rec)
		return err
	})
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	Created(created).
		Header("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+created.RecordID()).
		Write(w)
}

// updateRecord fully replaces the record. Unknown ids are a 404 here even
// though the store itself treats them as a no-op.
func updateRecord[T record](s *Server, res resource[T], w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	id := recordID(r)
	rec := res.parse(p, s.now())
	res.setID(&rec, id)
	if err := rec.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	var (
		found   bool
		updated T
	)
	err := s.svc.WithStore(r.Context(), sessionID(r), func(st *state.Store) error {
		var err error
		if found, err = res.update(st, r.Context(), rec); err != nil || !found {
			return err
		}
		updated, _ = state.Find(res.list(st.Snapshot()), id)
		return nil
	})
	if err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	if !found {
		NotFoundError(res.noun + " not found").Write(w)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func deleteRecord[T record](s *Server, res resource[T], w http.ResponseWriter, r *http.Request) {
	var found bool
	err := s.svc.WithStore(r.Context(), sessionID(r), func(st *state.Store) error {
		var err error
		found, err = res.remove(st, r.Context(), recordID(r))
		return err
	})
	if err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	if !found {
		NotFoundError(res.noun + " not found").Write(w)
		return
	}
	NoContent().Write(w)
}
