package http

import (
	"net/http"

	"trackit/internal/core"
	"trackit/internal/log"
	"trackit/internal/state"
)

func (s *Server) handleCardDashboard(w http.ResponseWriter, r *http.Request) {
	portfolio, err := s.svc.CardDashboard(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(portfolio).Write(w)
}

func (s *Server) handleGoalDashboard(w http.ResponseWriter, r *http.Request) {
	portfolio, err := s.svc.GoalDashboard(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(portfolio).Write(w)
}

func (s *Server) handleOverviewDashboard(w http.ResponseWriter, r *http.Request) {
	overview, err := s.svc.OverviewDashboard(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(overview).Write(w)
}

// handleGoalProgress recomputes one goal from its contributions.
func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	var (
		goal  core.FinancialGoal
		found bool
	)
	err := s.svc.WithStore(r.Context(), sessionID(r), func(st *state.Store) error {
		var err error
		goal, found, err = st.CalculateGoalProgress(r.Context(), recordID(r))
		return err
	})
	if err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	if !found {
		NotFoundError("goal not found").Write(w)
		return
	}
	NewJSONResponse().Body(goal).Write(w)
}

// handleSavingsPlan projects a goal's completion. ?monthly= overrides the
// goal's planned contribution.
func (s *Server) handleSavingsPlan(w http.ResponseWriter, r *http.Request) {
	monthly := core.ParseAmount(r.URL.Query().Get("monthly"))
	if monthly < 0 {
		UnprocessableEntityError(core.ErrNegativeAmount.Error()).Write(w)
		return
	}
	plan, found, err := s.svc.SavingsPlan(r.Context(), sessionID(r), recordID(r), monthly)
	if err != nil {
		writeServiceError(w, r, log.OpRead, err)
		return
	}
	if !found {
		NotFoundError("goal not found").Write(w)
		return
	}
	NewJSONResponse().Body(plan).Write(w)
}
