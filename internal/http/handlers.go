package http

import (
	"net/http"

	"trackit/internal/core"
	"trackit/internal/log"
	"trackit/internal/state"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.svc.CreateSession(r.Context())
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	Created(map[string]string{"id": id}).
		Header("Location", "/api/sessions/"+id).
		Write(w)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(snap).Write(w)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DestroySession(r.Context(), sessionID(r)); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(snap.Summary).Write(w)
}

func (s *Server) handleHealthScore(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(snap.Health).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(nonNil(snap.Categories)).Write(w)
}

// Categories can only be added; there is no update or delete.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	c := parseCategory(p, s.now())
	if err := c.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	var created core.Category
	err := s.svc.WithStore(r.Context(), sessionID(r), func(st *state.Store) error {
		var err error
		created, err = st.AddCategory(r.Context(), c)
		return err
	})
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	Created(created).Write(w)
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (state.State, bool) {
	snap, err := s.svc.Snapshot(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, r, log.OpRead, err)
		return state.State{}, false
	}
	return snap, true
}

// nonNil keeps empty collections as [] in JSON.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
