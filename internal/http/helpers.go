package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"trackit/internal/log"
	"trackit/internal/session"
	"trackit/internal/snapshot"
)

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sid")
}

func recordID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// writeServiceError maps service errors onto status codes. Anything that
// is not a known lookup failure is logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, snapshot.ErrInvalidSessionID):
		NotFoundError("session not found").Write(w)
	case errors.Is(err, snapshot.ErrStaleVersion):
		ErrorResponse(http.StatusConflict, "session changed elsewhere, retry").Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		log.FromContext(r.Context()).WarnContext(r.Context(), "Request timed out",
			log.FieldOperation, op, log.FieldSessionID, sessionID(r))
		ErrorResponse(http.StatusServiceUnavailable, "request timed out").Write(w)
	default:
		log.NewStructuredLogger(log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)).
			LogError(r.Context(), "Request failed", err, op, log.NewFields().WithRequestID(requestIDFrom(r)))
		InternalServerError("internal error").Write(w)
	}
}

// parseBody parses the request body, writing a 400 on failure.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return nil, false
	}
	return p, true
}
