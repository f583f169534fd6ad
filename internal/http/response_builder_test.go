package http

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusAccepted).
		Header("X-Test", "yes").
		Body(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Header().Get("X-Test") != "yes" {
		t.Error("custom header missing")
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		status  int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("bad"), http.StatusUnprocessableEntity},
		{"not found", NotFoundError("bad"), http.StatusNotFound},
		{"internal", InternalServerError("bad"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.status {
				t.Errorf("Status code = %d, want %d", w.Code, tt.status)
			}
			if strings.TrimSpace(w.Body.String()) != `{"error":"bad"}` {
				t.Errorf("Body = %q", w.Body.String())
			}
		})
	}
}

func TestJSONResponseBuilder_NoContentAndEncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NoContent().Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("NoContent wrote %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	NewJSONResponse().Body(math.NaN()).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unencodable body should be a 500, got %d", w.Code)
	}
}
