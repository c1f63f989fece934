package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "examsite/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("scheduling codes map to client errors", func(t *testing.T) {
		cases := map[dErrors.Code]int{
			dErrors.CodeAlreadyScheduled: http.StatusConflict,
			dErrors.CodeInvalidState:     http.StatusConflict,
			dErrors.CodeCapacityExceeded: http.StatusUnprocessableEntity,
			dErrors.CodeOutOfWindow:      http.StatusUnprocessableEntity,
			dErrors.CodeNotFound:         http.StatusNotFound,
		}
		for code, status := range cases {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(code, "x"))
			assert.Equal(t, status, w.Code, string(code))
		}
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type stopRequest struct {
	Name string `json:"name" validate:"notblank"`
	Hits int    `json:"hits"`
}

func (r *stopRequest) Normalize() { r.Name = strings.TrimSpace(r.Name) }

func (r *stopRequest) Validate() error {
	if r.Hits < 0 {
		return dErrors.New(dErrors.CodeValidation, "hits must not be negative")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	decode := func(body string) (*stopRequest, *httptest.ResponseRecorder) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		w := httptest.NewRecorder()
		req, _ := DecodeAndPrepare[stopRequest](w, r, logger, r.Context(), "req-1")
		return req, w
	}

	t.Run("normalizes and validates", func(t *testing.T) {
		req, _ := decode(`{"name":"  Hall A ","hits":2}`)
		require.NotNil(t, req)
		assert.Equal(t, "Hall A", req.Name)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		req, w := decode(`{"name":"a","extra":true}`)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects empty body", func(t *testing.T) {
		req, w := decode(``)
		assert.Nil(t, req)
		assert.Contains(t, w.Body.String(), "request body is required")
	})

	t.Run("runs tag validation before Validate", func(t *testing.T) {
		req, w := decode(`{"name":"   ","hits":-1}`)
		assert.Nil(t, req)
		assert.Contains(t, w.Body.String(), "name cannot be blank")
	})

	t.Run("runs record validation", func(t *testing.T) {
		req, w := decode(`{"name":"a","hits":-1}`)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "hits must not be negative")
	})
}
