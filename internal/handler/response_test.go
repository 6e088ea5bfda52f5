package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/omi/internal/apperror"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		kind     string
		message  string
		hasField bool
	}{
		{"validation", apperror.ValidationFailed("email", "Invalid email address"), 400, "validation_error", "Invalid email address", true},
		{"unauthorized", apperror.Unauthorized("Invalid credentials"), 401, "unauthorized", "Invalid credentials", false},
		{"forbidden", apperror.Forbidden("nope"), 403, "forbidden", "nope", false},
		{"not found wrapped", fmt.Errorf("service/thought: %w", apperror.NotFound("thought", "abc")), 404, "not_found", "", false},
		{"unavailable", apperror.Unavailable("AI provider is not configured"), 503, "service_unavailable", "AI provider is not configured", false},
		{"upstream", apperror.Upstream("Failed to process text"), 500, "upstream_error", "Failed to process text", false},
		{"unknown", errors.New("pq: relation thoughts does not exist"), 500, "internal_error", "An internal error occurred", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, quietLogger(), tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.kind, body.Error)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
			assert.Equal(t, tt.hasField, body.Field != "")
			assert.NotContains(t, body.Message, "pq:", "internal error text must not leak")
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	decode := func(body string) (payload, error) {
		var p payload
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := decodeJSON(httptest.NewRecorder(), r, &p)
		return p, err
	}

	t.Run("valid", func(t *testing.T) {
		p, err := decode(`{"name":"ann"}`)
		require.NoError(t, err)
		assert.Equal(t, "ann", p.Name)
	})

	for name, body := range map[string]string{
		"malformed": `{"name":`,
		"trailing":  `{"name":"a"} {"name":"b"}`,
		"empty":     ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decode(body)
			require.True(t, errors.Is(err, apperror.ErrValidation))

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "Invalid JSON format", appErr.Message)
		})
	}

	t.Run("too large", func(t *testing.T) {
		big := `{"name":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
		_, err := decode(big)
		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "Request body too large", appErr.Message)
	})
}

func TestValidationError_UsesJSONFieldNames(t *testing.T) {
	v := newValidator()

	err := v.Struct(imageRequest{Prompt: "cat", Size: "640x480"})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(validationError(err), &appErr))
	assert.Equal(t, "size", appErr.Field)
	assert.Equal(t, "size must be one of 1024x1024, 1792x1024, 1024x1792", appErr.Message)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	NotFound(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"not_found","message":"Route not found"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	MethodNotAllowed(rr, httptest.NewRequest(http.MethodPatch, "/api/thoughts", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
