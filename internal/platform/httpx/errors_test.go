package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pawnledger/pawnledger/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.ErrValidation, http.StatusBadRequest},
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrInvalidState, http.StatusConflict},
		{shared.ErrConflict, http.StatusConflict},
		{shared.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{shared.ErrResourceExhausted, http.StatusServiceUnavailable},
		{shared.ErrDuplicateTransaction, http.StatusConflict},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, fmt.Errorf("context: %w", tc.err))
		require.Equal(t, tc.status, rec.Code, "error %v", tc.err)

		var problem ProblemDetail
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
		require.Equal(t, tc.status, problem.Status)
		require.NotEmpty(t, problem.Title)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: connection refused at 10.0.0.3"))

	var problem ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	require.Empty(t, problem.Detail, "infrastructure details must not leak to clients")
}
