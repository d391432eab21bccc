package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("challenge abc: %w", league.ErrNotFound), http.StatusNotFound},
		{"lock conflict", fmt.Errorf("failed to lock: %w", league.ErrLockConflict), http.StatusConflict},
		{"entrant locked", league.ErrEntrantLocked, http.StatusConflict},
		{"band", fmt.Errorf("rank 5 vs 1: %w", league.ErrInvalidBand), http.StatusBadRequest},
		{"malformed score", league.ErrMalformedScore, http.StatusBadRequest},
		{"terminal", league.ErrChallengeTerminal, http.StatusBadRequest},
		{"rank invariant", league.ErrRankInvariant, http.StatusInternalServerError},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestWriteError_HidesInternalErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	WriteError(w, r, errors.New("database is locked"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database is locked")
}

func TestWriteError_ShowsValidationMessage(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()

	WriteError(w, r, fmt.Errorf("failed to accept challenge: %w", league.ErrDeadlinePassed))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), league.ErrDeadlinePassed.Error())
}

func TestJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	JSON(w, r, http.StatusCreated, map[string]int{"rank": 3})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"rank":3}`, w.Body.String())
}
