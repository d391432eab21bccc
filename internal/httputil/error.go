package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/rs/zerolog"
)

var badRequest = []error{
	league.ErrInvalidBand,
	league.ErrSelfChallenge,
	league.ErrDivisionMismatch,
	league.ErrOnHoliday,
	league.ErrMalformedScore,
	league.ErrDrawNotAllowed,
	league.ErrChallengeTerminal,
	league.ErrInvalidTransition,
	league.ErrNotParty,
	league.ErrDeadlinePassed,
	league.ErrInvalidSide,
	league.ErrInvalidPenalty,
	league.ErrInvalidOutcome,
	league.ErrRoundExists,
	league.ErrRoundOutOfOrder,
	league.ErrRoundNotDraft,
	league.ErrMatchNotOpen,
	league.ErrEmptyPool,
	league.ErrInvalidHoliday,
	league.ErrAlreadyOnLadder,
	league.ErrNameRequired,
	league.ErrNotOnHoliday,
	league.ErrNoShowNotReported,
}

// StatusFor maps a league error to the HTTP status it is reported with.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, league.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, league.ErrLockConflict), errors.Is(err, league.ErrEntrantLocked):
		return http.StatusConflict
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// WriteError reports err with the status from StatusFor. Internal errors are
// logged and never shown to the caller.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch status := StatusFor(err); status {
	case http.StatusInternalServerError:
		InternalServerError(w, r, "request failed", err)
	case http.StatusNotFound:
		NotFound(w, r, err.Error(), err)
	case http.StatusBadRequest:
		BadRequest(w, r, err.Error(), err)
	default:
		zerolog.Ctx(r.Context()).Warn().Err(err).Int("status", status).Msg("conflict")
		http.Error(w, err.Error(), status)
	}
}

func InternalServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg(msg)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func BadRequest(w http.ResponseWriter, r *http.Request, msg string, err error) {
	event := zerolog.Ctx(r.Context()).Warn().Str("message", msg)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("bad request")
	http.Error(w, msg, http.StatusBadRequest)
}

func NotFound(w http.ResponseWriter, r *http.Request, msg string, err error) {
	event := zerolog.Ctx(r.Context()).Warn().Str("message", msg)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("not found")
	http.Error(w, msg, http.StatusNotFound)
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
