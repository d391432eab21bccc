package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/httputil"
	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/service"
	"github.com/AdamBeresnev/padel-league/views"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *server) ladderPage(w http.ResponseWriter, r *http.Request) {
	divisions, err := s.ranks.Divisions(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	now := s.clock.Now()
	tables := make([]templ.Component, 0, len(divisions))
	for _, d := range divisions {
		entrants, err := s.ranks.LadderStandings(r.Context(), d)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		tables = append(tables, views.LadderTable(d, views.PrepareLadderData(entrants, now)))
	}
	views.Render(w, r, views.Page("Ladder", views.Sections(tables...)))
}

func (s *server) ladderJSON(w http.ResponseWriter, r *http.Request) {
	entrants, err := s.ranks.LadderStandings(r.Context(), league.Division(chi.URLParam(r, "division")))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, entrants)
}

func (s *server) historyJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid team ID", nil)
		return
	}
	events, err := s.ranks.History(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, events)
}

func (s *server) challengesJSON(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var statuses []league.ChallengeStatus
	for _, st := range q["status"] {
		statuses = append(statuses, league.ChallengeStatus(st))
	}
	challenges, err := s.challenges.List(r.Context(), league.Division(q.Get("division")), statuses...)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, challenges)
}

func (s *server) challengeByCode(w http.ResponseWriter, r *http.Request) {
	c, err := s.challenges.GetByCode(r.Context(), strings.ToUpper(chi.URLParam(r, "code")))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, c)
}

func (s *server) createChallenge(w http.ResponseWriter, r *http.Request) {
	challengerID, ok := formUUID(r, "challenger_id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid challenger ID", nil)
		return
	}
	challengedID, ok := formUUID(r, "challenged_id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid challenged ID", nil)
		return
	}
	c, err := s.challenges.CreateChallenge(r.Context(), challengerID, challengedID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusCreated, c)
}

func (s *server) acceptChallenge(w http.ResponseWriter, r *http.Request) {
	s.partyAction(w, r, s.challenges.AcceptChallenge)
}

func (s *server) cancelChallenge(w http.ResponseWriter, r *http.Request) {
	s.partyAction(w, r, s.challenges.CancelChallenge)
}

func (s *server) reportNoShow(w http.ResponseWriter, r *http.Request) {
	s.partyAction(w, r, s.challenges.ReportNoShow)
}

func (s *server) disputeNoShow(w http.ResponseWriter, r *http.Request) {
	s.partyAction(w, r, s.challenges.DisputeNoShow)
}

// partyAction runs a challenge action taken by one of its teams, named by entrant_id.
func (s *server) partyAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id, entrantID uuid.UUID) (*league.Challenge, error)) {
	id, ok := uuidParam(r, "id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid challenge ID", nil)
		return
	}
	entrantID, ok := formUUID(r, "entrant_id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid team ID", nil)
		return
	}
	c, err := action(r.Context(), id, entrantID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, c)
}

func (s *server) submitLadderScore(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid challenge ID", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, r, "Invalid form data", err)
		return
	}
	m, err := s.challenges.SubmitLadderScore(r.Context(), id, league.LadderSide(r.FormValue("side")), r.FormValue("score"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, m)
}

func (s *server) startHoliday(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid team ID", nil)
		return
	}

	var end *time.Time
	if raw := strings.TrimSpace(r.FormValue("end")); raw != "" {
		t, err := s.holidays.ParseEnd(raw)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		end = &t
	}

	e, err := s.holidays.StartHoliday(r.Context(), id, end)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, e)
}

func (s *server) endHoliday(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid team ID", nil)
		return
	}
	e, err := s.holidays.EndHoliday(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, e)
}

func (s *server) registerLadderEntrant(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, r, "Invalid form data", err)
		return
	}
	e, err := s.ranks.Register(r.Context(), r.FormValue("name"), league.Division(r.FormValue("division")))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusCreated, e)
}

func (s *server) withdrawLadderEntrant(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid team ID", nil)
		return
	}
	if err := s.ranks.Withdraw(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) applyPenalty(w http.ResponseWriter, r *http.Request) {
	entrantID, ok := formUUID(r, "entrant_id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid team ID", nil)
		return
	}
	places, err := strconv.Atoi(r.FormValue("places"))
	if err != nil {
		httputil.BadRequest(w, r, "Invalid number of places", err)
		return
	}
	moves, err := s.ranks.ApplyPenalty(r.Context(), entrantID, places, league.RankReason(r.FormValue("reason")))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, moves)
}

func (s *server) disputesPage(w http.ResponseWriter, r *http.Request) {
	division := league.Division(r.URL.Query().Get("division"))
	disputes, err := s.disputes.ListDisputes(r.Context(), division)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	names := make(map[uuid.UUID]string)
	seen := make(map[league.Division]bool)
	for _, d := range disputes {
		if seen[d.Challenge.Division] {
			continue
		}
		seen[d.Challenge.Division] = true
		entrants, err := s.ranks.LadderStandings(r.Context(), d.Challenge.Division)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		for _, e := range entrants {
			names[e.ID] = e.Name
		}
	}
	views.Render(w, r, views.Page("Disputes", views.DisputeList(disputes, names)))
}

// resolveDispute takes void=true, or winner_id with an optional score read
// from the winner's side.
func (s *server) resolveDispute(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid challenge ID", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, r, "Invalid form data", err)
		return
	}

	res := service.Void()
	if r.FormValue("void") != "true" {
		winnerID, ok := formUUID(r, "winner_id")
		if !ok {
			httputil.BadRequest(w, r, "Invalid winner ID", nil)
			return
		}
		res = service.WinnerDeclared(winnerID, r.FormValue("score"))
	}

	c, err := s.disputes.ResolveDispute(r.Context(), id, res)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, c)
}

func (s *server) runSweep(w http.ResponseWriter, r *http.Request) {
	report, err := s.sweep.Run(r.Context(), s.clock.Now())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, report)
}
