package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/padel-league/internal/httputil"
	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/views"
)

func (s *server) standingsPage(w http.ResponseWriter, r *http.Request) {
	division := league.Division(r.URL.Query().Get("division"))
	entrants, err := s.swiss.ComputeStandings(r.Context(), division, false)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	rounds, err := s.swiss.Rounds(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	views.Render(w, r, views.Page("Standings", views.Sections(views.RoundLinks(rounds), views.StandingsTable(entrants))))
}

func (s *server) standingsJSON(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entrants, err := s.swiss.ComputeStandings(r.Context(), league.Division(q.Get("division")), q.Get("active") == "true")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, entrants)
}

func (s *server) roundsJSON(w http.ResponseWriter, r *http.Request) {
	rounds, err := s.swiss.Rounds(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, rounds)
}

func (s *server) roundPage(w http.ResponseWriter, r *http.Request) {
	number, ok := intParam(r, "number")
	if !ok {
		httputil.BadRequest(w, r, "Invalid round number", nil)
		return
	}
	detail, err := s.swiss.GetRound(r.Context(), number)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	data := views.PrepareRoundData(detail.Round, detail.Matches, detail.Teams)
	views.Render(w, r, views.Page("Round "+strconv.Itoa(number), views.RoundView(data)))
}

func (s *server) submitMatchScore(w http.ResponseWriter, r *http.Request) {
	matchID, ok := uuidParam(r, "id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid match ID", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, r, "Invalid form data", err)
		return
	}

	match, err := s.swiss.SubmitMatchScore(r.Context(), matchID, league.Side(r.FormValue("side")), r.FormValue("score"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, match)
}

func (s *server) registerTeam(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.BadRequest(w, r, "Invalid form data", err)
		return
	}
	team, err := s.swiss.RegisterTeam(r.Context(), r.FormValue("name"), league.Division(r.FormValue("division")))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusCreated, team)
}

func (s *server) setTeamActive(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid team ID", nil)
		return
	}
	active, err := strconv.ParseBool(r.FormValue("active"))
	if err != nil {
		httputil.BadRequest(w, r, "Invalid active flag", err)
		return
	}
	if err := s.swiss.SetTeamActive(r.Context(), id, active); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) generateRound(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.FormValue("number"))
	if err != nil {
		httputil.BadRequest(w, r, "Invalid round number", err)
		return
	}
	draft, err := s.swiss.GenerateRound(r.Context(), number)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusCreated, draft)
}

func (s *server) confirmRound(w http.ResponseWriter, r *http.Request) {
	s.roundAction(w, r, s.swiss.ConfirmRound)
}

func (s *server) discardRound(w http.ResponseWriter, r *http.Request) {
	s.roundAction(w, r, s.swiss.DiscardRound)
}

func (s *server) roundAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, number int) error) {
	number, ok := intParam(r, "number")
	if !ok {
		httputil.BadRequest(w, r, "Invalid round number", nil)
		return
	}
	if err := action(r.Context(), number); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/rounds/"+strconv.Itoa(number))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) awardWalkover(w http.ResponseWriter, r *http.Request) {
	matchID, ok := uuidParam(r, "id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid match ID", nil)
		return
	}
	winnerID, ok := formUUID(r, "winner_id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid winner ID", nil)
		return
	}
	match, err := s.swiss.AwardWalkover(r.Context(), matchID, winnerID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, match)
}

func (s *server) overrideMatchScore(w http.ResponseWriter, r *http.Request) {
	matchID, ok := uuidParam(r, "id")
	if !ok {
		httputil.BadRequest(w, r, "Invalid match ID", nil)
		return
	}
	match, err := s.swiss.OverrideMatchScore(r.Context(), matchID, r.FormValue("score"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSON(w, r, http.StatusOK, match)
}
