package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/config"
	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/notify"
	"github.com/AdamBeresnev/padel-league/internal/score"
	"github.com/AdamBeresnev/padel-league/internal/standings"
	"github.com/AdamBeresnev/padel-league/internal/store"
	"github.com/AdamBeresnev/padel-league/internal/swiss"
	"github.com/AdamBeresnev/padel-league/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	pointsWin  = 3
	pointsDraw = 1
)

type SwissService struct {
	Deps
	teams  *store.TeamStore
	rounds *store.RoundStore
	policy config.SwissPolicy
}

func NewSwissService(deps Deps, teams *store.TeamStore, rounds *store.RoundStore, policy config.SwissPolicy) *SwissService {
	return &SwissService{Deps: deps, teams: teams, rounds: rounds, policy: policy}
}

// RoundDraft is a generated round waiting for an organiser to confirm or discard it.
type RoundDraft struct {
	Round     *league.Round
	Matches   []league.Match
	Fallbacks []swiss.Fallback
}

type RoundDetail struct {
	Round   *league.Round
	Matches []league.Match
	Teams   map[uuid.UUID]league.Entrant
}

func (s *SwissService) RegisterTeam(ctx context.Context, name string, division league.Division) (*league.Entrant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, league.ErrNameRequired
	}
	if err := validDivision(division); err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	team := &league.Entrant{
		ID:        uuid.New(),
		Name:      name,
		Division:  division,
		Active:    true,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.teams.CreateTeam(ctx, tx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, tx.Commit()
}

// SetTeamActive takes a team in or out of future pairings. Past results stay.
func (s *SwissService) SetTeamActive(ctx context.Context, id uuid.UUID, active bool) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.teams.SetActive(ctx, tx, id, active); err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}
	return tx.Commit()
}

func (s *SwissService) ComputeStandings(ctx context.Context, division league.Division, activeOnly bool) ([]league.Entrant, error) {
	teams, err := s.teams.ListTeams(ctx, s.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	return standings.Compute(teams, standings.Filter{Division: division, ActiveOnly: activeOnly}), nil
}

// GenerateRound pairs each division's active pool and stores the result as a
// single draft round.
// Nothing counts until ConfirmRound.
func (s *SwissService) GenerateRound(ctx context.Context, number int) (*RoundDraft, error) {
	if number < 1 {
		return nil, fmt.Errorf("round number %d: %w", number, league.ErrRoundOutOfOrder)
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.rounds.GetRound(ctx, tx, number); err == nil {
		return nil, fmt.Errorf("round %d: %w", number, league.ErrRoundExists)
	} else if !errors.Is(err, league.ErrNotFound) {
		return nil, fmt.Errorf("failed to check round: %w", err)
	}

	latest, err := s.rounds.LatestRoundNumber(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest round: %w", err)
	}
	if number <= latest {
		return nil, fmt.Errorf("round %d after round %d: %w", number, latest, league.ErrRoundOutOfOrder)
	}
	if latest > 0 {
		prev, err := s.rounds.GetRound(ctx, tx, latest)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest round: %w", err)
		}
		if prev.Draft {
			return nil, fmt.Errorf("round %d is still a draft: %w", latest, league.ErrRoundOutOfOrder)
		}
	}

	teams, err := s.teams.ListTeams(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	played, err := s.rounds.ConfirmedPairings(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pairing history: %w", err)
	}
	history := swiss.NewHistory()
	for _, m := range played {
		history.Add(m.TeamAID, *m.TeamBID)
	}

	now := s.Clock.Now()
	var (
		matches   []league.Match
		fallbacks []swiss.Fallback
	)
	// Divisions never meet; each gets its own pool and at most one bye.
	for _, division := range divisionsOf(teams) {
		pool := standings.Compute(teams, standings.Filter{Division: division, ActiveOnly: true})
		if len(pool) == 0 {
			continue
		}

		res := swiss.Pair(pool, history, s.policy.Fallback)
		for _, p := range res.Pairs {
			matches = append(matches, league.Match{
				ID:          uuid.New(),
				RoundNumber: number,
				MatchOrder:  len(matches) + 1,
				TeamAID:     p.A,
				TeamBID:     utils.Ptr(p.B),
				Status:      league.MatchScheduled,
				Draft:       true,
				CreatedAt:   now,
			})
		}
		if res.Bye != nil {
			matches = append(matches, league.Match{
				ID:          uuid.New(),
				RoundNumber: number,
				MatchOrder:  len(matches) + 1,
				TeamAID:     *res.Bye,
				Status:      league.MatchBye,
				Draft:       true,
				CreatedAt:   now,
			})
		}
		fallbacks = append(fallbacks, res.Fallbacks...)
	}
	if len(matches) == 0 {
		return nil, league.ErrEmptyPool
	}

	round := &league.Round{
		Number:    number,
		Deadline:  now.Add(s.policy.RoundLength),
		Draft:     true,
		CreatedAt: now,
	}
	if err := s.rounds.CreateRound(ctx, tx, round); err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}
	if err := s.rounds.CreateMatches(ctx, tx, matches); err != nil {
		return nil, fmt.Errorf("failed to create matches: %w", err)
	}

	for _, f := range fallbacks {
		s.Logger.Warn().
			Int("round", number).
			Str("team_a", f.A.String()).
			Str("team_b", f.B.String()).
			Str("reason", f.Reason).
			Msg("pairing fallback")
	}
	s.Metrics.PairingFallbacks(len(fallbacks))

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.Logger.Info().Int("round", number).Int("matches", len(matches)).Msg("draft round generated")
	return &RoundDraft{Round: round, Matches: matches, Fallbacks: fallbacks}, nil
}

// ConfirmRound publishes a draft. The bye is credited with the default score.
func (s *SwissService) ConfirmRound(ctx context.Context, number int) error {
	bye, err := score.Parse(s.policy.ByeScore)
	if err != nil {
		return fmt.Errorf("invalid bye score: %w", err)
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	round, err := s.rounds.GetRound(ctx, tx, number)
	if err != nil {
		return err
	}
	if !round.Draft {
		return fmt.Errorf("round %d: %w", number, league.ErrRoundNotDraft)
	}
	if err := s.rounds.ConfirmRound(ctx, tx, number, s.Clock.Now()); err != nil {
		return fmt.Errorf("failed to confirm round: %w", err)
	}

	matches, err := s.rounds.GetMatches(ctx, tx, number)
	if err != nil {
		return fmt.Errorf("failed to load matches: %w", err)
	}

	var entrants []uuid.UUID
	for i := range matches {
		m := &matches[i]
		entrants = append(entrants, m.TeamAID)
		if m.TeamBID != nil {
			entrants = append(entrants, *m.TeamBID)
		}
		if !m.IsBye() {
			continue
		}
		m.Verified = true
		if err := s.settle(ctx, tx, m, bye); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.Logger.Info().Int("round", number).Msg("round confirmed")
	s.emit(ctx, notify.Event{Type: notify.EventRoundConfirmed, Round: number, Entrants: entrants})
	return nil
}

// WarnDeadlines warns both teams of every scheduled match in a confirmed round
// whose deadline falls within the warning lead. Each match is warned once; an
// unplayed match is walked over by an organiser after the deadline.
func (s *SwissService) WarnDeadlines(ctx context.Context, now time.Time) (int, error) {
	lead := s.policy.DeadlineWarningLead
	if lead <= 0 {
		return 0, nil
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rounds, err := s.rounds.ListRounds(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("failed to list rounds: %w", err)
	}
	teams, err := s.teams.ListTeams(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("failed to load teams: %w", err)
	}
	division := make(map[uuid.UUID]league.Division, len(teams))
	for _, t := range teams {
		division[t.ID] = t.Division
	}

	var events []notify.Event
	for _, round := range rounds {
		if round.Draft || now.Before(round.Deadline.Add(-lead)) || !now.Before(round.Deadline) {
			continue
		}
		matches, err := s.rounds.GetMatches(ctx, tx, round.Number)
		if err != nil {
			return 0, fmt.Errorf("failed to load round %d: %w", round.Number, err)
		}
		for _, m := range matches {
			if m.Status != league.MatchScheduled || m.IsBye() || m.DeadlineWarnedAt != nil {
				continue
			}
			if err := s.rounds.MarkDeadlineWarned(ctx, tx, m.ID, now); err != nil {
				return 0, fmt.Errorf("failed to mark match: %w", err)
			}
			events = append(events, notify.Event{
				Type:     notify.EventDeadlineWarning,
				Division: division[m.TeamAID],
				Round:    round.Number,
				Entrants: []uuid.UUID{m.TeamAID, *m.TeamBID},
				Detail:   "deadline " + round.Deadline.Format(time.RFC3339),
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.emit(ctx, events...)
	return len(events), nil
}

// DiscardRound drops a draft without touching any statistics.
func (s *SwissService) DiscardRound(ctx context.Context, number int) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	round, err := s.rounds.GetRound(ctx, tx, number)
	if err != nil {
		return err
	}
	if !round.Draft {
		return fmt.Errorf("round %d: %w", number, league.ErrRoundNotDraft)
	}
	if err := s.rounds.DeleteRound(ctx, tx, number); err != nil {
		return fmt.Errorf("failed to discard round: %w", err)
	}

	s.Logger.Info().Int("round", number).Msg("draft round discarded")
	return tx.Commit()
}

func (s *SwissService) Rounds(ctx context.Context) ([]league.Round, error) {
	return s.rounds.ListRounds(ctx, s.DB)
}

func (s *SwissService) GetRound(ctx context.Context, number int) (*RoundDetail, error) {
	round, err := s.rounds.GetRound(ctx, s.DB, number)
	if err != nil {
		return nil, err
	}
	matches, err := s.rounds.GetMatches(ctx, s.DB, number)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}
	teams, err := s.teams.ListTeams(ctx, s.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}

	byID := make(map[uuid.UUID]league.Entrant, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}
	return &RoundDetail{Round: round, Matches: matches, Teams: byID}, nil
}

// SubmitMatchScore records one side's score, written from that side's point of view.
// Once both sides agree the match completes and standings move.
func (s *SwissService) SubmitMatchScore(ctx context.Context, matchID uuid.UUID, side league.Side, raw string) (*league.Match, error) {
	if !side.Valid() {
		return nil, league.ErrInvalidSide
	}
	submitted, err := score.Parse(raw)
	if err != nil {
		s.Metrics.ScoreSubmission("swiss", "malformed")
		return nil, err
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.rounds.GetMatch(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Draft || match.Status != league.MatchScheduled {
		return nil, fmt.Errorf("match %s is %s: %w", match.ID, match.Status, league.ErrMatchNotOpen)
	}

	canonical := submitted.String()
	if side == league.SideA {
		match.SubmissionA = &canonical
	} else {
		match.SubmissionB = &canonical
	}

	events := []notify.Event{{
		Type:     notify.EventScoreSubmitted,
		Round:    match.RoundNumber,
		Entrants: matchEntrants(match),
		Detail:   fmt.Sprintf("side %s: %s", side, canonical),
	}}
	result := "pending"

	if match.SubmissionA != nil && match.SubmissionB != nil {
		fromA, err := score.Parse(*match.SubmissionA)
		if err != nil {
			return nil, err
		}
		fromB, err := score.Parse(*match.SubmissionB)
		if err != nil {
			return nil, err
		}

		agreed, ok := score.Reconcile(fromA, fromB)
		if ok {
			match.Verified = true
			if err := s.settle(ctx, tx, match, agreed); err != nil {
				return nil, err
			}
			result = "verified"
			events = append(events, notify.Event{Type: notify.EventScoreVerified, Round: match.RoundNumber, Entrants: matchEntrants(match), Detail: agreed.String()})
		} else {
			match.Status = league.MatchDisputed
			result = "disputed"
			events = append(events, notify.Event{Type: notify.EventScoreDisputed, Round: match.RoundNumber, Entrants: matchEntrants(match)})
		}
	}

	if match.Status != league.MatchCompleted {
		if err := s.rounds.UpdateMatch(ctx, tx, match); err != nil {
			return nil, fmt.Errorf("failed to update match: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Metrics.ScoreSubmission("swiss", result)
	s.emit(ctx, events...)
	return match, nil
}

// AwardWalkover gives the match to winnerID with the default walkover score.
func (s *SwissService) AwardWalkover(ctx context.Context, matchID, winnerID uuid.UUID) (*league.Match, error) {
	wo, err := score.Parse(s.policy.ByeScore)
	if err != nil {
		return nil, fmt.Errorf("invalid walkover score: %w", err)
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.rounds.GetMatch(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Draft || match.IsBye() || (match.Status != league.MatchScheduled && match.Status != league.MatchDisputed) {
		return nil, fmt.Errorf("match %s is %s: %w", match.ID, match.Status, league.ErrMatchNotOpen)
	}
	side, ok := match.SideOf(winnerID)
	if !ok {
		return nil, league.ErrNotParty
	}
	if side == league.SideB {
		wo = wo.Invert()
	}

	match.Status = league.MatchWalkover
	match.Notes = utils.Ptr("walkover")
	if err := s.settle(ctx, tx, match, wo); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.emit(ctx, notify.Event{Type: notify.EventScoreVerified, Round: match.RoundNumber, Entrants: matchEntrants(match), Detail: "walkover"})
	return match, nil
}

// OverrideMatchScore is the organiser's decision on a disputed or unplayed match.
// The score is written from team A's point of view.
func (s *SwissService) OverrideMatchScore(ctx context.Context, matchID uuid.UUID, raw string) (*league.Match, error) {
	canonical, err := score.Parse(raw)
	if err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.rounds.GetMatch(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Draft || match.IsBye() || (match.Status != league.MatchScheduled && match.Status != league.MatchDisputed) {
		return nil, fmt.Errorf("match %s is %s: %w", match.ID, match.Status, league.ErrMatchNotOpen)
	}

	match.Verified = true
	match.Notes = utils.Ptr("score set by organiser")
	if err := s.settle(ctx, tx, match, canonical); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.emit(ctx, notify.Event{Type: notify.EventDisputeResolved, Round: match.RoundNumber, Entrants: matchEntrants(match), Detail: canonical.String()})
	return match, nil
}

// settle writes the canonical score (team A's perspective) onto the match and
// credits both teams. Stats are applied at most once per match.
func (s *SwissService) settle(ctx context.Context, tx *sqlx.Tx, match *league.Match, sc score.Score) error {
	if match.StatsApplied {
		return fmt.Errorf("match %s already counted: %w", match.ID, league.ErrMatchNotOpen)
	}

	r := sc.Result()
	match.Score = utils.Ptr(sc.String())
	match.SetsA, match.SetsB = r.SetsWon, r.SetsLost
	match.GamesA, match.GamesB = r.GamesWon, r.GamesLost
	match.WinnerID = nil
	switch r.Outcome {
	case score.Win:
		match.WinnerID = utils.Ptr(match.TeamAID)
	case score.Loss:
		match.WinnerID = match.TeamBID
	}
	if match.Status == league.MatchScheduled || match.Status == league.MatchDisputed {
		match.Status = league.MatchCompleted
	}
	match.StatsApplied = true

	if err := s.credit(ctx, tx, match.TeamAID, r); err != nil {
		return err
	}
	if match.TeamBID != nil {
		if err := s.credit(ctx, tx, *match.TeamBID, sc.Invert().Result()); err != nil {
			return err
		}
	}

	if err := s.rounds.UpdateMatch(ctx, tx, match); err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	return nil
}

func (s *SwissService) credit(ctx context.Context, tx *sqlx.Tx, teamID uuid.UUID, r score.Result) error {
	team, err := s.teams.GetTeam(ctx, tx, teamID)
	if err != nil {
		return err
	}

	team.MatchesPlayed++
	team.SetsFor += r.SetsWon
	team.SetsAgainst += r.SetsLost
	team.GamesFor += r.GamesWon
	team.GamesAgainst += r.GamesLost
	switch r.Outcome {
	case score.Win:
		team.Wins++
		team.Points += pointsWin
	case score.Draw:
		team.Draws++
		team.Points += pointsDraw
	default:
		team.Losses++
	}

	if err := s.teams.UpdateStats(ctx, tx, team); err != nil {
		return fmt.Errorf("failed to update team stats: %w", err)
	}
	return nil
}

func matchEntrants(m *league.Match) []uuid.UUID {
	ids := []uuid.UUID{m.TeamAID}
	if m.TeamBID != nil {
		ids = append(ids, *m.TeamBID)
	}
	return ids
}

// divisionsOf lists the divisions teams are registered in, sorted.
func divisionsOf(teams []league.Entrant) []league.Division {
	seen := make(map[league.Division]bool)
	var out []league.Division
	for _, t := range teams {
		if !seen[t.Division] {
			seen[t.Division] = true
			out = append(out, t.Division)
		}
	}
	slices.Sort(out)
	return out
}
