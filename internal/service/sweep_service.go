package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/ladder"
	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/notify"
	"github.com/AdamBeresnev/padel-league/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

const (
	markInactivity = "inactivity"
	periodLayout   = "2006-01"
)

// SweepReport counts what one sweep did. A re-run over the same instant reports zeros.
type SweepReport struct {
	Divisions           int
	Expired             int
	Defaulted           int
	FlaggedForAdmin     int
	HolidayPenalties    int
	HolidayWarnings     int
	InactivityPenalties int
	DeadlineWarnings    int
}

func (r *SweepReport) add(o SweepReport) {
	r.Divisions += o.Divisions
	r.Expired += o.Expired
	r.Defaulted += o.Defaulted
	r.FlaggedForAdmin += o.FlaggedForAdmin
	r.HolidayPenalties += o.HolidayPenalties
	r.HolidayWarnings += o.HolidayWarnings
	r.InactivityPenalties += o.InactivityPenalties
	r.DeadlineWarnings += o.DeadlineWarnings
}

// SweepService is the only place deadlines are acted on.
type SweepService struct {
	Deps
	ladder     *store.LadderStore
	challenges *store.ChallengeStore
	ranks      *RankService
	holidays   *HolidayService
	swiss      *SwissService
	locks      *ladder.DivisionLocks
	policy     ladder.Policy
}

func NewSweepService(deps Deps, ladderStore *store.LadderStore, challenges *store.ChallengeStore, ranks *RankService, holidays *HolidayService, swiss *SwissService, locks *ladder.DivisionLocks, policy ladder.Policy) *SweepService {
	return &SweepService{
		Deps:       deps,
		ladder:     ladderStore,
		challenges: challenges,
		ranks:      ranks,
		holidays:   holidays,
		swiss:      swiss,
		locks:      locks,
		policy:     policy,
	}
}

// Run sweeps every division as of now. Divisions run concurrently, each in its
// own transaction under its own lock, so one failing division rolls back alone.
// Swiss round deadline warnings go out once the ladder divisions are done.
func (s *SweepService) Run(ctx context.Context, now time.Time) (*SweepReport, error) {
	start := time.Now()
	report, err := s.run(ctx, now)
	s.Metrics.ObserveSweep(time.Since(start), err)
	if err != nil {
		s.Logger.Error().Err(err).Msg("sweep failed")
		return report, err
	}

	s.Logger.Info().
		Int("divisions", report.Divisions).
		Int("expired", report.Expired).
		Int("defaulted", report.Defaulted).
		Int("flagged", report.FlaggedForAdmin).
		Int("holiday_penalties", report.HolidayPenalties).
		Int("holiday_warnings", report.HolidayWarnings).
		Int("inactivity_penalties", report.InactivityPenalties).
		Int("deadline_warnings", report.DeadlineWarnings).
		Msg("sweep finished")
	return report, nil
}

func (s *SweepService) run(ctx context.Context, now time.Time) (*SweepReport, error) {
	divisions, err := s.ladder.ListDivisions(ctx, s.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to list divisions: %w", err)
	}

	var (
		mu     sync.Mutex
		report SweepReport
	)
	g, gCtx := errgroup.WithContext(ctx)
	for _, division := range divisions {
		g.Go(func() error {
			r, events, err := s.sweepDivision(gCtx, division, now)
			if err != nil {
				return fmt.Errorf("division %s: %w", division, err)
			}

			mu.Lock()
			report.add(r)
			mu.Unlock()
			s.emit(ctx, events...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &report, err
	}

	warned, err := s.swiss.WarnDeadlines(ctx, now)
	if err != nil {
		return &report, fmt.Errorf("round deadlines: %w", err)
	}
	report.DeadlineWarnings = warned
	return &report, nil
}

func (s *SweepService) sweepDivision(ctx context.Context, division league.Division, now time.Time) (SweepReport, []notify.Event, error) {
	report := SweepReport{Divisions: 1}

	unlock := s.locks.Lock(division)
	defer unlock()

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return report, nil, err
	}
	defer tx.Rollback()

	var events []notify.Event
	var transitions []league.ChallengeStatus

	pending, err := s.challenges.ListChallenges(ctx, tx, division, league.ChallengePending)
	if err != nil {
		return report, nil, fmt.Errorf("failed to list pending challenges: %w", err)
	}
	for i := range pending {
		c := &pending[i]
		if !now.After(c.AcceptanceDeadline) {
			continue
		}
		if err := s.expire(ctx, tx, c, now); err != nil {
			return report, nil, err
		}
		report.Expired++
		transitions = append(transitions, c.Status)
		events = append(events,
			challengeEvent(notify.EventChallengeExpired, c, ""),
			penaltyEvent(division, c.Code, c.ChallengedID, league.ReasonExpiry, s.policy.AcceptancePenalty),
		)
	}

	accepted, err := s.challenges.ListChallenges(ctx, tx, division, league.ChallengeAccepted)
	if err != nil {
		return report, nil, fmt.Errorf("failed to list accepted challenges: %w", err)
	}
	for i := range accepted {
		c := &accepted[i]
		if c.CompletionDeadline == nil || !now.After(*c.CompletionDeadline) {
			continue
		}
		absent, err := s.forfeit(ctx, tx, c, now)
		if err != nil {
			return report, nil, err
		}
		transitions = append(transitions, c.Status)
		if absent == nil {
			report.FlaggedForAdmin++
			events = append(events, challengeEvent(notify.EventChallengeDefaulted, c, "needs admin decision"))
			continue
		}
		report.Defaulted++
		events = append(events,
			challengeEvent(notify.EventChallengeDefaulted, c, "no-show by "+absent.String()),
			penaltyEvent(division, c.Code, *absent, league.ReasonNoShow, s.policy.NoShowPenalty),
		)
	}

	entrants, err := s.ladder.ListEntrants(ctx, tx, division)
	if err != nil {
		return report, nil, fmt.Errorf("failed to load ladder: %w", err)
	}
	for i := range entrants {
		e := &entrants[i]
		if e.HolidayStart == nil || now.Before(*e.HolidayStart) {
			continue
		}

		drop, err := s.holidays.settle(ctx, tx, e, now)
		if err != nil {
			return report, nil, err
		}
		warned := s.holidays.warn(e, now)
		if drop == 0 && !warned {
			continue
		}
		if err := s.ladder.UpdateHoliday(ctx, tx, e); err != nil {
			return report, nil, fmt.Errorf("failed to update holiday: %w", err)
		}
		if drop > 0 {
			report.HolidayPenalties++
			events = append(events, penaltyEvent(division, "", e.ID, league.ReasonHoliday, drop))
		}
		if warned {
			report.HolidayWarnings++
			events = append(events, holidayWarning(e, e.HolidayStart.Add(s.policy.HolidayGrace)))
		}
	}

	penalized, err := s.inactivity(ctx, tx, division, now)
	if err != nil {
		return report, nil, err
	}
	report.InactivityPenalties = len(penalized)
	for _, id := range penalized {
		events = append(events, penaltyEvent(division, "", id, league.ReasonInactivity, s.policy.InactivityPenalty))
	}

	if err := tx.Commit(); err != nil {
		return report, nil, err
	}
	for _, status := range transitions {
		s.Metrics.ChallengeTransition(string(division), string(status))
	}
	return report, events, nil
}

// expire closes a challenge nobody accepted in time. The challenged team pays.
func (s *SweepService) expire(ctx context.Context, tx *sqlx.Tx, c *league.Challenge, now time.Time) error {
	if err := ladder.CheckTransition(c, league.ChallengeExpired); err != nil {
		return err
	}

	c.Status = league.ChallengeExpired
	c.CompletedAt = &now
	if err := s.challenges.UpdateChallenge(ctx, tx, c); err != nil {
		return fmt.Errorf("failed to expire challenge: %w", err)
	}
	if err := s.ladder.Unlock(ctx, tx, c.ID); err != nil {
		return fmt.Errorf("failed to unlock teams: %w", err)
	}
	if _, err := s.ranks.penalize(ctx, tx, c.Division, c.ChallengedID, s.policy.AcceptancePenalty, league.ReasonExpiry); err != nil {
		return err
	}

	s.Logger.Info().Str("challenge", c.Code).Msg("challenge expired")
	return nil
}

// forfeit defaults a challenge past its completion deadline. With an undisputed
// no-show report the absent team is penalised and both are released; otherwise
// the challenge waits for an admin with both teams still locked. It returns the
// absent team, or nil when an admin has to decide.
func (s *SweepService) forfeit(ctx context.Context, tx *sqlx.Tx, c *league.Challenge, now time.Time) (*uuid.UUID, error) {
	if err := ladder.CheckTransition(c, league.ChallengeDefaulted); err != nil {
		return nil, err
	}

	c.Status = league.ChallengeDefaulted
	if c.NoShowReporterID == nil || c.NoShowDisputed {
		c.NeedsAdmin = true
		if err := s.challenges.UpdateChallenge(ctx, tx, c); err != nil {
			return nil, fmt.Errorf("failed to default challenge: %w", err)
		}
		s.Logger.Warn().Str("challenge", c.Code).Msg("challenge defaulted without an undisputed no-show, admin decision needed")
		return nil, nil
	}

	absent := c.Opponent(*c.NoShowReporterID)
	c.CompletedAt = &now
	if err := s.challenges.UpdateChallenge(ctx, tx, c); err != nil {
		return nil, fmt.Errorf("failed to default challenge: %w", err)
	}
	if err := s.ladder.Unlock(ctx, tx, c.ID); err != nil {
		return nil, fmt.Errorf("failed to unlock teams: %w", err)
	}
	if _, err := s.ranks.penalize(ctx, tx, c.Division, absent, s.policy.NoShowPenalty, league.ReasonNoShow); err != nil {
		return nil, err
	}

	s.Logger.Info().Str("challenge", c.Code).Str("absent", absent.String()).Msg("challenge defaulted")
	return &absent, nil
}

// inactivity closes the previous calendar month once. The first period ever
// seen only records a baseline. Teams that were away or joined during the
// closing period are spared.
func (s *SweepService) inactivity(ctx context.Context, tx *sqlx.Tx, division league.Division, now time.Time) ([]uuid.UUID, error) {
	period := now.UTC().Format(periodLayout)

	last, ok, err := s.ladder.LatestSweepMark(ctx, tx, division, markInactivity)
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep mark: %w", err)
	}
	if ok && last >= period {
		return nil, nil
	}
	if !ok {
		return nil, s.ladder.CreateSweepMark(ctx, tx, division, markInactivity, period, now)
	}

	closing, err := time.Parse(periodLayout, last)
	if err != nil {
		return nil, fmt.Errorf("bad sweep mark %q: %w", last, err)
	}

	entrants, err := s.ladder.ListEntrants(ctx, tx, division)
	if err != nil {
		return nil, fmt.Errorf("failed to load ladder: %w", err)
	}

	var penalized []uuid.UUID
	for _, e := range entrants {
		if e.MatchesThisPeriod >= s.policy.MinMatchesPerMonth {
			continue
		}
		if !e.CreatedAt.Before(closing) || awayDuring(&e, closing, now) {
			continue
		}
		if _, err := s.ranks.penalize(ctx, tx, division, e.ID, s.policy.InactivityPenalty, league.ReasonInactivity); err != nil {
			return nil, err
		}
		penalized = append(penalized, e.ID)
	}

	if err := s.ladder.ResetMatches(ctx, tx, division); err != nil {
		return nil, fmt.Errorf("failed to reset match counters: %w", err)
	}
	if err := s.ladder.CreateSweepMark(ctx, tx, division, markInactivity, period, now); err != nil {
		return nil, fmt.Errorf("failed to record sweep mark: %w", err)
	}
	return penalized, nil
}

// awayDuring reports whether a holiday overlapped [from, to).
func awayDuring(e *league.LadderEntrant, from, to time.Time) bool {
	if e.HolidayStart == nil || !e.HolidayStart.Before(to) {
		return false
	}
	return e.HolidayEnd == nil || e.HolidayEnd.After(from)
}
