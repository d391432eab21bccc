package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/holiday"
	"github.com/AdamBeresnev/padel-league/internal/ladder"
	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/AdamBeresnev/padel-league/internal/notify"
	"github.com/AdamBeresnev/padel-league/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type HolidayService struct {
	Deps
	ladder *store.LadderStore
	ranks  *RankService
	locks  *ladder.DivisionLocks
	policy ladder.Policy
	parser *holiday.Parser
}

func NewHolidayService(deps Deps, ladderStore *store.LadderStore, ranks *RankService, locks *ladder.DivisionLocks, policy ladder.Policy) *HolidayService {
	return &HolidayService{
		Deps:   deps,
		ladder: ladderStore,
		ranks:  ranks,
		locks:  locks,
		policy: policy,
		parser: holiday.NewParser(),
	}
}

// ParseEnd reads a return date such as "2026-08-01" or "in 3 weeks".
func (s *HolidayService) ParseEnd(input string) (time.Time, error) {
	return s.parser.ParseEnd(input, s.Clock.Now())
}

// StartHoliday takes a team off the challenge list from now until end, or
// until EndHoliday when end is nil. Time past the grace period costs ranks.
func (s *HolidayService) StartHoliday(ctx context.Context, id uuid.UUID, end *time.Time) (*league.LadderEntrant, error) {
	now := s.Clock.Now()
	if end != nil && !end.After(now) {
		return nil, league.ErrInvalidHoliday
	}

	var entrant *league.LadderEntrant
	err := s.withEntrant(ctx, id, func(tx *sqlx.Tx, e *league.LadderEntrant) error {
		if e.LockedBy != nil {
			return league.ErrEntrantLocked
		}
		if e.OnHoliday(now) {
			return league.ErrOnHoliday
		}

		e.HolidayStart = &now
		e.HolidayEnd = end
		e.HolidayWeeksPenalized = 0
		e.HolidayWarned = false
		if err := s.ladder.UpdateHoliday(ctx, tx, e); err != nil {
			return fmt.Errorf("failed to start holiday: %w", err)
		}
		entrant = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info().Str("team", entrant.Name).Str("division", string(entrant.Division)).Msg("holiday started")
	return entrant, nil
}

// EndHoliday brings a team back now. Any overstay not yet charged is charged first.
func (s *HolidayService) EndHoliday(ctx context.Context, id uuid.UUID) (*league.LadderEntrant, error) {
	now := s.Clock.Now()

	var (
		entrant *league.LadderEntrant
		due     int
	)
	err := s.withEntrant(ctx, id, func(tx *sqlx.Tx, e *league.LadderEntrant) error {
		if !e.OnHoliday(now) {
			return league.ErrNotOnHoliday
		}

		var err error
		if due, err = s.settle(ctx, tx, e, now); err != nil {
			return err
		}
		e.HolidayEnd = &now
		if err := s.ladder.UpdateHoliday(ctx, tx, e); err != nil {
			return fmt.Errorf("failed to end holiday: %w", err)
		}
		entrant = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if due > 0 {
		s.emit(ctx, penaltyEvent(entrant.Division, "", entrant.ID, league.ReasonHoliday, due))
	}
	s.Logger.Info().Str("team", entrant.Name).Str("division", string(entrant.Division)).Msg("holiday ended")
	return entrant, nil
}

func (s *HolidayService) withEntrant(ctx context.Context, id uuid.UUID, fn func(tx *sqlx.Tx, e *league.LadderEntrant) error) error {
	e, err := s.ladder.GetEntrant(ctx, s.DB, id)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(e.Division)
	defer unlock()

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if e, err = s.ladder.GetEntrant(ctx, tx, id); err != nil {
		return err
	}
	if err := fn(tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

// settle charges the overstay weeks accrued up to until that have not been
// charged yet and returns the places dropped. Callers hold the division lock
// and persist the holiday fields afterwards.
func (s *HolidayService) settle(ctx context.Context, tx *sqlx.Tx, e *league.LadderEntrant, until time.Time) (int, error) {
	if e.HolidayStart == nil {
		return 0, nil
	}
	if e.HolidayEnd != nil && e.HolidayEnd.Before(until) {
		until = *e.HolidayEnd
	}

	weeks := s.policy.OverstayWeeks(*e.HolidayStart, until)
	due := weeks - e.HolidayWeeksPenalized
	if due <= 0 {
		return 0, nil
	}

	drop := due * s.policy.HolidayWeeklyPenalty
	if _, err := s.ranks.penalize(ctx, tx, e.Division, e.ID, drop, league.ReasonHoliday); err != nil {
		return 0, err
	}
	e.HolidayWeeksPenalized = weeks
	return drop, nil
}

// warn reports whether the grace period is about to run out and the team has
// not been told yet. It marks the team as warned.
func (s *HolidayService) warn(e *league.LadderEntrant, now time.Time) bool {
	if e.HolidayWarned || !e.OnHoliday(now) {
		return false
	}
	if e.HolidayEnd != nil && !e.HolidayEnd.After(e.HolidayStart.Add(s.policy.HolidayGrace)) {
		return false
	}
	if now.Before(e.HolidayStart.Add(s.policy.HolidayGrace - s.policy.HolidayWarningLead)) {
		return false
	}
	e.HolidayWarned = true
	return true
}

func holidayWarning(e *league.LadderEntrant, graceEnds time.Time) notify.Event {
	return notify.Event{
		Type:     notify.EventHolidayWarning,
		Division: e.Division,
		Entrants: []uuid.UUID{e.ID},
		Detail:   "holiday grace period ends " + graceEnds.Format("2006-01-02 15:04"),
	}
}
