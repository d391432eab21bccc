package ladder

import (
	"errors"
	"time"
)

// Policy holds the tunable ladder rules. Durations decode from strings such as "48h".
type Policy struct {
	ChallengeBand        int           `yaml:"challenge_band"`
	AcceptanceWindow     time.Duration `yaml:"acceptance_window"`
	CompletionWindow     time.Duration `yaml:"completion_window"`
	AcceptancePenalty    int           `yaml:"acceptance_penalty"`
	NoShowPenalty        int           `yaml:"no_show_penalty"`
	HolidayGrace         time.Duration `yaml:"holiday_grace"`
	HolidayWeeklyPenalty int           `yaml:"holiday_weekly_penalty"`
	HolidayWarningLead   time.Duration `yaml:"holiday_warning_lead"`
	MinMatchesPerMonth   int           `yaml:"min_matches_per_month"`
	InactivityPenalty    int           `yaml:"inactivity_penalty"`
}

const Week = 7 * 24 * time.Hour

func DefaultPolicy() Policy {
	return Policy{
		ChallengeBand:        3,
		AcceptanceWindow:     48 * time.Hour,
		CompletionWindow:     Week,
		AcceptancePenalty:    1,
		NoShowPenalty:        1,
		HolidayGrace:         2 * Week,
		HolidayWeeklyPenalty: 1,
		HolidayWarningLead:   48 * time.Hour,
		MinMatchesPerMonth:   2,
		InactivityPenalty:    3,
	}
}

func (p Policy) Validate() error {
	var errs []error
	if p.ChallengeBand < 1 {
		errs = append(errs, errors.New("challenge_band must be at least 1"))
	}
	if p.AcceptanceWindow <= 0 {
		errs = append(errs, errors.New("acceptance_window must be positive"))
	}
	if p.CompletionWindow <= 0 {
		errs = append(errs, errors.New("completion_window must be positive"))
	}
	if p.AcceptancePenalty < 1 || p.NoShowPenalty < 1 || p.HolidayWeeklyPenalty < 1 || p.InactivityPenalty < 1 {
		errs = append(errs, errors.New("penalties must be at least 1"))
	}
	if p.HolidayGrace < 0 || p.HolidayWarningLead < 0 {
		errs = append(errs, errors.New("holiday durations cannot be negative"))
	}
	if p.MinMatchesPerMonth < 0 {
		errs = append(errs, errors.New("min_matches_per_month cannot be negative"))
	}
	return errors.Join(errs...)
}

// InBand reports whether a challenger at rank from may challenge rank to.
func (p Policy) InBand(from, to int) bool {
	return to < from && from-to <= p.ChallengeBand
}

// OverstayWeeks is the number of whole weeks past the holiday grace period.
// A partly used week is not charged.
func (p Policy) OverstayWeeks(start, now time.Time) int {
	over := now.Sub(start) - p.HolidayGrace
	if over <= 0 {
		return 0
	}
	return int(over / Week)
}
