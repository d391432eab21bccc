// Package notify fans league events out to whoever is listening. Delivery is
// fire-and-forget: a failing listener never affects the state change that
// produced the event.
package notify

import (
	"context"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	EventRoundConfirmed     EventType = "round_confirmed"
	EventChallengeCreated   EventType = "challenge_created"
	EventChallengeAccepted  EventType = "challenge_accepted"
	EventChallengeExpired   EventType = "challenge_expired"
	EventChallengeCancelled EventType = "challenge_cancelled"
	EventChallengeDefaulted EventType = "challenge_defaulted"
	EventNoShowReported     EventType = "no_show_reported"
	EventNoShowDisputed     EventType = "no_show_disputed"
	EventScoreSubmitted     EventType = "score_submitted"
	EventScoreVerified      EventType = "score_verified"
	EventScoreRejected      EventType = "score_rejected"
	EventScoreDisputed      EventType = "score_disputed"
	EventPenaltyApplied     EventType = "penalty_applied"
	EventHolidayWarning     EventType = "holiday_warning"
	EventDeadlineWarning    EventType = "deadline_warning"
	EventDisputeResolved    EventType = "dispute_resolved"
)

type Event struct {
	Type      EventType       `json:"type"`
	Division  league.Division `json:"division,omitempty"`
	Round     int             `json:"round,omitempty"`
	Challenge string          `json:"challenge,omitempty"`
	Entrants  []uuid.UUID     `json:"entrants,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	At        time.Time       `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event)
}

type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// LogNotifier writes every event to the structured log.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event Event) {
	e := n.logger.Info().
		Str("event", string(event.Type)).
		Str("division", string(event.Division))
	if event.Round > 0 {
		e = e.Int("round", event.Round)
	}
	if event.Challenge != "" {
		e = e.Str("challenge", event.Challenge)
	}
	if len(event.Entrants) > 0 {
		ids := make([]string, len(event.Entrants))
		for i, id := range event.Entrants {
			ids[i] = id.String()
		}
		e = e.Strs("entrants", ids)
	}
	e.Str("detail", event.Detail).Msg("league event")
}

// Multi delivers each event to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) {
	for _, n := range m {
		n.Notify(ctx, event)
	}
}
