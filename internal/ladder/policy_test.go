package ladder

import (
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicyIsValid(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.ChallengeBand = 0
	p.InactivityPenalty = 0
	assert.Error(t, p.Validate())
}

func TestInBand(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, p.InBand(4, 1))
	assert.True(t, p.InBand(2, 1))
	assert.False(t, p.InBand(5, 1), "four places above is outside the band")
	assert.False(t, p.InBand(2, 2))
	assert.False(t, p.InBand(1, 3), "cannot challenge downwards")
}

func TestOverstayWeeks(t *testing.T) {
	p := DefaultPolicy()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, p.OverstayWeeks(start, start.Add(13*24*time.Hour)))
	assert.Equal(t, 0, p.OverstayWeeks(start, start.Add(2*Week)))
	assert.Equal(t, 0, p.OverstayWeeks(start, start.Add(2*Week+time.Hour)), "an hour over is not a week")
	assert.Equal(t, 0, p.OverstayWeeks(start, start.Add(3*Week-time.Minute)))
	assert.Equal(t, 1, p.OverstayWeeks(start, start.Add(3*Week)))
	assert.Equal(t, 1, p.OverstayWeeks(start, start.Add(4*Week-time.Minute)))
	assert.Equal(t, 2, p.OverstayWeeks(start, start.Add(4*Week)))
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name       string
		status     league.ChallengeStatus
		needsAdmin bool
		to         league.ChallengeStatus
		wantErr    error
	}{
		{name: "accept pending", status: league.ChallengePending, to: league.ChallengeAccepted},
		{name: "expire pending", status: league.ChallengePending, to: league.ChallengeExpired},
		{name: "cancel pending", status: league.ChallengePending, to: league.ChallengeCancelled, wantErr: league.ErrInvalidTransition},
		{name: "complete accepted", status: league.ChallengeAccepted, to: league.ChallengeCompleted},
		{name: "resolve disputed", status: league.ChallengeDisputed, to: league.ChallengeCompleted},
		{name: "resolve flagged default", status: league.ChallengeDefaulted, needsAdmin: true, to: league.ChallengeCancelled},
		{name: "closed default", status: league.ChallengeDefaulted, to: league.ChallengeCompleted, wantErr: league.ErrChallengeTerminal},
		{name: "completed", status: league.ChallengeCompleted, to: league.ChallengeCancelled, wantErr: league.ErrChallengeTerminal},
		{name: "expired", status: league.ChallengeExpired, to: league.ChallengeAccepted, wantErr: league.ErrChallengeTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &league.Challenge{Code: "abc", Status: tt.status, NeedsAdmin: tt.needsAdmin}
			err := CheckTransition(c, tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDivisionLocksSerialise(t *testing.T) {
	var locks DivisionLocks
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(league.DivisionMen)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)

	// Divisions are independent
	unlockMen := locks.Lock(league.DivisionMen)
	unlockWomen := locks.Lock(league.DivisionWomen)
	unlockWomen()
	unlockMen()
}
