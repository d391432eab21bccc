package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ChallengeTransition("men", "accepted")
		m.Penalty("men", "no_show", 1)
		m.PairingFallbacks(2)
		m.ScoreSubmission("ladder", "verified")
		m.ObserveSweep(time.Second, nil)
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Penalty("women", "inactivity", 3)
	m.Penalty("women", "inactivity", 3)
	m.PairingFallbacks(0)
	m.PairingFallbacks(2)
	m.ChallengeTransition("men", "expired")
	m.ObserveSweep(10*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 6.0, testutil.ToFloat64(m.penalties.WithLabelValues("women", "inactivity")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pairingFallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.challengeTransitions.WithLabelValues("men", "expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepFailures))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "padel_league_penalty_places_total")
}
