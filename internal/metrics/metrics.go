// Package metrics exposes league counters to Prometheus. A nil *Metrics is
// valid and records nothing, so services and tests can run without a registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "padel_league"

type Metrics struct {
	challengeTransitions *prometheus.CounterVec
	penalties            *prometheus.CounterVec
	pairingFallbacks     prometheus.Counter
	scoreSubmissions     *prometheus.CounterVec
	sweepDuration        prometheus.Histogram
	sweepFailures        prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		challengeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenge_transitions_total",
			Help:      "Ladder challenges entering each status.",
		}, []string{"division", "status"}),
		penalties: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "penalty_places_total",
			Help:      "Rank places dropped through penalties.",
		}, []string{"division", "reason"}),
		pairingFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairing_fallbacks_total",
			Help:      "Swiss pairings that had to repeat an earlier matchup.",
		}),
		scoreSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_submissions_total",
			Help:      "Score submissions by format and result.",
		}, []string{"format", "result"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time taken by the deadline and penalty sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failures_total",
			Help:      "Sweeps that returned an error.",
		}),
	}

	reg.MustRegister(
		m.challengeTransitions,
		m.penalties,
		m.pairingFallbacks,
		m.scoreSubmissions,
		m.sweepDuration,
		m.sweepFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *Metrics) ChallengeTransition(division, status string) {
	if m == nil {
		return
	}
	m.challengeTransitions.WithLabelValues(division, status).Inc()
}

func (m *Metrics) Penalty(division, reason string, places int) {
	if m == nil {
		return
	}
	m.penalties.WithLabelValues(division, reason).Add(float64(places))
}

func (m *Metrics) PairingFallbacks(n int) {
	if m == nil || n == 0 {
		return
	}
	m.pairingFallbacks.Add(float64(n))
}

func (m *Metrics) ScoreSubmission(format, result string) {
	if m == nil {
		return
	}
	m.scoreSubmissions.WithLabelValues(format, result).Inc()
}

func (m *Metrics) ObserveSweep(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
	if err != nil {
		m.sweepFailures.Inc()
	}
}
