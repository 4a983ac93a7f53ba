// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	SessionsStarted  *prometheus.CounterVec
	SessionsErrored  *prometheus.CounterVec
	SessionsFinished *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	Answers          *prometheus.CounterVec
	ProgressFailures prometheus.Counter
	AttemptReports   *prometheus.CounterVec
	Utterances       *prometheus.CounterVec
	QuestionFetch    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ullas_sessions_started_total",
			Help: "Game sessions started, by game type.",
		}, []string{"game"}),
		SessionsErrored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ullas_sessions_errored_total",
			Help: "Game sessions that could not load their questions.",
		}, []string{"game"}),
		SessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ullas_sessions_finished_total",
			Help: "Game sessions that reached the summary.",
		}, []string{"game"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ullas_active_sessions",
			Help: "Sessions currently held in memory.",
		}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ullas_answers_total",
			Help: "Locked answers, by game type and correctness.",
		}, []string{"game", "correct"}),
		ProgressFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ullas_progress_failures_total",
			Help: "Progress updates that failed to persist.",
		}),
		AttemptReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ullas_attempt_reports_total",
			Help: "Attempt reports by sink and result (sent, failed, dropped).",
		}, []string{"sink", "result"}),
		Utterances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ullas_utterances_total",
			Help: "Narration requests by outcome (played, dropped, interrupted, failed).",
		}, []string{"outcome"}),
		QuestionFetch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ullas_question_fetch_seconds",
			Help:    "Question source latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source", "result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SessionsStarted,
			m.SessionsErrored,
			m.SessionsFinished,
			m.ActiveSessions,
			m.Answers,
			m.ProgressFailures,
			m.AttemptReports,
			m.Utterances,
			m.QuestionFetch,
		)
	}
	return m
}

func (m *Metrics) SessionStarted(game string) {
	if m != nil {
		m.SessionsStarted.WithLabelValues(game).Inc()
	}
}

func (m *Metrics) SessionErrored(game string) {
	if m != nil {
		m.SessionsErrored.WithLabelValues(game).Inc()
	}
}

func (m *Metrics) SessionFinished(game string) {
	if m != nil {
		m.SessionsFinished.WithLabelValues(game).Inc()
	}
}

func (m *Metrics) SetActiveSessions(n int) {
	if m != nil {
		m.ActiveSessions.Set(float64(n))
	}
}

func (m *Metrics) Answer(game string, correct bool) {
	if m == nil {
		return
	}
	label := "false"
	if correct {
		label = "true"
	}
	m.Answers.WithLabelValues(game, label).Inc()
}

func (m *Metrics) ProgressFailed() {
	if m != nil {
		m.ProgressFailures.Inc()
	}
}

func (m *Metrics) AttemptReport(sink, result string) {
	if m != nil {
		m.AttemptReports.WithLabelValues(sink, result).Inc()
	}
}

func (m *Metrics) Utterance(outcome string) {
	if m != nil {
		m.Utterances.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveFetch(source, result string, seconds float64) {
	if m != nil {
		m.QuestionFetch.WithLabelValues(source, result).Observe(seconds)
	}
}
