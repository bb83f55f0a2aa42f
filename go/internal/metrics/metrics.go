package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder defines the draft metrics the rest of the module reports.
type Recorder interface {
	RecordPick(auto bool, duration time.Duration)
	RecordBroadcast(eventType string, success bool)
	RecordExpiryCheck(result string)
	RecordOutboxPublish(eventType string, attempt int, success bool)
	RecordOutboxLag(lag int)
}

// Expiry check results.
const (
	ExpiryApplied = "applied"
	ExpiryNoop    = "noop"
	ExpiryFailed  = "failed"
	ExpiryFatal   = "no_eligible_player"
)

// NoOp is a Recorder for when metrics aren't needed
type NoOp struct{}

func (NoOp) RecordPick(bool, time.Duration)        {}
func (NoOp) RecordBroadcast(string, bool)          {}
func (NoOp) RecordExpiryCheck(string)              {}
func (NoOp) RecordOutboxPublish(string, int, bool) {}
func (NoOp) RecordOutboxLag(int)                   {}

// Prometheus implements Recorder using Prometheus collectors
type Prometheus struct {
	picks           *prometheus.CounterVec
	pickDuration    prometheus.Histogram
	broadcasts      *prometheus.CounterVec
	expiryChecks    *prometheus.CounterVec
	publishAttempts *prometheus.CounterVec
	outboxLag       prometheus.Gauge
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	m := &Prometheus{
		picks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Subsystem: "draft",
			Name:      "picks_total",
			Help:      "Committed draft picks by kind.",
		}, []string{"kind"}),
		pickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "courtside",
			Subsystem: "draft",
			Name:      "pick_commit_seconds",
			Help:      "Time spent inside the league critical section for a pick.",
			Buckets:   prometheus.DefBuckets,
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Subsystem: "draft",
			Name:      "broadcasts_total",
			Help:      "Broadcast publish outcomes by event type.",
		}, []string{"event_type", "status"}),
		expiryChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Subsystem: "draft",
			Name:      "expiry_checks_total",
			Help:      "Expiry check outcomes.",
		}, []string{"result"}),
		publishAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courtside",
			Subsystem: "outbox",
			Name:      "publish_attempts_total",
			Help:      "Outbox republish attempts.",
		}, []string{"event_type", "attempt", "status"}),
		outboxLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "courtside",
			Subsystem: "outbox",
			Name:      "unsent_events",
			Help:      "Broadcasts waiting in the outbox.",
		}),
	}
	reg.MustRegister(m.picks, m.pickDuration, m.broadcasts, m.expiryChecks, m.publishAttempts, m.outboxLag)
	return m
}

func (m *Prometheus) RecordPick(auto bool, duration time.Duration) {
	kind := "manual"
	if auto {
		kind = "auto"
	}
	m.picks.WithLabelValues(kind).Inc()
	m.pickDuration.Observe(duration.Seconds())
}

func (m *Prometheus) RecordBroadcast(eventType string, success bool) {
	m.broadcasts.WithLabelValues(eventType, status(success)).Inc()
}

func (m *Prometheus) RecordExpiryCheck(result string) {
	m.expiryChecks.WithLabelValues(result).Inc()
}

func (m *Prometheus) RecordOutboxPublish(eventType string, attempt int, success bool) {
	m.publishAttempts.WithLabelValues(eventType, attemptLabel(attempt), status(success)).Inc()
}

func (m *Prometheus) RecordOutboxLag(lag int) {
	m.outboxLag.Set(float64(lag))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func attemptLabel(attempt int) string {
	switch {
	case attempt <= 1:
		return "1"
	case attempt == 2:
		return "2"
	case attempt == 3:
		return "3"
	default:
		return "4+"
	}
}
