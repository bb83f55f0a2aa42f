package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg)

	m.RecordPick(false, 5*time.Millisecond)
	m.RecordPick(true, 3*time.Millisecond)
	m.RecordPick(true, 3*time.Millisecond)
	m.RecordBroadcast("pick-made", false)
	m.RecordExpiryCheck(ExpiryApplied)
	m.RecordOutboxPublish("pick-made", 7, true)
	m.RecordOutboxLag(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.picks.WithLabelValues("manual")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.picks.WithLabelValues("auto")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.broadcasts.WithLabelValues("pick-made", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.expiryChecks.WithLabelValues(ExpiryApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishAttempts.WithLabelValues("pick-made", "4+", "success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.outboxLag))
}
