package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

// HighPendingThreshold is the backlog size reported as a warning.
const HighPendingThreshold = 1000

type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	LastSentTime      time.Time `json:"last_sent_time"`
	EntriesRelayed    uint64    `json:"entries_relayed"`
	PendingEntries    int       `json:"pending_entries"`
	DatabaseConnected bool      `json:"database_connected"`
	NATSConnected     bool      `json:"nats_connected"`
	Errors            []string  `json:"errors"`
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthChecker struct {
	relay     *Relay
	db        Pinger
	store     Store
	connected func() bool
	clock     clockwork.Clock
	threshold time.Duration // How long a backlog may sit without a send before unhealthy
}

// NewHealthChecker builds a checker; connected reports the broker connection.
func NewHealthChecker(relay *Relay, db Pinger, store Store, connected func() bool, clock clockwork.Clock, threshold time.Duration) *HealthChecker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HealthChecker{
		relay:     relay,
		db:        db,
		store:     store,
		connected: connected,
		clock:     clock,
		threshold: threshold,
	}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	status.EntriesRelayed, status.LastSentTime = h.relay.Stats()

	if err := h.db.PingContext(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.connected != nil {
		status.NATSConnected = h.connected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if status.DatabaseConnected {
		pending, err := h.store.CountUnsent(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending entries: %v", err))
		} else {
			status.PendingEntries = pending
			if pending > HighPendingThreshold {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending entry count: %d", pending))
			}
		}
	}

	// a backlog that is not draining
	if status.PendingEntries > 0 && !status.LastSentTime.IsZero() {
		if since := h.clock.Since(status.LastSentTime); since > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no entries relayed for %s", since))
		}
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
