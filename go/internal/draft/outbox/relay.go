package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/mcdev12/courtside/go/internal/draft/events"
	"github.com/mcdev12/courtside/go/internal/metrics"
	"github.com/rs/zerolog/log"
)

// NotifyChannel is the channel the outbox insert trigger notifies on.
const NotifyChannel = "draft_broadcast_outbox"

type RelayConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to poll for missed events
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int // Max entries to fetch per poll
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		NotifyChannel:    NotifyChannel,
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// Store is what the relay needs from the outbox table.
type Store interface {
	FetchUnsent(ctx context.Context, limit int) ([]Entry, error)
	FetchByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAttempt(ctx context.Context, id uuid.UUID) error
	CountUnsent(ctx context.Context) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Notifier delivers outbox insert notifications. *pq.Listener satisfies it.
type Notifier interface {
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// NewPQNotifier opens a dedicated LISTEN connection on cfg.NotifyChannel.
func NewPQNotifier(cfg RelayConfig) (*pq.Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("outbox listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for outbox notifications")
	return l, nil
}

// Relay republishes spooled broadcasts until they are delivered.
type Relay struct {
	store     Store
	notifier  Notifier
	publisher Publisher
	clock     clockwork.Clock
	metrics   metrics.Recorder
	cfg       RelayConfig

	mu        sync.Mutex
	processed uint64
	lastSent  time.Time
}

func NewRelay(store Store, notifier Notifier, publisher Publisher, clock clockwork.Clock, m metrics.Recorder, cfg RelayConfig) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if m == nil {
		m = metrics.NoOp{}
	}
	return &Relay{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		clock:     clock,
		metrics:   m,
		cfg:       cfg,
	}
}

// Start drains the backlog once, then serves notifications and the fallback
// poll until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	log.Info().
		Str("channel", r.cfg.NotifyChannel).
		Dur("ping_interval", r.cfg.PingInterval).
		Dur("fallback_interval", r.cfg.FallbackInterval).
		Msg("outbox relay started")

	if err := r.ProcessUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to drain outbox backlog")
	}

	pingTicker := r.clock.NewTicker(r.cfg.PingInterval)
	fallbackTicker := r.clock.NewTicker(r.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	notes := r.notifier.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox relay shutting down")
			return r.notifier.Close()
		case note := <-notes:
			if note == nil {
				// connection was re-established; anything missed is unsent
				if err := r.ProcessUnsent(ctx); err != nil {
					log.Error().Err(err).Msg("failed to process unsent entries after reconnect")
				}
				continue
			}
			if err := r.HandleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle outbox notification")
			}
		case <-fallbackTicker.Chan():
			if err := r.ProcessUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent entries")
			}
		case <-pingTicker.Chan():
			if err := r.notifier.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping outbox listener")
			}
		}
	}
}

// HandleNotification publishes the entry whose id is the notification payload.
func (r *Relay) HandleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid entry ID in notification: %w", err)
	}

	entry, err := r.store.FetchByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			// already relayed by the fallback poll
			return nil
		}
		return fmt.Errorf("failed to fetch outbox entry: %w", err)
	}

	if err := r.publishWithRetry(ctx, *entry); err != nil {
		return err
	}
	r.reportLag(ctx)
	return nil
}

// ProcessUnsent publishes one batch of unsent entries in creation order.
func (r *Relay) ProcessUnsent(ctx context.Context) error {
	unsent, err := r.store.FetchUnsent(ctx, r.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch unsent outbox entries: %w", err)
	}

	for _, entry := range unsent {
		if err := r.publishWithRetry(ctx, entry); err != nil {
			log.Error().Err(err).Str("event_id", entry.ID.String()).Msg("failed to relay outbox entry")
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
	r.reportLag(ctx)
	return nil
}

// Stats returns how many entries were relayed and when the last one was sent.
func (r *Relay) Stats() (uint64, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed, r.lastSent
}

func (r *Relay) publishWithRetry(ctx context.Context, entry Entry) error {
	event := entry.Event()
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if delay := r.cfg.RetryDelay * time.Duration(attempt); delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-r.clock.After(delay):
				}
			}
		}

		err := r.publisher.Publish(ctx, event)
		r.metrics.RecordOutboxPublish(string(entry.EventType), attempt+1, err == nil)
		if err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", entry.ID.String()).
				Msg("failed to publish outbox entry, retrying")
			continue
		}

		now := r.clock.Now()
		if err := r.store.MarkSent(ctx, entry.ID, now); err != nil {
			return err
		}
		r.mu.Lock()
		r.processed++
		r.lastSent = now
		r.mu.Unlock()

		log.Info().
			Int("attempt", attempt+1).
			Str("event_id", entry.ID.String()).
			Str("event_type", string(entry.EventType)).
			Str("league_id", entry.LeagueID.String()).
			Msg("relayed outbox entry")
		return nil
	}

	if err := r.store.MarkAttempt(ctx, entry.ID); err != nil {
		log.Error().Err(err).Str("event_id", entry.ID.String()).Msg("failed to record outbox attempt")
	}
	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}

func (r *Relay) reportLag(ctx context.Context) {
	n, err := r.store.CountUnsent(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count unsent outbox entries")
		return
	}
	r.metrics.RecordOutboxLag(n)
}
