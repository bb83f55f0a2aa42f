package player

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Source defines what the app layer needs from a player store
type Source interface {
	ListAvailable(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error)
}

// Filter narrows the available pool.
type Filter struct {
	Position string `json:"position,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Page is one page of available players.
type Page struct {
	Players []models.Player `json:"players"`
	Total   int             `json:"total"`
}

type CacheConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:             30 * time.Second,
		CleanupInterval: time.Minute,
	}
}

// App serves the available player pool of each session through a read cache.
// Every committed pick must call Invalidate for its session.
type App struct {
	source Source
	cache  *cache.Cache

	// generations counts invalidations per session. A load that started
	// before an Invalidate must not repopulate the cache.
	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

func NewApp(source Source, cfg CacheConfig) *App {
	return &App{
		source:      source,
		cache:       cache.New(cfg.TTL, cfg.CleanupInterval),
		generations: make(map[uuid.UUID]uint64),
	}
}

// Available returns the filtered, paginated pool of undrafted players.
func (a *App) Available(ctx context.Context, sessionID uuid.UUID, filter Filter) (*Page, error) {
	pool, err := a.pool(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Player, 0, len(pool))
	position := strings.ToUpper(strings.TrimSpace(filter.Position))
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for _, p := range pool {
		if position != "" && p.Position != position {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.FullName), search) &&
			!strings.Contains(strings.ToLower(p.NBATeam), search) {
			continue
		}
		matched = append(matched, p)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	page := &Page{Total: len(matched), Players: []models.Player{}}
	if offset >= len(matched) {
		return page, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page.Players = matched[offset:end]
	return page, nil
}

// Invalidate drops the cached pool of a session.
func (a *App) Invalidate(sessionID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generations[sessionID]++
	a.cache.Delete(cacheKey(sessionID))
}

// Cached reports how many session pools are currently held.
func (a *App) Cached() int {
	return a.cache.ItemCount()
}

func (a *App) pool(ctx context.Context, sessionID uuid.UUID) ([]models.Player, error) {
	key := cacheKey(sessionID)
	if cached, ok := a.cache.Get(key); ok {
		return cached.([]models.Player), nil
	}

	a.mu.Lock()
	generation := a.generations[sessionID]
	a.mu.Unlock()

	players, err := a.source.ListAvailable(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load available players: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generations[sessionID] != generation {
		log.Debug().
			Str("session_id", sessionID.String()).
			Msg("pool invalidated while loading, not caching it")
		return players, nil
	}
	a.cache.Set(key, players, cache.DefaultExpiration)

	log.Debug().
		Str("session_id", sessionID.String()).
		Int("players", len(players)).
		Msg("cached available player pool")
	return players, nil
}

func cacheKey(sessionID uuid.UUID) string {
	return "available:" + sessionID.String()
}
