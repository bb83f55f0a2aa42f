package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/mcdev12/courtside/go/internal/config"
	"github.com/mcdev12/courtside/go/internal/draft/broadcast"
	"github.com/mcdev12/courtside/go/internal/draft/scheduler"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/player"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Draft     DraftConfig     `yaml:"draft"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Cache     CacheConfig     `yaml:"cache"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ApplySchema     bool          `yaml:"apply_schema"`
}

// DraftConfig holds the settings used when a CreateDraftSession request leaves
// them unset.
type DraftConfig struct {
	PickTimeLimitSec int                             `yaml:"pick_time_limit_sec"`
	TeamSize         int                             `yaml:"team_size"`
	AutoPickMetric   string                          `yaml:"auto_pick_metric"`
	SeatOrder        string                          `yaml:"seat_order"`
	PositionLimits   map[string]models.PositionLimit `yaml:"position_limits"`
}

type SchedulerConfig struct {
	Embedded     bool          `yaml:"embedded"`
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
	Workers      int           `yaml:"workers"`
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type BroadcastConfig struct {
	NatsURL        string        `yaml:"nats_url"`
	StreamName     string        `yaml:"stream_name"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	// Spool failed events to the outbox table for the relay to retry.
	Spool bool `yaml:"spool"`
}

func defaultConfig() *Config {
	sched := scheduler.DefaultConfig()
	cache := player.DefaultCacheConfig()
	js := broadcast.DefaultJetStreamConfig()

	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Draft: DraftConfig{
			AutoPickMetric: string(models.AutoPickMetricPrice),
			SeatOrder:      string(models.SeatOrderRandom),
		},
		Scheduler: SchedulerConfig{
			Embedded:     true,
			PollInterval: sched.PollInterval,
			BatchSize:    sched.BatchSize,
			Workers:      sched.Workers,
			CheckTimeout: sched.CheckTimeout,
		},
		Cache: CacheConfig{
			TTL:             cache.TTL,
			CleanupInterval: cache.CleanupInterval,
		},
		Broadcast: BroadcastConfig{
			NatsURL:        js.URL,
			StreamName:     js.StreamName,
			PublishTimeout: js.PublishTimeout,
			Spool:          true,
		},
	}
}

// loadConfig reads path over the defaults, then applies environment
// overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = config.GetEnv("PORT", c.Server.Port)
	if origins := config.GetEnv("ALLOWED_ORIGINS", ""); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	c.Server.ApplySchema = config.GetEnvAsBool("DB_APPLY_SCHEMA", c.Server.ApplySchema)

	c.Draft.PickTimeLimitSec = config.GetEnvAsInt("DRAFT_PICK_TIME_LIMIT_SEC", c.Draft.PickTimeLimitSec)
	c.Draft.TeamSize = config.GetEnvAsInt("DRAFT_TEAM_SIZE", c.Draft.TeamSize)

	c.Scheduler.Embedded = config.GetEnvAsBool("SCHEDULER_EMBEDDED", c.Scheduler.Embedded)
	c.Scheduler.PollInterval = config.GetEnvAsDuration("SCHEDULER_POLL_INTERVAL", c.Scheduler.PollInterval)
	c.Scheduler.BatchSize = config.GetEnvAsInt("SCHEDULER_BATCH_SIZE", c.Scheduler.BatchSize)
	c.Scheduler.Workers = config.GetEnvAsInt("SCHEDULER_WORKERS", c.Scheduler.Workers)

	c.Cache.TTL = config.GetEnvAsDuration("PLAYER_CACHE_TTL", c.Cache.TTL)

	c.Broadcast.NatsURL = config.GetEnv("NATS_URL", c.Broadcast.NatsURL)
	c.Broadcast.Spool = config.GetEnvAsBool("BROADCAST_SPOOL", c.Broadcast.Spool)
}

func (c *Config) draftDefaults() models.DraftSettings {
	return models.DraftSettings{
		PickTimeLimitSec: c.Draft.PickTimeLimitSec,
		TeamSize:         c.Draft.TeamSize,
		AutoPickMetric:   models.AutoPickMetric(c.Draft.AutoPickMetric),
		SeatOrder:        models.SeatOrder(c.Draft.SeatOrder),
		PositionLimits:   c.Draft.PositionLimits,
	}
}

func (c *Config) schedulerConfig() scheduler.Config {
	return scheduler.Config{
		PollInterval: c.Scheduler.PollInterval,
		BatchSize:    c.Scheduler.BatchSize,
		Workers:      c.Scheduler.Workers,
		CheckTimeout: c.Scheduler.CheckTimeout,
	}
}

func (c *Config) cacheConfig() player.CacheConfig {
	return player.CacheConfig{TTL: c.Cache.TTL, CleanupInterval: c.Cache.CleanupInterval}
}

func (c *Config) jetStreamConfig() broadcast.JetStreamConfig {
	js := broadcast.DefaultJetStreamConfig()
	js.URL = c.Broadcast.NatsURL
	if c.Broadcast.StreamName != "" {
		js.StreamName = c.Broadcast.StreamName
	}
	if c.Broadcast.PublishTimeout > 0 {
		js.PublishTimeout = c.Broadcast.PublishTimeout
	}
	return js
}
