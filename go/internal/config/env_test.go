package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("COURTSIDE_STR", "nats://broker:4222")
	t.Setenv("COURTSIDE_INT", "12")
	t.Setenv("COURTSIDE_BAD_INT", "twelve")
	t.Setenv("COURTSIDE_DUR", "750ms")
	t.Setenv("COURTSIDE_BOOL", "true")

	assert.Equal(t, "nats://broker:4222", GetEnv("COURTSIDE_STR", "x"))
	assert.Equal(t, "fallback", GetEnv("COURTSIDE_UNSET", "fallback"))
	assert.Equal(t, 12, GetEnvAsInt("COURTSIDE_INT", 1))
	assert.Equal(t, 1, GetEnvAsInt("COURTSIDE_BAD_INT", 1))
	assert.Equal(t, 750*time.Millisecond, GetEnvAsDuration("COURTSIDE_DUR", time.Second))
	assert.Equal(t, time.Second, GetEnvAsDuration("COURTSIDE_UNSET", time.Second))
	assert.True(t, GetEnvAsBool("COURTSIDE_BOOL", false))
}

func TestSetupLoggingLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "warn")
	SetupLogging("test")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	t.Setenv("LOG_LEVEL", "nonsense")
	SetupLogging("test")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}
