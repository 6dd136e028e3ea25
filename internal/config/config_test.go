package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORAGE", "PUZZLE_UTC_OFFSET_HOURS", "REVEAL_DURATION", "NODE_ENV"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	assert.Equal(t, "5175", c.Port)
	assert.Equal(t, StorageSQLite, c.Storage)
	assert.Equal(t, 7, c.PuzzleOffsetHours)
	assert.Equal(t, "2022-01-20", c.PuzzleEpoch)
	assert.Equal(t, 2400*time.Millisecond, c.RevealDuration)
	assert.Equal(t, 5*time.Second, c.LiveNewGameDelay)
	assert.False(t, c.Production)
	assert.Equal(t, 14*24*time.Hour, c.JWTTTL())
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORAGE", "Memory")
	t.Setenv("PUZZLE_UTC_OFFSET_HOURS", "0")
	t.Setenv("PUZZLE_PUBLISH_LEAD", "30m")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("NODE_ENV", "production")

	c := FromEnv()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, StorageMemory, c.Storage)
	assert.Equal(t, 0, c.PuzzleOffsetHours)
	assert.Equal(t, 30*time.Minute, c.PublishLead)
	assert.Equal(t, 2.5, c.RateLimitRPS)
	assert.True(t, c.LogPretty)
	assert.True(t, c.Production)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("STORAGE", "redis")
	t.Setenv("JWT_EXPIRES_DAYS", "two")
	t.Setenv("REVEAL_DURATION", "soon")
	t.Setenv("LOG_PRETTY", "maybe")

	c := FromEnv()
	assert.Equal(t, StorageSQLite, c.Storage)
	assert.Equal(t, 14, c.JWTExpiresDays)
	assert.Equal(t, 2400*time.Millisecond, c.RevealDuration)
	assert.False(t, c.LogPretty)
}
