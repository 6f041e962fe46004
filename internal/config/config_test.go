package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8750", cfg.ListenAddr)
	assert.Equal(t, "data/chess-progress.zst", cfg.StateFile)
	assert.Equal(t, 650*time.Millisecond, cfg.LiveReplyDelay)
	assert.Equal(t, 400*time.Millisecond, cfg.DailyReplyDelay)
	assert.Equal(t, "balanced", cfg.DefaultPersona)
	assert.Equal(t, "intermediate", cfg.DefaultDifficulty)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("STATE_FILE", "/tmp/state.zst")
	t.Setenv("LIVE_REPLY_DELAY_MS", "100")
	t.Setenv("DAILY_REPLY_DELAY_MS", "bogus")
	t.Setenv("DEFAULT_DIFFICULTY", "advanced")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "/tmp/state.zst", cfg.StateFile)
	assert.Equal(t, 100*time.Millisecond, cfg.LiveReplyDelay)
	// Unparseable values keep the default.
	assert.Equal(t, 400*time.Millisecond, cfg.DailyReplyDelay)
	assert.Equal(t, "advanced", cfg.DefaultDifficulty)
}
