package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	// State persistence: Redis when REDIS_URL is set, otherwise a local
	// compressed snapshot file.
	RedisURL  string
	StateFile string

	// Engine reply pacing (simulated think time).
	LiveReplyDelay  time.Duration
	DailyReplyDelay time.Duration

	// Optional persona profile override file (YAML).
	PersonaFile string

	DefaultPersona    string
	DefaultDifficulty string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:        ":8750",
		StateFile:         "data/chess-progress.zst",
		LiveReplyDelay:    650 * time.Millisecond,
		DailyReplyDelay:   400 * time.Millisecond,
		DefaultPersona:    "balanced",
		DefaultDifficulty: "intermediate",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("STATE_FILE")); v != "" {
		cfg.StateFile = v
	}
	if v := strings.TrimSpace(os.Getenv("LIVE_REPLY_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LiveReplyDelay = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("DAILY_REPLY_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.DailyReplyDelay = time.Duration(n) * time.Millisecond
		}
	}
	cfg.PersonaFile = strings.TrimSpace(os.Getenv("PERSONA_FILE"))
	if v := strings.TrimSpace(os.Getenv("DEFAULT_PERSONA")); v != "" {
		cfg.DefaultPersona = v
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_DIFFICULTY")); v != "" {
		cfg.DefaultDifficulty = v
	}

	return cfg, nil
}
