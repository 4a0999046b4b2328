package config

import (
	"errors"
	"os"
	"strings"
	"time"

	platformconfig "github.com/yond5413/pentagram/internal/platform/config"
)

// Config holds the social service settings on top of the platform AppConfig.
type Config struct {
	// DatabaseURL selects the Postgres store; empty means in-memory (development only).
	DatabaseURL string
	// RedisURL selects the shared Redis row cache; empty means a per-process cache.
	RedisURL string
	// NATSURL enables event publishing and the invalidation worker when set.
	NATSURL   string
	JWTSecret string

	CacheTTL       time.Duration
	CandidateLimit int
	CommentLimit   int

	// ToggleRate and ToggleBurst bound like/follow requests per user.
	ToggleRate  float64
	ToggleBurst int

	WorkerBatchSize int
	WorkerMaxWait   time.Duration
}

// Load reads the social service settings from the environment. JWT_SECRET
// is required; everything else has a default.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:        strings.TrimSpace(os.Getenv("REDIS_URL")),
		NATSURL:         strings.TrimSpace(os.Getenv("NATS_URL")),
		JWTSecret:       strings.TrimSpace(os.Getenv("JWT_SECRET")),
		CacheTTL:        platformconfig.EnvDuration("CACHE_TTL", 60*time.Second),
		CandidateLimit:  platformconfig.EnvInt("TRENDING_CANDIDATE_LIMIT", 100),
		CommentLimit:    platformconfig.EnvInt("COMMENT_LIMIT", 50),
		ToggleRate:      platformconfig.EnvFloat("TOGGLE_RATE", 5),
		ToggleBurst:     platformconfig.EnvInt("TOGGLE_BURST", 10),
		WorkerBatchSize: platformconfig.EnvInt("WORKER_BATCH_SIZE", 100),
		WorkerMaxWait:   time.Duration(platformconfig.EnvInt("WORKER_BATCH_INTERVAL_MS", 2000)) * time.Millisecond,
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}
