package booking

import (
	"context"
	"fmt"
	"strings"
)

const (
	BackendAuto     = "auto"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type StoreConfig struct {
	Backend     string
	DatabaseURL string
	RedisURL    string
}

// NewStore creates the configured store. In auto mode postgres wins when a
// database URL is set, then redis, then in-memory.
func NewStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	databaseURL := strings.TrimSpace(cfg.DatabaseURL)
	redisURL := strings.TrimSpace(cfg.RedisURL)

	switch backend {
	case "", BackendAuto:
		switch {
		case databaseURL != "":
			return NewPostgresStore(ctx, databaseURL)
		case redisURL != "":
			return NewRedisStore(ctx, redisURL)
		default:
			return NewInMemoryStore(), nil
		}
	case BackendMemory:
		return NewInMemoryStore(), nil
	case BackendPostgres:
		if databaseURL == "" {
			return nil, fmt.Errorf("postgres booking store requires a database url")
		}
		return NewPostgresStore(ctx, databaseURL)
	case BackendRedis:
		if redisURL == "" {
			return nil, fmt.Errorf("redis booking store requires a redis url")
		}
		return NewRedisStore(ctx, redisURL)
	default:
		return nil, fmt.Errorf("unsupported booking store backend %q", cfg.Backend)
	}
}
