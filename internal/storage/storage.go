package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/karenbot/karen/internal/models"
)

// ErrThreadNotFound is returned when no thread exists for a phone number.
var ErrThreadNotFound = errors.New("thread not found")

// Backend names accepted by Open.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Storage persists conversation threads keyed by phone number. SaveThread
// overwrites the whole document; there are no partial updates.
type Storage interface {
	LoadThread(ctx context.Context, phoneNumber string) (*models.Thread, error)
	SaveThread(ctx context.Context, thread *models.Thread) error
	DeleteThread(ctx context.Context, phoneNumber string) error
	ListActiveThreads(ctx context.Context) ([]*models.Thread, error)

	// Type identifies the backend ("redis", "postgres" or "memory") for
	// stats and diagnostics.
	Type() string
	Close() error
}

type Config struct {
	Backend  string
	Redis    RedisConfig
	Postgres PostgresConfig

	// TTL is applied by backends with native key expiry as a safety net
	// behind the manager's own expiration checks. Zero disables it.
	TTL time.Duration
}

// Open builds the configured backend. When the primary store cannot be
// reached the error is logged and an in-memory store is returned instead,
// so the conversation pipeline keeps running in degraded mode. Only an
// unrecognized backend name is a hard error.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Storage, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStorage(), nil
	case BackendRedis:
		s, err := NewRedisStorage(ctx, cfg.Redis, cfg.TTL)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory storage",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err))
			return NewMemoryStorage(), nil
		}
		return s, nil
	case BackendPostgres:
		s, err := NewPostgresStorage(cfg.Postgres)
		if err != nil {
			logger.Warn("Postgres unavailable, falling back to in-memory storage",
				zap.String("host", cfg.Postgres.Host),
				zap.Error(err))
			return NewMemoryStorage(), nil
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}
