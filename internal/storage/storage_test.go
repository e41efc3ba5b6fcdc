package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenMemoryBackend(t *testing.T) {
	s, err := Open(context.Background(), Config{Backend: BackendMemory}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Type())
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "cassandra"}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenFallsBackWhenRedisUnreachable(t *testing.T) {
	// Port 1 is never listening; the probe must fail and Open must hand
	// back a working in-memory store instead of an error.
	cfg := Config{
		Backend: BackendRedis,
		Redis:   RedisConfig{Addr: "127.0.0.1:1"},
		TTL:     time.Hour,
	}

	s, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Type())

	require.NoError(t, s.SaveThread(context.Background(), testThread("+17575551234")))
	loaded, err := s.LoadThread(context.Background(), "+17575551234")
	require.NoError(t, err)
	assert.Equal(t, "+17575551234", loaded.PhoneNumber)
}

func TestOpenFallsBackWhenPostgresUnreachable(t *testing.T) {
	cfg := Config{
		Backend: BackendPostgres,
		Postgres: PostgresConfig{
			Host:    "127.0.0.1",
			Port:    1,
			User:    "karen",
			DBName:  "karen",
			SSLMode: "disable",
		},
	}

	s, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Type())
}
