package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/karenbot/karen/internal/models"
)

const threadKeyPrefix = "thread:"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStorage persists each thread as a JSON value under "thread:<phone>".
// Keys carry an optional TTL well past the conversation expiration window,
// so abandoned threads eventually vanish even if cleanup never runs.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStorage(ctx context.Context, config RedisConfig, ttl time.Duration) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Test the connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	return &RedisStorage{client: client, ttl: ttl}, nil
}

func threadKey(phoneNumber string) string {
	return threadKeyPrefix + phoneNumber
}

func (s *RedisStorage) LoadThread(ctx context.Context, phoneNumber string) (*models.Thread, error) {
	doc, err := s.client.Get(ctx, threadKey(phoneNumber)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading thread: %w", err)
	}

	var thread models.Thread
	if err := json.Unmarshal(doc, &thread); err != nil {
		return nil, fmt.Errorf("error decoding thread document: %w", err)
	}
	return &thread, nil
}

func (s *RedisStorage) SaveThread(ctx context.Context, thread *models.Thread) error {
	doc, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("error encoding thread document: %w", err)
	}

	if err := s.client.Set(ctx, threadKey(thread.PhoneNumber), doc, s.ttl).Err(); err != nil {
		return fmt.Errorf("error saving thread: %w", err)
	}
	return nil
}

func (s *RedisStorage) DeleteThread(ctx context.Context, phoneNumber string) error {
	deleted, err := s.client.Del(ctx, threadKey(phoneNumber)).Result()
	if err != nil {
		return fmt.Errorf("error deleting thread: %w", err)
	}
	if deleted == 0 {
		return ErrThreadNotFound
	}
	return nil
}

func (s *RedisStorage) ListActiveThreads(ctx context.Context) ([]*models.Thread, error) {
	var threads []*models.Thread

	iter := s.client.Scan(ctx, 0, threadKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		doc, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// Key expired between scan and get; skip it.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error loading thread: %w", err)
		}
		var thread models.Thread
		if err := json.Unmarshal(doc, &thread); err != nil {
			return nil, fmt.Errorf("error decoding thread document: %w", err)
		}
		threads = append(threads, &thread)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning threads: %w", err)
	}
	return threads, nil
}

func (s *RedisStorage) Type() string {
	return BackendRedis
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
