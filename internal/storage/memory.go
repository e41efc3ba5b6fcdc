package storage

import (
	"context"
	"sync"

	"github.com/karenbot/karen/internal/models"
)

// MemoryStorage keeps threads in process memory. It is both a backend in
// its own right and the fallback Open returns when the primary store is
// unreachable. All state is lost on restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	threads map[string]*models.Thread
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		threads: make(map[string]*models.Thread),
	}
}

func (s *MemoryStorage) LoadThread(ctx context.Context, phoneNumber string) (*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, exists := s.threads[phoneNumber]
	if !exists {
		return nil, ErrThreadNotFound
	}
	return thread.Clone(), nil
}

func (s *MemoryStorage) SaveThread(ctx context.Context, thread *models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads[thread.PhoneNumber] = thread.Clone()
	return nil
}

func (s *MemoryStorage) DeleteThread(ctx context.Context, phoneNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.threads[phoneNumber]; !exists {
		return ErrThreadNotFound
	}
	delete(s.threads, phoneNumber)
	return nil
}

func (s *MemoryStorage) ListActiveThreads(ctx context.Context) ([]*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]*models.Thread, 0, len(s.threads))
	for _, thread := range s.threads {
		threads = append(threads, thread.Clone())
	}
	return threads, nil
}

func (s *MemoryStorage) Type() string {
	return BackendMemory
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
