package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karenbot/karen/internal/classifier"
	"github.com/karenbot/karen/internal/models"
	"github.com/karenbot/karen/internal/notify"
	"github.com/karenbot/karen/internal/storage"
)

// ErrInvalidPhoneNumber is returned when a phone number is empty or not a
// phone number at all. Missing keys fail fast; everything else about a
// message is handled leniently.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

const (
	DefaultExpirationWindow = 24 * time.Hour
	DefaultRecentMessages   = 5
)

// Config tunes the manager.
type Config struct {
	// ExpirationWindow is how long a thread may sit idle before it is
	// treated as expired. Zero means the 24 hour default.
	ExpirationWindow time.Duration
	// RecentMessages caps how many trailing messages a context summary
	// carries. Zero means the default of 5.
	RecentMessages int
}

// Manager owns the conversation lifecycle: it classifies message text,
// extracts context, drives the state machine and persists every change as
// a whole-document save. One manager is constructed at startup and shared
// by all handlers; per-phone locks serialize load-mutate-save so
// concurrent webhooks for the same customer cannot lose appends.
type Manager struct {
	store    storage.Storage
	notifier notify.Notifier
	logger   *zap.Logger

	classify func(string) models.MessageType
	extract  func(string) map[string]any

	window time.Duration
	recent int
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Manager)

// WithNotifier routes escalation alerts somewhere a human will see them.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithClassifier swaps the message classifier.
func WithClassifier(fn func(string) models.MessageType) Option {
	return func(m *Manager) { m.classify = fn }
}

// WithExtractor swaps the context extractor.
func WithExtractor(fn func(string) map[string]any) Option {
	return func(m *Manager) { m.extract = fn }
}

func NewManager(store storage.Storage, cfg Config, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		notifier: notify.NoopNotifier{},
		logger:   logger,
		classify: classifier.Classify,
		extract:  classifier.Extract,
		window:   cfg.ExpirationWindow,
		recent:   cfg.RecentMessages,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
	if m.window <= 0 {
		m.window = DefaultExpirationWindow
	}
	if m.recent <= 0 {
		m.recent = DefaultRecentMessages
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartConversation opens a thread for a phone number, or appends to the
// existing one when an active unexpired thread is already present, so
// retrying a first message never forks a second conversation.
func (m *Manager) StartConversation(ctx context.Context, phoneNumber, text string, customerInfo map[string]string) (*models.Thread, error) {
	phone, err := normalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	lock := m.phoneLock(phone)
	lock.Lock()
	defer lock.Unlock()

	return m.appendLocked(ctx, phone, text, models.DirectionInbound, nil, customerInfo)
}

// AddMessage appends one message to the phone number's thread. An absent
// or expired thread is replaced by a brand-new one holding only this
// message. Every message, inbound or outbound, is classified and drives
// context extraction and the state machine; only inbound emergencies page
// the escalation notifier.
func (m *Manager) AddMessage(ctx context.Context, phoneNumber, text string, direction models.Direction, metadata map[string]string) (*models.Thread, error) {
	phone, err := normalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	lock := m.phoneLock(phone)
	lock.Lock()
	defer lock.Unlock()

	return m.appendLocked(ctx, phone, text, direction, metadata, nil)
}

// GetContext returns the read-only summary handed to the response layer.
// No thread, or only an expired one, yields has_conversation=false rather
// than an error.
func (m *Manager) GetContext(ctx context.Context, phoneNumber string) (*models.ContextSummary, error) {
	phone, err := normalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	thread, err := m.store.LoadThread(ctx, phone)
	if errors.Is(err, storage.ErrThreadNotFound) {
		return emptySummary(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	if m.expired(thread) {
		return emptySummary(), nil
	}
	return m.buildSummary(thread), nil
}

// CloseConversation removes the thread. Closing a phone number with no
// active thread returns storage.ErrThreadNotFound.
func (m *Manager) CloseConversation(ctx context.Context, phoneNumber, reason string) error {
	phone, err := normalizePhone(phoneNumber)
	if err != nil {
		return err
	}

	lock := m.phoneLock(phone)
	lock.Lock()
	defer lock.Unlock()

	if err := m.store.DeleteThread(ctx, phone); err != nil {
		if errors.Is(err, storage.ErrThreadNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete thread: %w", err)
	}

	m.logger.Info("Conversation closed",
		zap.String("phone_number", phone),
		zap.String("reason", reason))
	return nil
}

// CleanupExpired deletes every thread idle past the expiration window and
// reports how many were removed. Each candidate is re-checked under its
// phone lock so a customer replying mid-sweep keeps their thread.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	threads, err := m.store.ListActiveThreads(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list threads: %w", err)
	}

	removed := 0
	var firstErr error
	for _, thread := range threads {
		if !m.expired(thread) {
			continue
		}
		ok, err := m.removeIfExpired(ctx, thread.PhoneNumber)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("Expired conversations removed", zap.Int("count", removed))
	}
	return removed, firstErr
}

func (m *Manager) removeIfExpired(ctx context.Context, phone string) (bool, error) {
	lock := m.phoneLock(phone)
	lock.Lock()
	defer lock.Unlock()

	current, err := m.store.LoadThread(ctx, phone)
	if errors.Is(err, storage.ErrThreadNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load thread: %w", err)
	}
	if !m.expired(current) {
		return false, nil
	}

	if err := m.store.DeleteThread(ctx, phone); err != nil {
		if errors.Is(err, storage.ErrThreadNotFound) {
			return false, nil
		}
		m.logger.Error("Failed to delete expired thread",
			zap.Error(err),
			zap.String("phone_number", phone))
		return false, fmt.Errorf("failed to delete thread: %w", err)
	}
	return true, nil
}

// Stats is a read-only aggregate over all stored threads.
type Stats struct {
	ActiveConversations int            `json:"active_conversations"`
	States              map[string]int `json:"states"`
	StorageType         string         `json:"storage_type"`
}

func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	threads, err := m.store.ListActiveThreads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	stats := &Stats{
		ActiveConversations: len(threads),
		States:              make(map[string]int),
		StorageType:         m.store.Type(),
	}
	for _, thread := range threads {
		stats.States[string(thread.State)]++
	}
	return stats, nil
}

// appendLocked is the shared core of StartConversation and AddMessage.
// The caller must hold the phone lock.
func (m *Manager) appendLocked(ctx context.Context, phone, text string, direction models.Direction, metadata, customerInfo map[string]string) (*models.Thread, error) {
	thread, err := m.store.LoadThread(ctx, phone)
	switch {
	case errors.Is(err, storage.ErrThreadNotFound):
		thread = m.newThread(phone)
	case err != nil:
		return nil, fmt.Errorf("failed to load thread: %w", err)
	case m.expired(thread):
		m.logger.Debug("Replacing expired thread",
			zap.String("phone_number", phone),
			zap.String("conversation_id", thread.ID))
		thread = m.newThread(phone)
	}

	if len(customerInfo) > 0 {
		if thread.CustomerInfo == nil {
			thread.CustomerInfo = make(map[string]string, len(customerInfo))
		}
		for k, v := range customerInfo {
			thread.CustomerInfo[k] = v
		}
	}
	if thread.Context == nil {
		thread.Context = make(map[string]any)
	}

	msgType := m.classify(text)
	msg := models.Message{
		ID:          uuid.New().String(),
		PhoneNumber: phone,
		Content:     text,
		Direction:   direction,
		Timestamp:   m.now().UTC(),
		Type:        msgType,
		Metadata:    metadata,
	}
	thread.Messages = append(thread.Messages, msg)
	thread.LastActivity = msg.Timestamp

	for k, v := range m.extract(text) {
		thread.Context[k] = v
	}
	if msgType == models.MessageTypeEmergency {
		thread.Context[models.ContextRequiresHuman] = true
	}
	prev := thread.State
	thread.State = nextState(thread.State, msgType)
	if thread.State != prev {
		m.logger.Debug("State transition",
			zap.String("phone_number", phone),
			zap.String("from", string(prev)),
			zap.String("to", string(thread.State)),
			zap.String("message_type", string(msgType)))
	}

	if err := m.store.SaveThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to save thread: %w", err)
	}

	if direction == models.DirectionInbound && msgType == models.MessageTypeEmergency {
		if err := m.notifier.NotifyEscalation(ctx, thread); err != nil {
			m.logger.Error("Failed to send escalation",
				zap.Error(err),
				zap.String("phone_number", phone))
		}
	}

	return thread, nil
}

func (m *Manager) newThread(phone string) *models.Thread {
	now := m.now().UTC()
	return &models.Thread{
		ID:           uuid.New().String(),
		PhoneNumber:  phone,
		State:        models.StateInitialContact,
		CreatedAt:    now,
		LastActivity: now,
		Messages:     []models.Message{},
		Context:      make(map[string]any),
	}
}

// expired reports whether the thread's idle age is strictly greater than
// the window; a thread idle exactly one window is still active.
func (m *Manager) expired(t *models.Thread) bool {
	return m.now().Sub(t.LastActivity) > m.window
}

func (m *Manager) phoneLock(phone string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[phone]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[phone] = lock
	}
	return lock
}

// normalizePhone strips common formatting so "+1 (757) 555-1234" and
// "+17575551234" key the same thread. Anything that is not a phone number
// fails with ErrInvalidPhoneNumber.
func normalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// formatting characters
		default:
			return "", ErrInvalidPhoneNumber
		}
	}

	digits := strings.TrimPrefix(b.String(), "+")
	if len(digits) < 7 {
		return "", ErrInvalidPhoneNumber
	}
	return b.String(), nil
}
