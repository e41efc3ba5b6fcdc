package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCleanupServiceSweeps(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	now := base
	m.now = func() time.Time { return now }

	_, err := m.StartConversation(ctx, "+17575551234", "hello", nil)
	require.NoError(t, err)

	// Age the thread past the window, then let the schedule find it.
	now = base.Add(DefaultExpirationWindow + time.Minute)

	svc := NewCleanupService(m, "@every 100ms", zap.NewNop())
	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.Eventually(t, func() bool {
		stats, err := m.Stats(ctx)
		return err == nil && stats.ActiveConversations == 0
	}, 3*time.Second, 50*time.Millisecond, "sweep never removed the expired thread")
}

func TestCleanupServiceInvalidSchedule(t *testing.T) {
	svc := NewCleanupService(newTestManager(), "every day at noon", zap.NewNop())
	assert.Error(t, svc.Start())
}

func TestCleanupServiceStopWithoutStart(t *testing.T) {
	svc := NewCleanupService(newTestManager(), "", zap.NewNop())
	svc.Stop()
}

func TestCleanupServiceDefaultSchedule(t *testing.T) {
	svc := NewCleanupService(newTestManager(), "", zap.NewNop())
	assert.Equal(t, DefaultCleanupSchedule, svc.schedule)
}
