package notify

import (
	"context"

	"github.com/karenbot/karen/internal/models"
)

// Notifier alerts a human when a conversation needs one, typically after
// an emergency message marks a thread requires_human.
type Notifier interface {
	NotifyEscalation(ctx context.Context, thread *models.Thread) error
}

// NoopNotifier discards every alert. It is the default when no owner
// channel is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyEscalation(ctx context.Context, thread *models.Thread) error {
	return nil
}
