package conversation

import (
	"fmt"
	"strings"

	"github.com/karenbot/karen/internal/models"
)

func emptySummary() *models.ContextSummary {
	return &models.ContextSummary{
		RecentMessages: []models.RecentMessage{},
		Context:        map[string]any{},
	}
}

func (m *Manager) buildSummary(t *models.Thread) *models.ContextSummary {
	recent := t.Messages
	if len(recent) > m.recent {
		recent = recent[len(recent)-m.recent:]
	}

	msgs := make([]models.RecentMessage, 0, len(recent))
	for _, msg := range recent {
		msgs = append(msgs, models.RecentMessage{
			Content:     msg.Content,
			Direction:   msg.Direction,
			MessageType: msg.Type,
			Timestamp:   msg.Timestamp,
		})
	}

	ctx := make(map[string]any, len(t.Context))
	for k, v := range t.Context {
		ctx[k] = v
	}

	return &models.ContextSummary{
		HasConversation:     true,
		MessageCount:        len(t.Messages),
		RecentMessages:      msgs,
		ConversationSummary: summarize(t, recent),
		Context:             ctx,
		State:               t.State,
	}
}

// summarize renders the thread as short prose the response layer can drop
// straight into a prompt: one status line, then the recent exchange with
// speaker labels.
func summarize(t *models.Thread, recent []models.Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Conversation in state %s with %d message(s).", t.State, len(t.Messages))
	if name, ok := t.CustomerInfo["name"]; ok {
		fmt.Fprintf(&b, " Customer name: %s.", name)
	}
	if service, ok := t.Context[models.ContextServiceType]; ok {
		fmt.Fprintf(&b, " Service: %v.", service)
	}
	if when, ok := t.Context[models.ContextPreferredTime]; ok {
		fmt.Fprintf(&b, " Preferred time: %v.", when)
	}
	if t.RequiresHuman() {
		b.WriteString(" Requires human follow-up.")
	}

	for _, msg := range recent {
		speaker := "Customer"
		if msg.Direction == models.DirectionOutbound {
			speaker = "Karen"
		}
		fmt.Fprintf(&b, "\n%s: %s", speaker, msg.Content)
	}
	return b.String()
}
