package models

import "time"

// State is a node in the conversation state machine.
type State string

const (
	StateInitialContact State = "initial_contact"
	StateGatheringInfo  State = "gathering_info"
	StateScheduling     State = "scheduling"
	StateConfirming     State = "confirming"
	StateComplete       State = "complete"
)

// Keys used in the thread context bag.
const (
	ContextServiceType   = "service_type"
	ContextPreferredTime = "preferred_time"
	ContextIsUrgent      = "is_urgent"
	ContextRequiresHuman = "requires_human"
)

// Thread is the aggregate root for one customer conversation, keyed by
// phone number. At most one active thread exists per phone number; a
// thread's message sequence is append-only and ordered oldest first.
type Thread struct {
	ID           string            `json:"conversation_id"`
	PhoneNumber  string            `json:"phone_number"`
	State        State             `json:"state"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
	Messages     []Message         `json:"messages"`
	Context      map[string]any    `json:"context"`
	CustomerInfo map[string]string `json:"customer_info,omitempty"`
}

// RequiresHuman reports whether the thread has been flagged for human
// follow-up (set on emergency messages).
func (t *Thread) RequiresHuman() bool {
	v, ok := t.Context[ContextRequiresHuman].(bool)
	return ok && v
}

// LastMessage returns the most recently appended message, or nil for an
// empty thread.
func (t *Thread) LastMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}

// Clone returns a deep copy of the thread. Stores hand out clones so
// callers can never mutate persisted state through a shared pointer.
func (t *Thread) Clone() *Thread {
	if t == nil {
		return nil
	}
	c := *t
	if t.Messages != nil {
		c.Messages = make([]Message, len(t.Messages))
		copy(c.Messages, t.Messages)
		for i := range c.Messages {
			c.Messages[i].Metadata = copyStringMap(t.Messages[i].Metadata)
		}
	}
	if t.Context != nil {
		c.Context = make(map[string]any, len(t.Context))
		for k, v := range t.Context {
			c.Context[k] = v
		}
	}
	c.CustomerInfo = copyStringMap(t.CustomerInfo)
	return &c
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
