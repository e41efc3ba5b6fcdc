package models

import "time"

// RecentMessage is the trimmed view of one message exposed to the
// response layer.
type RecentMessage struct {
	Content     string      `json:"content"`
	Direction   Direction   `json:"direction"`
	MessageType MessageType `json:"message_type"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ContextSummary is the read-only snapshot of a conversation handed to
// the template/response layer: whether a conversation exists, how many
// messages were exchanged, the most recent messages (newest last), a
// prose summary with speaker labels, the accumulated context bag, and
// the current state.
type ContextSummary struct {
	HasConversation     bool            `json:"has_conversation"`
	MessageCount        int             `json:"message_count"`
	RecentMessages      []RecentMessage `json:"recent_messages"`
	ConversationSummary string          `json:"conversation_summary"`
	Context             map[string]any  `json:"context"`
	State               State           `json:"state"`
}
