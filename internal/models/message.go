package models

import "time"

// Direction tells whether a message came from the customer or from Karen.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// MessageType is the classifier's intent tag for a single message.
type MessageType string

const (
	MessageTypeGreeting     MessageType = "greeting"
	MessageTypeAppointment  MessageType = "appointment_request"
	MessageTypeQuote        MessageType = "quote_request"
	MessageTypeConfirmation MessageType = "confirmation"
	MessageTypeEmergency    MessageType = "emergency"
	MessageTypeQuestion     MessageType = "question"
	MessageTypeOther        MessageType = "other"
)

// Message represents one inbound or outbound utterance in a conversation.
// A message is created once when appended to a thread and never mutated;
// it only disappears when its whole thread is closed or expires.
type Message struct {
	ID          string            `json:"message_id"`
	PhoneNumber string            `json:"phone_number"`
	Content     string            `json:"content"`
	Direction   Direction         `json:"direction"`
	Timestamp   time.Time         `json:"timestamp"`
	Type        MessageType       `json:"message_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
