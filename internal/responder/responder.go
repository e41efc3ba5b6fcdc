package responder

import (
	"context"
	"fmt"

	"github.com/karenbot/karen/internal/models"
)

// Responder picks Karen's reply to the customer's latest message, given
// the conversation summary computed after that message was applied.
type Responder interface {
	Reply(ctx context.Context, summary *models.ContextSummary, msgType models.MessageType) (string, error)
}

// TemplateResponder serves canned replies per message type, personalized
// from the conversation context where one is known. It never fails, which
// also makes it the fallback behind the GPT responder.
type TemplateResponder struct{}

func NewTemplateResponder() *TemplateResponder {
	return &TemplateResponder{}
}

func (r *TemplateResponder) Reply(ctx context.Context, summary *models.ContextSummary, msgType models.MessageType) (string, error) {
	switch msgType {
	case models.MessageTypeEmergency:
		return "I understand this is an emergency. I'm alerting our team right now and someone will call you within minutes. If anyone is in danger, please call 911.", nil

	case models.MessageTypeGreeting:
		return "Hi, this is Karen with the handyman team! How can I help you today?", nil

	case models.MessageTypeAppointment:
		if service, ok := summary.Context[models.ContextServiceType].(string); ok {
			return fmt.Sprintf("Happy to get your %s work scheduled. What day and time work best for you?", service), nil
		}
		return "I'd be glad to set up an appointment. What kind of work do you need done, and when works for you?", nil

	case models.MessageTypeQuote:
		if service, ok := summary.Context[models.ContextServiceType].(string); ok {
			return fmt.Sprintf("For %s jobs we give a free estimate on site. Want me to set up a quick visit?", service), nil
		}
		return "We give free estimates on site. Tell me a little about the job and I'll set up a quick visit.", nil

	case models.MessageTypeConfirmation:
		switch summary.State {
		case models.StateComplete:
			return "You're all set! We'll see you then. Text me here if anything changes.", nil
		case models.StateConfirming:
			if when, ok := summary.Context[models.ContextPreferredTime].(string); ok {
				return fmt.Sprintf("Great, %s it is. I'll confirm the exact time with the crew and text you right back.", when), nil
			}
			return "Great, I'll confirm the exact time with the crew and text you right back.", nil
		}
		return "Sounds good!", nil

	case models.MessageTypeQuestion:
		return "Good question! Let me check with the crew and get right back to you. Anything else I can help with meanwhile?", nil

	default:
		return "Thanks for your message! Could you tell me a bit more about what you need help with?", nil
	}
}
