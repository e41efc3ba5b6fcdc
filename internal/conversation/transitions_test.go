package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/karenbot/karen/internal/models"
)

// Every (state, message type) pair, so no transition can change silently.
func TestNextStateExhaustive(t *testing.T) {
	tests := []struct {
		state   models.State
		msgType models.MessageType
		want    models.State
	}{
		{models.StateInitialContact, models.MessageTypeGreeting, models.StateGatheringInfo},
		{models.StateInitialContact, models.MessageTypeAppointment, models.StateScheduling},
		{models.StateInitialContact, models.MessageTypeQuote, models.StateGatheringInfo},
		{models.StateInitialContact, models.MessageTypeConfirmation, models.StateGatheringInfo},
		{models.StateInitialContact, models.MessageTypeEmergency, models.StateComplete},
		{models.StateInitialContact, models.MessageTypeQuestion, models.StateGatheringInfo},
		{models.StateInitialContact, models.MessageTypeOther, models.StateGatheringInfo},

		{models.StateGatheringInfo, models.MessageTypeGreeting, models.StateGatheringInfo},
		{models.StateGatheringInfo, models.MessageTypeAppointment, models.StateScheduling},
		{models.StateGatheringInfo, models.MessageTypeQuote, models.StateGatheringInfo},
		{models.StateGatheringInfo, models.MessageTypeConfirmation, models.StateGatheringInfo},
		{models.StateGatheringInfo, models.MessageTypeEmergency, models.StateComplete},
		{models.StateGatheringInfo, models.MessageTypeQuestion, models.StateGatheringInfo},
		{models.StateGatheringInfo, models.MessageTypeOther, models.StateGatheringInfo},

		{models.StateScheduling, models.MessageTypeGreeting, models.StateScheduling},
		{models.StateScheduling, models.MessageTypeAppointment, models.StateScheduling},
		{models.StateScheduling, models.MessageTypeQuote, models.StateScheduling},
		{models.StateScheduling, models.MessageTypeConfirmation, models.StateConfirming},
		{models.StateScheduling, models.MessageTypeEmergency, models.StateComplete},
		{models.StateScheduling, models.MessageTypeQuestion, models.StateScheduling},
		{models.StateScheduling, models.MessageTypeOther, models.StateScheduling},

		{models.StateConfirming, models.MessageTypeGreeting, models.StateConfirming},
		{models.StateConfirming, models.MessageTypeAppointment, models.StateScheduling},
		{models.StateConfirming, models.MessageTypeQuote, models.StateConfirming},
		{models.StateConfirming, models.MessageTypeConfirmation, models.StateComplete},
		{models.StateConfirming, models.MessageTypeEmergency, models.StateComplete},
		{models.StateConfirming, models.MessageTypeQuestion, models.StateConfirming},
		{models.StateConfirming, models.MessageTypeOther, models.StateConfirming},

		{models.StateComplete, models.MessageTypeGreeting, models.StateComplete},
		{models.StateComplete, models.MessageTypeAppointment, models.StateScheduling},
		{models.StateComplete, models.MessageTypeQuote, models.StateComplete},
		{models.StateComplete, models.MessageTypeConfirmation, models.StateComplete},
		{models.StateComplete, models.MessageTypeEmergency, models.StateComplete},
		{models.StateComplete, models.MessageTypeQuestion, models.StateComplete},
		{models.StateComplete, models.MessageTypeOther, models.StateComplete},
	}

	for _, tt := range tests {
		got := nextState(tt.state, tt.msgType)
		assert.Equal(t, tt.want, got, "%s + %s", tt.state, tt.msgType)
	}
}
