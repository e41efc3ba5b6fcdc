package conversation

import "github.com/karenbot/karen/internal/models"

// transitionKey pairs the current state with the classified type of an
// incoming customer message.
type transitionKey struct {
	state   models.State
	msgType models.MessageType
}

// anyStateTransitions fire regardless of the current state and are tried
// first. An emergency ends the thread so a human takes over; an
// appointment request jumps straight into scheduling, even on the very
// first message.
var anyStateTransitions = map[models.MessageType]models.State{
	models.MessageTypeEmergency:   models.StateComplete,
	models.MessageTypeAppointment: models.StateScheduling,
}

// transitions is the per-pair state machine. Pairs not listed hold the
// current state, so a question during gathering_info stays in
// gathering_info.
var transitions = map[transitionKey]models.State{
	// Any first message moves the thread out of initial_contact.
	{models.StateInitialContact, models.MessageTypeGreeting}:     models.StateGatheringInfo,
	{models.StateInitialContact, models.MessageTypeQuote}:        models.StateGatheringInfo,
	{models.StateInitialContact, models.MessageTypeConfirmation}: models.StateGatheringInfo,
	{models.StateInitialContact, models.MessageTypeQuestion}:     models.StateGatheringInfo,
	{models.StateInitialContact, models.MessageTypeOther}:        models.StateGatheringInfo,

	// A confirmation while scheduling locks the slot in; confirming the
	// recap completes the thread.
	{models.StateScheduling, models.MessageTypeConfirmation}: models.StateConfirming,
	{models.StateConfirming, models.MessageTypeConfirmation}: models.StateComplete,
}

// nextState applies one classified customer message to the state machine.
func nextState(current models.State, msgType models.MessageType) models.State {
	if next, ok := anyStateTransitions[msgType]; ok {
		return next
	}
	if next, ok := transitions[transitionKey{state: current, msgType: msgType}]; ok {
		return next
	}
	return current
}
