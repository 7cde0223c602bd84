package checkout

import "github.com/metinatakli/design-storefront/internal/domain"

// Event is an input to the checkout state machine. User actions and async
// completions (network results, timers, poller outcomes) are all events.
type Event string

const (
	EventContinue              Event = "continue"
	EventIntentCreated         Event = "intent_created"
	EventIntentFailed          Event = "intent_failed"
	EventConfirmSucceeded      Event = "confirm_succeeded"
	EventConfirmRequiresAction Event = "confirm_requires_action"
	EventConfirmFailed         Event = "confirm_failed"
	EventGraceElapsed          Event = "grace_elapsed"
	EventPaymentConfirmed      Event = "payment_confirmed"
	EventPaymentFailed         Event = "payment_failed"
	EventRetry                 Event = "retry"
)

func (e Event) String() string {
	return string(e)
}

type transition struct {
	from  domain.Step
	event Event
}

var transitions = map[transition]domain.Step{
	{domain.StepDetails, EventContinue}: domain.StepProcessing,

	{domain.StepProcessing, EventIntentCreated}: domain.StepPayment,
	{domain.StepProcessing, EventIntentFailed}:  domain.StepError,

	// a provisional success stays on the payment step until the grace period elapses
	{domain.StepPayment, EventConfirmSucceeded}:      domain.StepPayment,
	{domain.StepPayment, EventConfirmRequiresAction}: domain.StepError,
	{domain.StepPayment, EventConfirmFailed}:         domain.StepError,
	{domain.StepPayment, EventGraceElapsed}:          domain.StepSuccess,

	{domain.StepSuccess, EventPaymentConfirmed}: domain.StepSuccess,
	{domain.StepSuccess, EventPaymentFailed}:    domain.StepError,

	{domain.StepError, EventRetry}: domain.StepDetails,
}

func nextStep(from domain.Step, event Event) (domain.Step, bool) {
	to, ok := transitions[transition{from: from, event: event}]
	return to, ok
}
