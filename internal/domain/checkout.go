package domain

type Step string

const (
	StepDetails    Step = "details"
	StepProcessing Step = "processing"
	StepPayment    Step = "payment"
	StepSuccess    Step = "success"
	StepError      Step = "error"
)

func (s Step) String() string {
	return string(s)
}

type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// CheckoutSession is the in-memory state of a single checkout attempt.
type CheckoutSession struct {
	ID            string
	Step          Step
	Item          PurchasableItem
	Intent        *PaymentIntentHandle
	Error         *Failure
	IsRedirecting bool
}
