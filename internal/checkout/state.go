package checkout

type State string

const (
	StateLoading              State = "LOADING"
	StateEditing              State = "EDITING"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateSubmitting           State = "SUBMITTING"
	StateSucceeded            State = "SUCCEEDED"
	StateCancelled            State = "CANCELLED"
)

var transitions = map[State][]State{
	StateLoading:              {StateEditing},
	StateEditing:              {StateEditing, StateAwaitingConfirmation, StateCancelled},
	StateAwaitingConfirmation: {StateEditing, StateSubmitting, StateCancelled},
	StateSubmitting:           {StateSucceeded, StateEditing},
}

func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateCancelled
}

func (s State) String() string {
	return string(s)
}

// CanTransitionTo reports whether the state machine allows moving from one state to another.
func CanTransitionTo(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Step is a page of the checkout form.
type Step int

const (
	StepShipping Step = iota
	StepPayment

	lastStep = StepPayment
)

func (s Step) String() string {
	switch s {
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	}
	return "unknown"
}
