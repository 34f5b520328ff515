package pipeline

import "fmt"

type State string

const (
	StateReceived     State = "received"
	StateExtracting   State = "extracting"
	StateTranscribing State = "transcribing"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

var transitions = map[State][]State{
	StateReceived:     {StateExtracting, StateFailed},
	StateExtracting:   {StateTranscribing, StateFailed},
	StateTranscribing: {StateSucceeded, StateFailed},
}

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}
