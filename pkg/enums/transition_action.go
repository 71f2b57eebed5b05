package enums

import "fmt"

// TransitionAction represents an actor-initiated state machine transition.
type TransitionAction string

const (
	TransitionActionApprove             TransitionAction = "approve"
	TransitionActionReject              TransitionAction = "reject"
	TransitionActionEscalate            TransitionAction = "escalate"
	TransitionActionRequestCancellation TransitionAction = "request_cancellation"
	TransitionActionApproveCancellation TransitionAction = "approve_cancellation"
	TransitionActionMarkAltered         TransitionAction = "mark_altered"
)

var validTransitionActions = []TransitionAction{
	TransitionActionApprove,
	TransitionActionReject,
	TransitionActionEscalate,
	TransitionActionRequestCancellation,
	TransitionActionApproveCancellation,
	TransitionActionMarkAltered,
}

// String implements fmt.Stringer.
func (t TransitionAction) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransitionAction.
func (t TransitionAction) IsValid() bool {
	for _, candidate := range validTransitionActions {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransitionAction converts raw input into a TransitionAction.
func ParseTransitionAction(value string) (TransitionAction, error) {
	for _, candidate := range validTransitionActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transition action %q", value)
}
