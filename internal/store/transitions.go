package store

import "qms/clinic-queue/internal/models"

const (
	ActionCallNext        = "call_next"
	ActionCompleteCurrent = "complete_current"
)

var transitionMap = map[string]struct {
	from models.Status
	to   models.Status
}{
	ActionCallNext:        {from: models.StatusWaiting, to: models.StatusCalled},
	ActionCompleteCurrent: {from: models.StatusCalled, to: models.StatusCompleted},
}

func ValidTransition(action string, fromStatus models.Status) bool {
	transition, ok := transitionMap[action]
	if !ok {
		return false
	}
	return transition.from == fromStatus && fromStatus.CanTransitionTo(transition.to)
}

// TransitionFor returns the source and target status of an action.
func TransitionFor(action string) (models.Status, models.Status, bool) {
	transition, ok := transitionMap[action]
	if !ok {
		return "", "", false
	}
	return transition.from, transition.to, true
}
