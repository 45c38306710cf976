package agent

import "fmt"

// Status defines the agent lifecycle states.
type Status string

const (
	StatusIdle      Status = "idle"      // Created, not yet executing
	StatusRunning   Status = "running"   // Inside a reflexion loop
	StatusCompleted Status = "completed" // Last run produced at least one scored result
	StatusFailed    Status = "failed"    // Every iteration of the last run failed
)

// validTransitions defines the legal status transitions.
var validTransitions = map[Status][]Status{
	StatusIdle:      {StatusRunning},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {StatusRunning}, // Re-dispatch on a later pipeline
	StatusFailed:    {StatusRunning}, // Retry
}

// CanTransition checks whether a status transition is legal.
func CanTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ErrStatusTransition reports an illegal status transition.
type ErrStatusTransition struct {
	From Status
	To   Status
}

func (e ErrStatusTransition) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}
