package types

import "fmt"

// TaskState represents the lifecycle state of a task
type TaskState string

const (
	TaskStateReady          TaskState = "READY"
	TaskStateClaimed        TaskState = "CLAIMED"
	TaskStateReadyForReview TaskState = "READY_FOR_REVIEW"
	TaskStateInReview       TaskState = "IN_REVIEW"
	TaskStateCompleted      TaskState = "COMPLETED"
	TaskStateCancelled      TaskState = "CANCELLED"
	TaskStateTerminated     TaskState = "TERMINATED"
)

// AllTaskStates returns all valid task states
func AllTaskStates() []TaskState {
	return []TaskState{
		TaskStateReady,
		TaskStateClaimed,
		TaskStateReadyForReview,
		TaskStateInReview,
		TaskStateCompleted,
		TaskStateCancelled,
		TaskStateTerminated,
	}
}

// OpenTaskStates returns the states from which a task can still move
func OpenTaskStates() []TaskState {
	return []TaskState{
		TaskStateReady,
		TaskStateClaimed,
		TaskStateReadyForReview,
		TaskStateInReview,
	}
}

// EndTaskStates returns the terminal states
func EndTaskStates() []TaskState {
	return []TaskState{
		TaskStateCompleted,
		TaskStateCancelled,
		TaskStateTerminated,
	}
}

// IsValid checks if the task state is valid
func (s TaskState) IsValid() bool {
	switch s {
	case TaskStateReady,
		TaskStateClaimed,
		TaskStateReadyForReview,
		TaskStateInReview,
		TaskStateCompleted,
		TaskStateCancelled,
		TaskStateTerminated:
		return true
	default:
		return false
	}
}

// IsEndState reports whether no further transition is possible
func (s TaskState) IsEndState() bool {
	switch s {
	case TaskStateCompleted, TaskStateCancelled, TaskStateTerminated:
		return true
	default:
		return false
	}
}

// IsReviewState reports whether the task is in the review half of the lifecycle
func (s TaskState) IsReviewState() bool {
	return s == TaskStateReadyForReview || s == TaskStateInReview
}

// In reports whether s is one of states
func (s TaskState) In(states ...TaskState) bool {
	for _, st := range states {
		if s == st {
			return true
		}
	}
	return false
}

// String returns the string representation of the task state
func (s TaskState) String() string {
	return string(s)
}

// ParseTaskState parses a string into a TaskState
func ParseTaskState(s string) (TaskState, error) {
	state := TaskState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid task state: %s", s)
	}
	return state, nil
}
