package model

import (
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

// Error taxonomy shared by every layer. Test with errors.Is.
var (
	// ErrInvalidArgument is a malformed filter, sort, pagination or input value
	ErrInvalidArgument = goerr.New("invalid argument")
	// ErrNotAuthorized means the caller lacks a required permission or role
	ErrNotAuthorized = goerr.New("not authorized")
	// ErrNotFound means the entity is absent (or invisible to the caller)
	ErrNotFound = goerr.New("not found")
	// ErrInvalidTaskState means the transition is not allowed from the current state
	ErrInvalidTaskState = goerr.New("invalid task state")
	// ErrConcurrency is an optimistic lock conflict; re-fetch and retry
	ErrConcurrency = goerr.New("concurrent modification")
	// ErrTooManyResults means a single-row query matched more than one row
	ErrTooManyResults = goerr.New("too many results")
	// ErrStorage is an opaque backend failure
	ErrStorage = goerr.New("storage error")
)

// Context keys for error values
const (
	TaskIDKey       = "task_id"
	WorkbasketIDKey = "workbasket_id"
	AccessIDKey     = "access_id"
	PermissionKey   = "permission"
	ColumnKey       = "column"
)

// InvalidTaskStateError carries the actual state and the states that would
// have allowed the transition.
type InvalidTaskStateError struct {
	TaskID   string
	Actual   types.TaskState
	Required []types.TaskState
}

func (e *InvalidTaskStateError) Error() string {
	required := make([]string, len(e.Required))
	for i, s := range e.Required {
		required[i] = s.String()
	}
	return "task " + e.TaskID + " is in state " + e.Actual.String() +
		", required one of [" + strings.Join(required, ", ") + "]"
}

func (e *InvalidTaskStateError) Unwrap() error { return ErrInvalidTaskState }

// NewInvalidTaskStateError builds the structured state error for a task
func NewInvalidTaskStateError(task *Task, required ...types.TaskState) error {
	return &InvalidTaskStateError{
		TaskID:   task.ID,
		Actual:   task.State,
		Required: required,
	}
}

// WrapStorage marks err as a backend failure while keeping it as the cause
func WrapStorage(err error, msg string, opts ...goerr.Option) error {
	return goerr.Wrap(errors.Join(ErrStorage, err), msg, opts...)
}
