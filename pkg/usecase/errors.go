package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/model/auth"
)

// Context keys for error values
const (
	UserIDKey = "user_id"
	StateKey  = "state"
	OwnerKey  = "owner"
)

// callerOf returns the authenticated caller. Anonymous requests are not
// authorized for anything.
func callerOf(ctx context.Context) (*auth.Caller, error) {
	caller, err := auth.CallerFromContext(ctx)
	if err != nil || caller.UserID == "" {
		return nil, goerr.Wrap(model.ErrNotAuthorized, "no authenticated caller")
	}
	return caller, nil
}

// taskNotFound is returned for absent and for invisible tasks alike
func taskNotFound(id string) error {
	return goerr.Wrap(model.ErrNotFound, "task not found", goerr.V(model.TaskIDKey, id))
}
