package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/model/auth"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
)

// TaskUseCase implements the task lifecycle. Every call re-reads the task,
// validates the transition and writes conditionally on the Modified
// timestamp it read, so a concurrent writer makes it fail with
// model.ErrConcurrency.
type TaskUseCase struct {
	repo  interfaces.Repository
	authz *AuthorizationUseCase
	users interfaces.UserDirectory
	now   func() time.Time
}

func NewTaskUseCase(repo interfaces.Repository, authz *AuthorizationUseCase, users interfaces.UserDirectory, now func() time.Time) *TaskUseCase {
	if now == nil {
		now = time.Now
	}
	return &TaskUseCase{
		repo:  repo,
		authz: authz,
		users: users,
		now:   now,
	}
}

// timestamp returns the current time at the precision every backend keeps
func (uc *TaskUseCase) timestamp() time.Time {
	return uc.now().UTC().Truncate(time.Microsecond)
}

// nextModified never repeats the previous value, so the conditional write
// of a second change within the same microsecond still conflicts
func (uc *TaskUseCase) nextModified(prev time.Time) time.Time {
	now := uc.timestamp()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

// load returns the task if the caller may read its workbasket. A task the
// caller cannot see is reported exactly like an absent one.
func (uc *TaskUseCase) load(ctx context.Context, caller *auth.Caller, id string) (*model.Task, error) {
	if id == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "task id is not given")
	}
	task, err := uc.repo.Task().Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, taskNotFound(id)
		}
		return nil, goerr.Wrap(err, "failed to get task", goerr.V(model.TaskIDKey, id))
	}

	ok, err := uc.authz.canRead(ctx, caller, task.Workbasket.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, taskNotFound(id)
	}
	return task, nil
}

// store writes next on top of current and returns it with the owner's long
// name resolved
func (uc *TaskUseCase) store(ctx context.Context, current, next *model.Task) (*model.Task, error) {
	next.Modified = uc.nextModified(current.Modified)
	next.Priority = next.EffectivePriority()
	if err := uc.repo.Task().Update(ctx, next, current.Modified); err != nil {
		return nil, goerr.Wrap(err, "failed to update task", goerr.V(model.TaskIDKey, current.ID))
	}
	uc.resolveOwner(ctx, next)
	return next, nil
}

func (uc *TaskUseCase) resolveOwner(ctx context.Context, task *model.Task) {
	task.OwnerLongName = ""
	if task.Owner == "" {
		return
	}
	name, err := uc.users.ResolveLongName(ctx, task.Owner)
	if err != nil {
		if !isNotFound(err) {
			logging.From(ctx).Warn("failed to resolve owner name",
				slog.String("owner", task.Owner), slog.Any("error", err))
		}
		return
	}
	task.OwnerLongName = name
}

// transition loads the task, checks its state, applies mutate and stores it
func (uc *TaskUseCase) transition(ctx context.Context, id, action string, allowed []types.TaskState, mutate func(caller *auth.Caller, t *model.Task) error) (*model.Task, error) {
	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	current, err := uc.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !current.State.In(allowed...) {
		return nil, goerr.Wrap(model.NewInvalidTaskStateError(current, allowed...), "cannot "+action+" task",
			goerr.V(model.TaskIDKey, id))
	}

	next := current.Clone()
	if err := mutate(caller, next); err != nil {
		return nil, err
	}
	updated, err := uc.store(ctx, current, next)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("task "+action,
		slog.String("task_id", id),
		slog.String("from", current.State.String()),
		slog.String("to", updated.State.String()),
		slog.String("user_id", caller.UserID),
	)
	return updated, nil
}

func requireOwner(caller *auth.Caller, t *model.Task) error {
	if t.Owner != caller.UserID {
		return goerr.Wrap(model.ErrNotAuthorized, "caller is not the owner of the task",
			goerr.V(model.TaskIDKey, t.ID), goerr.V(UserIDKey, caller.UserID), goerr.V(OwnerKey, t.Owner))
	}
	return nil
}

// Claim takes a READY task (or a READY_FOR_REVIEW one into review) for the caller
func (uc *TaskUseCase) Claim(ctx context.Context, id string) (*model.Task, error) {
	return uc.claim(ctx, id, false)
}

// ForceClaim claims any open task, taking it over from its current owner
func (uc *TaskUseCase) ForceClaim(ctx context.Context, id string) (*model.Task, error) {
	return uc.claim(ctx, id, true)
}

func (uc *TaskUseCase) claim(ctx context.Context, id string, force bool) (*model.Task, error) {
	allowed := []types.TaskState{types.TaskStateReady, types.TaskStateReadyForReview}
	if force {
		allowed = types.OpenTaskStates()
	}
	return uc.transition(ctx, id, "claimed", allowed, func(caller *auth.Caller, t *model.Task) error {
		now := uc.timestamp()
		t.Owner = caller.UserID
		t.Claimed = &now
		t.IsRead = true
		if t.State.IsReviewState() {
			t.State = types.TaskStateInReview
		} else {
			t.State = types.TaskStateClaimed
		}
		return nil
	})
}

// CancelClaim returns a claimed task to READY (or a task in review to
// READY_FOR_REVIEW). The owner is cleared unless keepOwner is set.
func (uc *TaskUseCase) CancelClaim(ctx context.Context, id string, keepOwner bool) (*model.Task, error) {
	return uc.cancelClaim(ctx, id, keepOwner, false)
}

// ForceCancelClaim cancels the claim of another owner
func (uc *TaskUseCase) ForceCancelClaim(ctx context.Context, id string, keepOwner bool) (*model.Task, error) {
	return uc.cancelClaim(ctx, id, keepOwner, true)
}

func (uc *TaskUseCase) cancelClaim(ctx context.Context, id string, keepOwner, force bool) (*model.Task, error) {
	allowed := []types.TaskState{types.TaskStateClaimed, types.TaskStateInReview}
	return uc.transition(ctx, id, "claim cancelled", allowed, func(caller *auth.Caller, t *model.Task) error {
		if !force {
			if err := requireOwner(caller, t); err != nil {
				return err
			}
		}
		if !keepOwner {
			t.Owner = ""
		}
		t.Claimed = nil
		if t.State == types.TaskStateInReview {
			t.State = types.TaskStateReadyForReview
		} else {
			t.State = types.TaskStateReady
		}
		return nil
	})
}

// RequestReview hands a claimed task over for review
func (uc *TaskUseCase) RequestReview(ctx context.Context, id string) (*model.Task, error) {
	return uc.requestReview(ctx, id, false)
}

func (uc *TaskUseCase) ForceRequestReview(ctx context.Context, id string) (*model.Task, error) {
	return uc.requestReview(ctx, id, true)
}

func (uc *TaskUseCase) requestReview(ctx context.Context, id string, force bool) (*model.Task, error) {
	allowed := []types.TaskState{types.TaskStateClaimed}
	return uc.transition(ctx, id, "review requested", allowed, func(caller *auth.Caller, t *model.Task) error {
		if !force {
			if err := requireOwner(caller, t); err != nil {
				return err
			}
		}
		t.Owner = ""
		t.Claimed = nil
		t.State = types.TaskStateReadyForReview
		return nil
	})
}

// RequestChanges sends a task in review back to READY
func (uc *TaskUseCase) RequestChanges(ctx context.Context, id string) (*model.Task, error) {
	return uc.requestChanges(ctx, id, false)
}

func (uc *TaskUseCase) ForceRequestChanges(ctx context.Context, id string) (*model.Task, error) {
	return uc.requestChanges(ctx, id, true)
}

func (uc *TaskUseCase) requestChanges(ctx context.Context, id string, force bool) (*model.Task, error) {
	allowed := []types.TaskState{types.TaskStateInReview}
	return uc.transition(ctx, id, "changes requested", allowed, func(caller *auth.Caller, t *model.Task) error {
		if !force {
			if err := requireOwner(caller, t); err != nil {
				return err
			}
		}
		t.Owner = ""
		t.Claimed = nil
		t.State = types.TaskStateReady
		return nil
	})
}

// Complete finishes a task owned by the caller
func (uc *TaskUseCase) Complete(ctx context.Context, id string) (*model.Task, error) {
	return uc.complete(ctx, id, false)
}

// ForceComplete finishes any open task. An unclaimed task is claimed by the
// caller first.
func (uc *TaskUseCase) ForceComplete(ctx context.Context, id string) (*model.Task, error) {
	return uc.complete(ctx, id, true)
}

func (uc *TaskUseCase) complete(ctx context.Context, id string, force bool) (*model.Task, error) {
	return uc.transition(ctx, id, "completed", types.OpenTaskStates(), func(caller *auth.Caller, t *model.Task) error {
		now := uc.timestamp()
		if force {
			if t.Owner == "" {
				t.Owner = caller.UserID
				t.Claimed = &now
			}
		} else if err := requireOwner(caller, t); err != nil {
			return err
		}
		t.Completed = &now
		t.IsRead = true
		t.State = types.TaskStateCompleted
		return nil
	})
}

// Cancel ends an open task without completing it
func (uc *TaskUseCase) Cancel(ctx context.Context, id string) (*model.Task, error) {
	return uc.transition(ctx, id, "cancelled", types.OpenTaskStates(), func(_ *auth.Caller, t *model.Task) error {
		now := uc.timestamp()
		t.Completed = &now
		t.State = types.TaskStateCancelled
		return nil
	})
}

// Terminate ends an open task administratively
func (uc *TaskUseCase) Terminate(ctx context.Context, id string) (*model.Task, error) {
	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.Admin {
		return nil, goerr.Wrap(model.ErrNotAuthorized, "administrative role required",
			goerr.V(model.TaskIDKey, id), goerr.V(UserIDKey, caller.UserID))
	}
	return uc.transition(ctx, id, "terminated", types.OpenTaskStates(), func(_ *auth.Caller, t *model.Task) error {
		now := uc.timestamp()
		t.Completed = &now
		t.State = types.TaskStateTerminated
		return nil
	})
}

type transferConfig struct {
	setTransferred bool
	owner          string
}

type TransferOption func(*transferConfig)

// WithTransferredFlag sets IsTransferred to the given value (default true)
func WithTransferredFlag(v bool) TransferOption {
	return func(c *transferConfig) {
		c.setTransferred = v
	}
}

// WithNewOwner assigns the task to owner in the target workbasket
func WithNewOwner(owner string) TransferOption {
	return func(c *transferConfig) {
		c.owner = owner
	}
}

// Transfer moves an open task into another workbasket. The caller needs
// TRANSFER on the target; a missing target is reported the same way.
func (uc *TaskUseCase) Transfer(ctx context.Context, id, targetWorkbasketID string, opts ...TransferOption) (*model.Task, error) {
	cfg := transferConfig{setTransferred: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	if targetWorkbasketID == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "target workbasket is not given", goerr.V(model.TaskIDKey, id))
	}
	target, err := uc.repo.Workbasket().Get(ctx, targetWorkbasketID)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(model.ErrNotAuthorized, "missing workbasket permission",
				goerr.V(model.WorkbasketIDKey, targetWorkbasketID), goerr.V(UserIDKey, caller.UserID))
		}
		return nil, goerr.Wrap(err, "failed to get workbasket", goerr.V(model.WorkbasketIDKey, targetWorkbasketID))
	}
	if err := uc.authz.requireWorkbasketPermission(ctx, caller, target.ID, types.PermissionTransfer); err != nil {
		return nil, err
	}

	return uc.transition(ctx, id, "transferred", types.OpenTaskStates(), func(_ *auth.Caller, t *model.Task) error {
		t.Workbasket = target.Summary()
		t.Owner = cfg.owner
		t.Claimed = nil
		t.IsRead = false
		t.IsTransferred = cfg.setTransferred
		if t.State.IsReviewState() {
			t.State = types.TaskStateReadyForReview
		} else {
			t.State = types.TaskStateReady
		}
		return nil
	})
}
