package usecase

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
)

// eachTask runs fn once per distinct id and collects failures. One bad id
// never aborts the batch.
func eachTask(ctx context.Context, op string, ids []string, fn func(id string) error) *model.BulkResult {
	result := model.NewBulkResult()
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if id == "" {
			result.Add(id, goerr.Wrap(model.ErrInvalidArgument, "task id is not given"))
			continue
		}
		result.Add(id, fn(id))
	}

	logging.From(ctx).Info("bulk operation finished",
		slog.String("op", op),
		slog.Int("tasks", len(seen)),
		slog.Int("failed", len(result.FailedIDs())),
	)
	return result
}

// TransferBulk transfers every task to the target workbasket. A caller
// without TRANSFER on the target fails as a whole.
func (uc *TaskUseCase) TransferBulk(ctx context.Context, targetWorkbasketID string, ids []string, opts ...TransferOption) (*model.BulkResult, error) {
	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	if targetWorkbasketID == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "target workbasket is not given")
	}
	if err := uc.authz.requireWorkbasketPermission(ctx, caller, targetWorkbasketID, types.PermissionTransfer); err != nil {
		return nil, err
	}

	return eachTask(ctx, "transfer", ids, func(id string) error {
		_, err := uc.Transfer(ctx, id, targetWorkbasketID, opts...)
		return err
	}), nil
}

// CompleteBulk completes every task owned by the caller
func (uc *TaskUseCase) CompleteBulk(ctx context.Context, ids []string) (*model.BulkResult, error) {
	if _, err := callerOf(ctx); err != nil {
		return nil, err
	}
	return eachTask(ctx, "complete", ids, func(id string) error {
		_, err := uc.Complete(ctx, id)
		return err
	}), nil
}

// ForceCompleteBulk completes every open task regardless of its owner
func (uc *TaskUseCase) ForceCompleteBulk(ctx context.Context, ids []string) (*model.BulkResult, error) {
	if _, err := callerOf(ctx); err != nil {
		return nil, err
	}
	return eachTask(ctx, "force complete", ids, func(id string) error {
		_, err := uc.ForceComplete(ctx, id)
		return err
	}), nil
}

// DeleteTasks deletes every task in an end state. Administrators only.
func (uc *TaskUseCase) DeleteTasks(ctx context.Context, ids []string) (*model.BulkResult, error) {
	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.Admin {
		return nil, goerr.Wrap(model.ErrNotAuthorized, "administrative role required", goerr.V(UserIDKey, caller.UserID))
	}
	return eachTask(ctx, "delete", ids, func(id string) error {
		return uc.DeleteTask(ctx, id)
	}), nil
}
