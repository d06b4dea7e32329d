package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
)

// WorkbasketIDPrefix starts every generated workbasket id
const WorkbasketIDPrefix = "WBI:"

// WorkbasketUseCase manages workbaskets and their access lists.
// Changes require the administrative role; reads are open to any caller.
type WorkbasketUseCase struct {
	repo interfaces.Repository
	now  func() time.Time
}

func NewWorkbasketUseCase(repo interfaces.Repository, now func() time.Time) *WorkbasketUseCase {
	if now == nil {
		now = time.Now
	}
	return &WorkbasketUseCase{repo: repo, now: now}
}

func requireAdmin(ctx context.Context) (string, error) {
	caller, err := callerOf(ctx)
	if err != nil {
		return "", err
	}
	if !caller.Admin {
		return "", goerr.Wrap(model.ErrNotAuthorized, "administrative role required", goerr.V(UserIDKey, caller.UserID))
	}
	return caller.UserID, nil
}

// CreateWorkbasket stores wb. An empty id is generated.
func (uc *WorkbasketUseCase) CreateWorkbasket(ctx context.Context, wb *model.Workbasket) (*model.Workbasket, error) {
	userID, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if wb.Key == "" || wb.Domain == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "workbasket key and domain are required",
			goerr.V("key", wb.Key), goerr.V("domain", wb.Domain))
	}

	created := *wb
	if created.ID == "" {
		created.ID = WorkbasketIDPrefix + uuid.NewString()
	}
	now := uc.now().UTC().Truncate(time.Microsecond)
	created.Created = now
	created.Modified = now

	if err := uc.repo.Workbasket().Create(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create workbasket", goerr.V("key", wb.Key))
	}
	logging.From(ctx).Info("workbasket created",
		slog.String("workbasket_id", created.ID), slog.String("key", created.Key), slog.String("user_id", userID))
	return &created, nil
}

func (uc *WorkbasketUseCase) GetWorkbasket(ctx context.Context, id string) (*model.Workbasket, error) {
	if _, err := callerOf(ctx); err != nil {
		return nil, err
	}
	wb, err := uc.repo.Workbasket().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get workbasket", goerr.V(model.WorkbasketIDKey, id))
	}
	return wb, nil
}

func (uc *WorkbasketUseCase) GetWorkbasketByKey(ctx context.Context, key, domain string) (*model.Workbasket, error) {
	if _, err := callerOf(ctx); err != nil {
		return nil, err
	}
	wb, err := uc.repo.Workbasket().GetByKey(ctx, key, domain)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get workbasket", goerr.V("key", key), goerr.V("domain", domain))
	}
	return wb, nil
}

// SetAccessItem grants exactly perms on a workbasket to an access id,
// replacing what it held before
func (uc *WorkbasketUseCase) SetAccessItem(ctx context.Context, workbasketID, accessID, accessName string, perms ...types.Permission) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if accessID == "" {
		return goerr.Wrap(model.ErrInvalidArgument, "access id is not given", goerr.V(model.WorkbasketIDKey, workbasketID))
	}
	for _, p := range perms {
		if !p.IsValid() {
			return goerr.Wrap(model.ErrInvalidArgument, "invalid permission", goerr.V(model.PermissionKey, p))
		}
	}

	item := &model.WorkbasketAccessItem{
		WorkbasketID: workbasketID,
		AccessID:     accessID,
		AccessName:   accessName,
		Permissions:  types.NewPermissionSet(perms...),
	}
	if err := uc.repo.Workbasket().PutAccessItem(ctx, item); err != nil {
		return goerr.Wrap(err, "failed to set access item",
			goerr.V(model.WorkbasketIDKey, workbasketID), goerr.V(model.AccessIDKey, accessID))
	}
	return nil
}

func (uc *WorkbasketUseCase) RemoveAccessItem(ctx context.Context, workbasketID, accessID string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := uc.repo.Workbasket().DeleteAccessItem(ctx, workbasketID, accessID); err != nil {
		return goerr.Wrap(err, "failed to remove access item",
			goerr.V(model.WorkbasketIDKey, workbasketID), goerr.V(model.AccessIDKey, accessID))
	}
	return nil
}
