package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/model/auth"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
)

type AuthorizationUseCase struct {
	repo interfaces.Repository
}

func NewAuthorizationUseCase(repo interfaces.Repository) *AuthorizationUseCase {
	return &AuthorizationUseCase{repo: repo}
}

// PermissionPredicate restricts a query to workbaskets where one of the
// access ids holds every required permission. READ is always required.
// It is compiled into the storage filter, so paging and group counts only
// ever see permitted rows.
func PermissionPredicate(accessIDs []string, perms ...types.Permission) query.Predicate {
	return query.Permitted(accessIDs, perms...)
}

// AccessIDsHavePermission lists the access items through which the given
// access ids hold perm. Only administrators may ask.
func (uc *AuthorizationUseCase) AccessIDsHavePermission(ctx context.Context, perm types.Permission, accessIDs []string) ([]*model.WorkbasketAccessItem, error) {
	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.Admin {
		return nil, goerr.Wrap(model.ErrNotAuthorized, "administrative role required", goerr.V(UserIDKey, caller.UserID))
	}

	if perm == "" || !perm.IsValid() {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "permission is not given", goerr.V(model.PermissionKey, perm))
	}
	if len(accessIDs) == 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "access ids are not given")
	}

	items, err := uc.repo.Workbasket().AccessItemsWithPermission(ctx, perm, accessIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list access items", goerr.V(model.PermissionKey, perm))
	}
	return items, nil
}

// requireWorkbasketPermission fails with ErrNotAuthorized unless one access
// id of the caller holds all perms on the workbasket
func (uc *AuthorizationUseCase) requireWorkbasketPermission(ctx context.Context, caller *auth.Caller, workbasketID string, perms ...types.Permission) error {
	permitted, err := uc.repo.Workbasket().PermittedWorkbaskets(ctx, caller.AccessIDs(), perms)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve permissions", goerr.V(model.WorkbasketIDKey, workbasketID))
	}
	if _, ok := permitted[workbasketID]; !ok {
		return goerr.Wrap(model.ErrNotAuthorized, "missing workbasket permission",
			goerr.V(model.WorkbasketIDKey, workbasketID),
			goerr.V(UserIDKey, caller.UserID),
			goerr.V(model.PermissionKey, perms))
	}
	return nil
}

// canRead reports whether the caller may see tasks of the workbasket
func (uc *AuthorizationUseCase) canRead(ctx context.Context, caller *auth.Caller, workbasketID string) (bool, error) {
	perms, err := uc.repo.Workbasket().PermissionsFor(ctx, caller.AccessIDs(), workbasketID)
	if err != nil {
		return false, goerr.Wrap(err, "failed to resolve permissions", goerr.V(model.WorkbasketIDKey, workbasketID))
	}
	return perms.Has(types.PermissionRead), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}
