package interfaces

import (
	"context"

	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

// WorkbasketRepository stores workbaskets and their access control lists.
// It is also the permission store consulted for authorization.
type WorkbasketRepository interface {
	Create(ctx context.Context, wb *model.Workbasket) error
	Get(ctx context.Context, id string) (*model.Workbasket, error)
	// GetByKey looks a workbasket up by its natural key
	GetByKey(ctx context.Context, key, domain string) (*model.Workbasket, error)
	List(ctx context.Context) ([]*model.Workbasket, error)

	// PutAccessItem creates or replaces the item for (WorkbasketID, AccessID)
	PutAccessItem(ctx context.Context, item *model.WorkbasketAccessItem) error
	DeleteAccessItem(ctx context.Context, workbasketID, accessID string) error
	ListAccessItems(ctx context.Context, workbasketID string) ([]*model.WorkbasketAccessItem, error)

	// PermissionsFor returns the union of permissions the access ids hold on
	// the workbasket. Unknown workbaskets yield an empty set.
	PermissionsFor(ctx context.Context, accessIDs []string, workbasketID string) (types.PermissionSet, error)

	// PermittedWorkbaskets returns ids of workbaskets where at least one of
	// the access ids holds all of perms
	PermittedWorkbaskets(ctx context.Context, accessIDs []string, perms []types.Permission) (map[string]struct{}, error)

	// AccessItemsWithPermission returns the items of the given access ids
	// that include perm
	AccessItemsWithPermission(ctx context.Context, perm types.Permission, accessIDs []string) ([]*model.WorkbasketAccessItem, error)
}
