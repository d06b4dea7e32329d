package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

type workbasketRepository struct {
	mu          sync.RWMutex
	workbaskets map[string]*model.Workbasket
	// access items per workbasket id and access id
	access map[string]map[string]*model.WorkbasketAccessItem
}

func newWorkbasketRepository() *workbasketRepository {
	return &workbasketRepository{
		workbaskets: make(map[string]*model.Workbasket),
		access:      make(map[string]map[string]*model.WorkbasketAccessItem),
	}
}

func copyWorkbasket(wb *model.Workbasket) *model.Workbasket {
	c := *wb
	return &c
}

func (r *workbasketRepository) Create(ctx context.Context, wb *model.Workbasket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workbaskets[wb.ID]; exists {
		return goerr.Wrap(model.ErrInvalidArgument, "workbasket already exists", goerr.V(model.WorkbasketIDKey, wb.ID))
	}
	for _, existing := range r.workbaskets {
		if existing.Key == wb.Key && existing.Domain == wb.Domain {
			return goerr.Wrap(model.ErrInvalidArgument, "workbasket key already used in domain",
				goerr.V("key", wb.Key), goerr.V("domain", wb.Domain))
		}
	}
	r.workbaskets[wb.ID] = copyWorkbasket(wb)
	return nil
}

func (r *workbasketRepository) Get(ctx context.Context, id string) (*model.Workbasket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wb, exists := r.workbaskets[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "workbasket not found", goerr.V(model.WorkbasketIDKey, id))
	}
	return copyWorkbasket(wb), nil
}

func (r *workbasketRepository) GetByKey(ctx context.Context, key, domain string) (*model.Workbasket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, wb := range r.workbaskets {
		if wb.Key == key && wb.Domain == domain {
			return copyWorkbasket(wb), nil
		}
	}
	return nil, goerr.Wrap(model.ErrNotFound, "workbasket not found", goerr.V("key", key), goerr.V("domain", domain))
}

func (r *workbasketRepository) List(ctx context.Context) ([]*model.Workbasket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Workbasket, 0, len(r.workbaskets))
	for _, wb := range r.workbaskets {
		out = append(out, copyWorkbasket(wb))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *workbasketRepository) PutAccessItem(ctx context.Context, item *model.WorkbasketAccessItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workbaskets[item.WorkbasketID]; !exists {
		return goerr.Wrap(model.ErrNotFound, "workbasket not found", goerr.V(model.WorkbasketIDKey, item.WorkbasketID))
	}
	if _, exists := r.access[item.WorkbasketID]; !exists {
		r.access[item.WorkbasketID] = make(map[string]*model.WorkbasketAccessItem)
	}
	r.access[item.WorkbasketID][item.AccessID] = item.Clone()
	return nil
}

func (r *workbasketRepository) DeleteAccessItem(ctx context.Context, workbasketID, accessID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.access[workbasketID]
	if _, exists := items[accessID]; !exists {
		return goerr.Wrap(model.ErrNotFound, "access item not found",
			goerr.V(model.WorkbasketIDKey, workbasketID), goerr.V(model.AccessIDKey, accessID))
	}
	delete(items, accessID)
	return nil
}

func (r *workbasketRepository) ListAccessItems(ctx context.Context, workbasketID string) ([]*model.WorkbasketAccessItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.WorkbasketAccessItem, 0, len(r.access[workbasketID]))
	for _, item := range r.access[workbasketID] {
		out = append(out, item.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccessID < out[j].AccessID })
	return out, nil
}

func (r *workbasketRepository) PermissionsFor(ctx context.Context, accessIDs []string, workbasketID string) (types.PermissionSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := types.NewPermissionSet()
	for _, id := range accessIDs {
		if item, ok := r.access[workbasketID][id]; ok {
			for p := range item.Permissions {
				set[p] = struct{}{}
			}
		}
	}
	return set, nil
}

func (r *workbasketRepository) PermittedWorkbaskets(ctx context.Context, accessIDs []string, perms []types.Permission) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]struct{})
	for wbID, items := range r.access {
		for _, id := range accessIDs {
			if item, ok := items[id]; ok && item.Permissions.HasAll(perms...) {
				out[wbID] = struct{}{}
				break
			}
		}
	}
	return out, nil
}

func (r *workbasketRepository) AccessItemsWithPermission(ctx context.Context, perm types.Permission, accessIDs []string) ([]*model.WorkbasketAccessItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.WorkbasketAccessItem
	for _, items := range r.access {
		for _, item := range items {
			if slices.Contains(accessIDs, item.AccessID) && item.Permissions.Has(perm) {
				out = append(out, item.Clone())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkbasketID != out[j].WorkbasketID {
			return out[i].WorkbasketID < out[j].WorkbasketID
		}
		return out[i].AccessID < out[j].AccessID
	})
	return out, nil
}
