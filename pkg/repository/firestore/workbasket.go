package firestore

import (
	"context"
	"net/url"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type workbasketDoc struct {
	ID          string    `firestore:"id"`
	Key         string    `firestore:"key"`
	Domain      string    `firestore:"domain"`
	Name        string    `firestore:"name"`
	Description string    `firestore:"description"`
	Owner       string    `firestore:"owner"`
	Created     time.Time `firestore:"created"`
	Modified    time.Time `firestore:"modified"`
}

type accessItemDoc struct {
	WorkbasketID string   `firestore:"workbasket_id"`
	AccessID     string   `firestore:"access_id"`
	AccessName   string   `firestore:"access_name"`
	Permissions  []string `firestore:"permissions"`
}

func (d *accessItemDoc) model() *model.WorkbasketAccessItem {
	set := types.NewPermissionSet()
	for _, p := range d.Permissions {
		if perm := types.Permission(p); perm.IsValid() {
			set[perm] = struct{}{}
		}
	}
	return &model.WorkbasketAccessItem{
		WorkbasketID: d.WorkbasketID,
		AccessID:     d.AccessID,
		AccessName:   d.AccessName,
		Permissions:  set,
	}
}

type workbasketRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newWorkbasketRepository(client *firestore.Client) *workbasketRepository {
	return &workbasketRepository{client: client}
}

func (r *workbasketRepository) workbasketsCollection() string {
	return collectionName(r.collectionPrefix, "workbaskets")
}

func (r *workbasketRepository) accessCollection() string {
	return collectionName(r.collectionPrefix, "workbasket_access")
}

// accessDocID is unique per (workbasket, access id); both parts are escaped
// because document ids must not contain '/'
func accessDocID(workbasketID, accessID string) string {
	return url.PathEscape(workbasketID) + ":" + url.PathEscape(accessID)
}

func (r *workbasketRepository) Create(ctx context.Context, wb *model.Workbasket) error {
	if _, err := r.GetByKey(ctx, wb.Key, wb.Domain); err == nil {
		return goerr.Wrap(model.ErrInvalidArgument, "workbasket key already used in domain",
			goerr.V("key", wb.Key), goerr.V("domain", wb.Domain))
	}

	doc := workbasketDoc(*wb)
	_, err := r.client.Collection(r.workbasketsCollection()).Doc(wb.ID).Create(ctx, &doc)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(model.ErrInvalidArgument, "workbasket already exists", goerr.V(model.WorkbasketIDKey, wb.ID))
		}
		return model.WrapStorage(err, "failed to create workbasket", goerr.V(model.WorkbasketIDKey, wb.ID))
	}
	return nil
}

func (r *workbasketRepository) Get(ctx context.Context, id string) (*model.Workbasket, error) {
	snap, err := r.client.Collection(r.workbasketsCollection()).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "workbasket not found", goerr.V(model.WorkbasketIDKey, id))
		}
		return nil, model.WrapStorage(err, "failed to get workbasket", goerr.V(model.WorkbasketIDKey, id))
	}

	var doc workbasketDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, model.WrapStorage(err, "failed to decode workbasket", goerr.V(model.WorkbasketIDKey, id))
	}
	wb := model.Workbasket(doc)
	return &wb, nil
}

func (r *workbasketRepository) GetByKey(ctx context.Context, key, domain string) (*model.Workbasket, error) {
	iter := r.client.Collection(r.workbasketsCollection()).
		Where("key", "==", key).
		Where("domain", "==", domain).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(model.ErrNotFound, "workbasket not found", goerr.V("key", key), goerr.V("domain", domain))
	}
	if err != nil {
		return nil, model.WrapStorage(err, "failed to query workbasket", goerr.V("key", key), goerr.V("domain", domain))
	}

	var doc workbasketDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, model.WrapStorage(err, "failed to decode workbasket", goerr.V("doc_id", snap.Ref.ID))
	}
	wb := model.Workbasket(doc)
	return &wb, nil
}

func (r *workbasketRepository) List(ctx context.Context) ([]*model.Workbasket, error) {
	iter := r.client.Collection(r.workbasketsCollection()).Documents(ctx)
	defer iter.Stop()

	var out []*model.Workbasket
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, model.WrapStorage(err, "failed to iterate workbaskets")
		}
		var doc workbasketDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, model.WrapStorage(err, "failed to decode workbasket", goerr.V("doc_id", snap.Ref.ID))
		}
		wb := model.Workbasket(doc)
		out = append(out, &wb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *workbasketRepository) PutAccessItem(ctx context.Context, item *model.WorkbasketAccessItem) error {
	if _, err := r.Get(ctx, item.WorkbasketID); err != nil {
		return err
	}

	doc := &accessItemDoc{
		WorkbasketID: item.WorkbasketID,
		AccessID:     item.AccessID,
		AccessName:   item.AccessName,
	}
	for _, p := range item.Permissions.Slice() {
		doc.Permissions = append(doc.Permissions, p.String())
	}

	_, err := r.client.Collection(r.accessCollection()).Doc(accessDocID(item.WorkbasketID, item.AccessID)).Set(ctx, doc)
	if err != nil {
		return model.WrapStorage(err, "failed to put access item",
			goerr.V(model.WorkbasketIDKey, item.WorkbasketID), goerr.V(model.AccessIDKey, item.AccessID))
	}
	return nil
}

func (r *workbasketRepository) DeleteAccessItem(ctx context.Context, workbasketID, accessID string) error {
	ref := r.client.Collection(r.accessCollection()).Doc(accessDocID(workbasketID, accessID))
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrNotFound, "access item not found",
				goerr.V(model.WorkbasketIDKey, workbasketID), goerr.V(model.AccessIDKey, accessID))
		}
		return model.WrapStorage(err, "failed to get access item",
			goerr.V(model.WorkbasketIDKey, workbasketID), goerr.V(model.AccessIDKey, accessID))
	}
	if _, err := ref.Delete(ctx); err != nil {
		return model.WrapStorage(err, "failed to delete access item",
			goerr.V(model.WorkbasketIDKey, workbasketID), goerr.V(model.AccessIDKey, accessID))
	}
	return nil
}

func readAccessItems(iter *firestore.DocumentIterator) ([]*model.WorkbasketAccessItem, error) {
	defer iter.Stop()

	var out []*model.WorkbasketAccessItem
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, model.WrapStorage(err, "failed to iterate access items")
		}
		var doc accessItemDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, model.WrapStorage(err, "failed to decode access item", goerr.V("doc_id", snap.Ref.ID))
		}
		out = append(out, doc.model())
	}
	return out, nil
}

func (r *workbasketRepository) ListAccessItems(ctx context.Context, workbasketID string) ([]*model.WorkbasketAccessItem, error) {
	iter := r.client.Collection(r.accessCollection()).Where("workbasket_id", "==", workbasketID).Documents(ctx)
	items, err := readAccessItems(iter)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AccessID < items[j].AccessID })
	return items, nil
}

// itemsOf loads every access item of the given access ids
func (r *workbasketRepository) itemsOf(ctx context.Context, accessIDs []string) ([]*model.WorkbasketAccessItem, error) {
	var out []*model.WorkbasketAccessItem
	for _, chunk := range chunkStrings(accessIDs, inQueryLimit) {
		iter := r.client.Collection(r.accessCollection()).Where("access_id", "in", chunk).Documents(ctx)
		items, err := readAccessItems(iter)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (r *workbasketRepository) PermissionsFor(ctx context.Context, accessIDs []string, workbasketID string) (types.PermissionSet, error) {
	items, err := r.itemsOf(ctx, accessIDs)
	if err != nil {
		return nil, err
	}

	set := types.NewPermissionSet()
	for _, item := range items {
		if item.WorkbasketID != workbasketID {
			continue
		}
		for p := range item.Permissions {
			set[p] = struct{}{}
		}
	}
	return set, nil
}

func (r *workbasketRepository) PermittedWorkbaskets(ctx context.Context, accessIDs []string, perms []types.Permission) (map[string]struct{}, error) {
	items, err := r.itemsOf(ctx, accessIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[string]struct{})
	for _, item := range items {
		if item.Permissions.HasAll(perms...) {
			out[item.WorkbasketID] = struct{}{}
		}
	}
	return out, nil
}

func (r *workbasketRepository) AccessItemsWithPermission(ctx context.Context, perm types.Permission, accessIDs []string) ([]*model.WorkbasketAccessItem, error) {
	items, err := r.itemsOf(ctx, accessIDs)
	if err != nil {
		return nil, err
	}

	var out []*model.WorkbasketAccessItem
	for _, item := range items {
		if item.Permissions.Has(perm) {
			out = append(out, item)
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
