package firestore

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type classificationDoc struct {
	ID       string   `firestore:"id"`
	Key      string   `firestore:"key"`
	ParentID string   `firestore:"parent_id"`
	Category string   `firestore:"category"`
	Type     string   `firestore:"type"`
	Domain   string   `firestore:"domain"`
	Name     string   `firestore:"name"`
	Priority int      `firestore:"priority"`
	Customs  []string `firestore:"customs"`
}

func toClassificationDoc(c *model.Classification) *classificationDoc {
	return &classificationDoc{
		ID:       c.ID,
		Key:      c.Key,
		ParentID: c.ParentID,
		Category: c.Category,
		Type:     c.Type,
		Domain:   c.Domain,
		Name:     c.Name,
		Priority: c.Priority,
		Customs:  c.Customs[:],
	}
}

func (d *classificationDoc) model() *model.Classification {
	c := &model.Classification{
		ID:       d.ID,
		Key:      d.Key,
		ParentID: d.ParentID,
		Category: d.Category,
		Type:     d.Type,
		Domain:   d.Domain,
		Name:     d.Name,
		Priority: d.Priority,
	}
	copy(c.Customs[:], d.Customs)
	return c
}

type classificationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newClassificationRepository(client *firestore.Client) *classificationRepository {
	return &classificationRepository{client: client}
}

func (r *classificationRepository) classificationsCollection() string {
	return collectionName(r.collectionPrefix, "classifications")
}

func (r *classificationRepository) Create(ctx context.Context, c *model.Classification) error {
	_, err := r.client.Collection(r.classificationsCollection()).Doc(c.ID).Create(ctx, toClassificationDoc(c))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(model.ErrInvalidArgument, "classification already exists", goerr.V("classification_id", c.ID))
		}
		return model.WrapStorage(err, "failed to create classification", goerr.V("classification_id", c.ID))
	}
	return nil
}

func (r *classificationRepository) Get(ctx context.Context, id string) (*model.Classification, error) {
	snap, err := r.client.Collection(r.classificationsCollection()).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "classification not found", goerr.V("classification_id", id))
		}
		return nil, model.WrapStorage(err, "failed to get classification", goerr.V("classification_id", id))
	}

	var doc classificationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, model.WrapStorage(err, "failed to decode classification", goerr.V("classification_id", id))
	}
	return doc.model(), nil
}

func (r *classificationRepository) GetByKey(ctx context.Context, key, domain string) (*model.Classification, error) {
	iter := r.client.Collection(r.classificationsCollection()).
		Where("key", "==", key).
		Where("domain", "==", domain).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(model.ErrNotFound, "classification not found", goerr.V("key", key), goerr.V("domain", domain))
	}
	if err != nil {
		return nil, model.WrapStorage(err, "failed to query classification", goerr.V("key", key))
	}

	var doc classificationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, model.WrapStorage(err, "failed to decode classification", goerr.V("doc_id", snap.Ref.ID))
	}
	return doc.model(), nil
}

func (r *classificationRepository) List(ctx context.Context) ([]*model.Classification, error) {
	iter := r.client.Collection(r.classificationsCollection()).Documents(ctx)
	defer iter.Stop()

	var out []*model.Classification
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, model.WrapStorage(err, "failed to iterate classifications")
		}
		var doc classificationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, model.WrapStorage(err, "failed to decode classification", goerr.V("doc_id", snap.Ref.ID))
		}
		out = append(out, doc.model())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
