package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
)

type classificationRepository struct {
	mu              sync.RWMutex
	classifications map[string]*model.Classification
}

func newClassificationRepository() *classificationRepository {
	return &classificationRepository{classifications: make(map[string]*model.Classification)}
}

func (r *classificationRepository) Create(ctx context.Context, c *model.Classification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.classifications[c.ID]; exists {
		return goerr.Wrap(model.ErrInvalidArgument, "classification already exists", goerr.V("classification_id", c.ID))
	}
	copied := *c
	r.classifications[c.ID] = &copied
	return nil
}

func (r *classificationRepository) Get(ctx context.Context, id string) (*model.Classification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.classifications[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "classification not found", goerr.V("classification_id", id))
	}
	copied := *c
	return &copied, nil
}

func (r *classificationRepository) GetByKey(ctx context.Context, key, domain string) (*model.Classification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.classifications {
		if c.Key == key && c.Domain == domain {
			copied := *c
			return &copied, nil
		}
	}
	return nil, goerr.Wrap(model.ErrNotFound, "classification not found", goerr.V("key", key), goerr.V("domain", domain))
}

func (r *classificationRepository) List(ctx context.Context) ([]*model.Classification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Classification, 0, len(r.classifications))
	for _, c := range r.classifications {
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
