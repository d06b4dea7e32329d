package interfaces

import (
	"context"

	"github.com/secmon-lab/taskbasket/pkg/domain/model"
)

// ClassificationRepository stores classifications. Tasks keep a summary
// snapshot, so changes here do not alter existing tasks.
type ClassificationRepository interface {
	Create(ctx context.Context, c *model.Classification) error
	Get(ctx context.Context, id string) (*model.Classification, error)
	GetByKey(ctx context.Context, key, domain string) (*model.Classification, error)
	List(ctx context.Context) ([]*model.Classification, error)
}
