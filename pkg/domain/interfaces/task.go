package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
)

// TaskRepository is the storage collaborator of the query executor and the
// lifecycle state machine. Backend failures are wrapped with model.ErrStorage.
type TaskRepository interface {
	// Create stores a new task. The task ID must not exist yet.
	Create(ctx context.Context, task *model.Task) error

	// Get retrieves a task by ID, or model.ErrNotFound
	Get(ctx context.Context, id string) (*model.Task, error)

	// Update replaces a task only if its stored Modified still equals
	// expectedModified. Otherwise it fails with model.ErrConcurrency.
	Update(ctx context.Context, task *model.Task, expectedModified time.Time) error

	// Delete removes a task with its attachments and references
	Delete(ctx context.Context, id string) error

	// Fetch returns the rows matching the request, grouped, sorted and paged.
	// OwnerLongName is not resolved.
	Fetch(ctx context.Context, req *query.Request) ([]*model.TaskSummary, error)

	// Count returns the number of rows (or groups) matching the request,
	// ignoring its offset and limit
	Count(ctx context.Context, req *query.Request) (int64, error)

	// Values returns distinct non NULL values of a text column over the
	// rows matching the request
	Values(ctx context.Context, req *query.Request, col query.Column, dir types.SortDirection) ([]string, error)
}
