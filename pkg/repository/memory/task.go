package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
	"github.com/secmon-lab/taskbasket/pkg/repository/eval"
)

type taskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task

	workbasket     *workbasketRepository
	user           *userRepository
	classification *classificationRepository
}

func newTaskRepository(wb *workbasketRepository, user *userRepository, class *classificationRepository) *taskRepository {
	return &taskRepository{
		tasks:          make(map[string]*model.Task),
		workbasket:     wb,
		user:           user,
		classification: class,
	}
}

// copyTask stores or returns a deep copy. The long name is resolved on read
// and never stored.
func copyTask(t *model.Task) *model.Task {
	c := t.Clone()
	c.OwnerLongName = ""
	return c
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[task.ID]; exists {
		return goerr.Wrap(model.ErrInvalidArgument, "task already exists", goerr.V(model.TaskIDKey, task.ID))
	}
	r.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *taskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tasks[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "task not found", goerr.V(model.TaskIDKey, id))
	}
	return copyTask(t), nil
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task, expectedModified time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.tasks[task.ID]
	if !exists {
		return goerr.Wrap(model.ErrNotFound, "task not found", goerr.V(model.TaskIDKey, task.ID))
	}
	if !current.Modified.Equal(expectedModified) {
		return goerr.Wrap(model.ErrConcurrency, "task was modified concurrently",
			goerr.V(model.TaskIDKey, task.ID),
			goerr.V("expected", expectedModified),
			goerr.V("actual", current.Modified))
	}
	r.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[id]; !exists {
		return goerr.Wrap(model.ErrNotFound, "task not found", goerr.V(model.TaskIDKey, id))
	}
	delete(r.tasks, id)
	return nil
}

// rows snapshots all tasks and attaches the joined data the request needs
func (r *taskRepository) rows(ctx context.Context, joins []query.Join) []*eval.Row {
	r.mu.RLock()
	rows := make([]*eval.Row, 0, len(r.tasks))
	for _, t := range r.tasks {
		rows = append(rows, &eval.Row{Task: copyTask(t)})
	}
	r.mu.RUnlock()

	if slices.Contains(joins, query.JoinClassification) {
		for _, row := range rows {
			if c, err := r.classification.Get(ctx, row.Task.Classification.ID); err == nil {
				row.ClassificationName = c.Name
			}
		}
	}
	if slices.Contains(joins, query.JoinOwner) {
		for _, row := range rows {
			if row.Task.Owner == "" {
				continue
			}
			if name, err := r.user.ResolveLongName(ctx, row.Task.Owner); err == nil {
				row.OwnerLongName = name
			}
		}
	}
	return rows
}

func (r *taskRepository) Fetch(ctx context.Context, req *query.Request) ([]*model.TaskSummary, error) {
	return eval.Select(ctx, r.rows(ctx, req.Joins()), req, r.workbasket.PermittedWorkbaskets)
}

func (r *taskRepository) Count(ctx context.Context, req *query.Request) (int64, error) {
	return eval.Count(ctx, r.rows(ctx, req.Joins()), req, r.workbasket.PermittedWorkbaskets)
}

func (r *taskRepository) Values(ctx context.Context, req *query.Request, col query.Column, dir types.SortDirection) ([]string, error) {
	joins := req.Joins()
	if j := col.Join(); j != query.JoinNone {
		joins = append(joins, j)
	}
	return eval.Values(ctx, r.rows(ctx, joins), req, col, dir, r.workbasket.PermittedWorkbaskets)
}
