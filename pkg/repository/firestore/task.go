package firestore

import (
	"context"
	"errors"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
	"github.com/secmon-lab/taskbasket/pkg/repository/eval"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type taskRepository struct {
	client           *firestore.Client
	collectionPrefix string

	workbasket     *workbasketRepository
	user           *userRepository
	classification *classificationRepository
}

func newTaskRepository(client *firestore.Client, wb *workbasketRepository, user *userRepository, class *classificationRepository) *taskRepository {
	return &taskRepository{
		client:         client,
		workbasket:     wb,
		user:           user,
		classification: class,
	}
}

func (r *taskRepository) tasksCollection() string {
	return collectionName(r.collectionPrefix, "tasks")
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	doc, err := toTaskDoc(task)
	if err != nil {
		return goerr.Wrap(err, "failed to convert task", goerr.V(model.TaskIDKey, task.ID))
	}

	_, err = r.client.Collection(r.tasksCollection()).Doc(task.ID).Create(ctx, doc)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(model.ErrInvalidArgument, "task already exists", goerr.V(model.TaskIDKey, task.ID))
		}
		return model.WrapStorage(err, "failed to create task", goerr.V(model.TaskIDKey, task.ID))
	}
	return nil
}

func decodeTask(snap *firestore.DocumentSnapshot) (*model.Task, error) {
	var doc taskDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, model.WrapStorage(err, "failed to decode task", goerr.V("doc_id", snap.Ref.ID))
	}
	t, err := doc.model()
	if err != nil {
		return nil, model.WrapStorage(err, "failed to decode task", goerr.V("doc_id", snap.Ref.ID))
	}
	return t, nil
}

func (r *taskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	snap, err := r.client.Collection(r.tasksCollection()).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "task not found", goerr.V(model.TaskIDKey, id))
		}
		return nil, model.WrapStorage(err, "failed to get task", goerr.V(model.TaskIDKey, id))
	}
	return decodeTask(snap)
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task, expectedModified time.Time) error {
	doc, err := toTaskDoc(task)
	if err != nil {
		return goerr.Wrap(err, "failed to convert task", goerr.V(model.TaskIDKey, task.ID))
	}
	ref := r.client.Collection(r.tasksCollection()).Doc(task.ID)

	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrNotFound, "task not found", goerr.V(model.TaskIDKey, task.ID))
			}
			return model.WrapStorage(err, "failed to get task", goerr.V(model.TaskIDKey, task.ID))
		}

		modified, err := snap.DataAt("modified")
		if err != nil {
			return model.WrapStorage(err, "failed to read modified", goerr.V(model.TaskIDKey, task.ID))
		}
		current, ok := modified.(time.Time)
		if !ok || !current.Equal(expectedModified) {
			return goerr.Wrap(model.ErrConcurrency, "task was modified concurrently",
				goerr.V(model.TaskIDKey, task.ID), goerr.V("expected", expectedModified), goerr.V("actual", modified))
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to update task", goerr.V(model.TaskIDKey, task.ID))
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	ref := r.client.Collection(r.tasksCollection()).Doc(id)

	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrNotFound, "task not found", goerr.V(model.TaskIDKey, id))
		}
		return model.WrapStorage(err, "failed to check task existence", goerr.V(model.TaskIDKey, id))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return model.WrapStorage(err, "failed to delete task", goerr.V(model.TaskIDKey, id))
	}
	return nil
}

// candidates loads the tasks a request can possibly match. The permission
// predicate is pushed down as "workbasket_id in" filters; everything else is
// evaluated in process. It returns the permitted set so that evaluation
// does not resolve it a second time.
func (r *taskRepository) candidates(ctx context.Context, req *query.Request) ([]*eval.Row, eval.PermissionResolver, error) {
	var permitted map[string]struct{}
	for _, p := range req.Predicates {
		if p.Op != query.OpPermitted {
			continue
		}
		set, err := r.workbasket.PermittedWorkbaskets(ctx, p.AccessIDs, p.Permissions)
		if err != nil {
			return nil, nil, err
		}
		if permitted == nil {
			permitted = set
			continue
		}
		for id := range permitted {
			if _, ok := set[id]; !ok {
				delete(permitted, id)
			}
		}
	}

	resolve := func(ctx context.Context, accessIDs []string, perms []types.Permission) (map[string]struct{}, error) {
		return r.workbasket.PermittedWorkbaskets(ctx, accessIDs, perms)
	}

	var tasks []*model.Task
	if permitted == nil {
		all, err := r.loadAll(ctx)
		if err != nil {
			return nil, nil, err
		}
		tasks = all
	} else {
		ids := make([]string, 0, len(permitted))
		for id := range permitted {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, chunk := range chunkStrings(ids, inQueryLimit) {
			loaded, err := r.loadWorkbaskets(ctx, chunk)
			if err != nil {
				return nil, nil, err
			}
			tasks = append(tasks, loaded...)
		}
		resolve = func(context.Context, []string, []types.Permission) (map[string]struct{}, error) {
			return permitted, nil
		}
	}

	rows := make([]*eval.Row, len(tasks))
	for i, t := range tasks {
		rows[i] = &eval.Row{Task: t}
	}
	if err := r.join(ctx, rows, req.Joins()); err != nil {
		return nil, nil, err
	}
	return rows, resolve, nil
}

func (r *taskRepository) readAll(iter *firestore.DocumentIterator) ([]*model.Task, error) {
	defer iter.Stop()

	var tasks []*model.Task
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, model.WrapStorage(err, "failed to iterate tasks")
		}
		t, err := decodeTask(snap)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (r *taskRepository) loadAll(ctx context.Context) ([]*model.Task, error) {
	return r.readAll(r.client.Collection(r.tasksCollection()).Documents(ctx))
}

func (r *taskRepository) loadWorkbaskets(ctx context.Context, workbasketIDs []string) ([]*model.Task, error) {
	q := r.client.Collection(r.tasksCollection()).Where("workbasket_id", "in", workbasketIDs)
	return r.readAll(q.Documents(ctx))
}

func (r *taskRepository) join(ctx context.Context, rows []*eval.Row, joins []query.Join) error {
	if slices.Contains(joins, query.JoinClassification) {
		names := map[string]string{}
		for _, row := range rows {
			id := row.Task.Classification.ID
			if id == "" {
				continue
			}
			if _, ok := names[id]; !ok {
				c, err := r.classification.Get(ctx, id)
				switch {
				case err == nil:
					names[id] = c.Name
				case errors.Is(err, model.ErrNotFound):
					names[id] = ""
				default:
					return err
				}
			}
			row.ClassificationName = names[id]
		}
	}

	if slices.Contains(joins, query.JoinOwner) {
		var owners []string
		for _, row := range rows {
			if row.Task.Owner != "" && !slices.Contains(owners, row.Task.Owner) {
				owners = append(owners, row.Task.Owner)
			}
		}
		names, err := r.user.ResolveLongNames(ctx, owners)
		if err != nil {
			return err
		}
		for _, row := range rows {
			row.OwnerLongName = names[row.Task.Owner]
		}
	}
	return nil
}

func (r *taskRepository) Fetch(ctx context.Context, req *query.Request) ([]*model.TaskSummary, error) {
	rows, resolve, err := r.candidates(ctx, req)
	if err != nil {
		return nil, err
	}
	return eval.Select(ctx, rows, req, resolve)
}

func (r *taskRepository) Count(ctx context.Context, req *query.Request) (int64, error) {
	rows, resolve, err := r.candidates(ctx, req)
	if err != nil {
		return 0, err
	}
	return eval.Count(ctx, rows, req, resolve)
}

func (r *taskRepository) Values(ctx context.Context, req *query.Request, col query.Column, dir types.SortDirection) ([]string, error) {
	rows, resolve, err := r.candidates(ctx, req)
	if err != nil {
		return nil, err
	}
	if j := col.Join(); j != query.JoinNone {
		if err := r.join(ctx, rows, []query.Join{j}); err != nil {
			return nil, err
		}
	}
	return eval.Values(ctx, rows, req, col, dir, resolve)
}
