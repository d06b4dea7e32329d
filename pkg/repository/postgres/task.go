package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
	"github.com/secmon-lab/taskbasket/pkg/repository/codec"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

var taskFields = func() []string {
	fields := []string{
		"id", "created", "modified", "claimed", "completed", "planned", "due", "received",
		"name", "description", "note", "creator", "business_process_id",
		"classification_id", "classification_key", "classification_category", "classification_priority",
		"workbasket_id", "workbasket_key", "domain",
		"owner", "state", "priority", "manual_priority",
		"por_company", "por_system", "por_instance", "por_type", "por_value",
	}
	for i := 1; i <= model.CustomSlotCount; i++ {
		fields = append(fields, "custom_"+strconv.Itoa(i))
	}
	return append(fields, "custom_attributes", "callback_info", "is_read", "is_transferred")
}()

var taskColumns = func() string {
	cols := make([]string, len(taskFields))
	for i, f := range taskFields {
		cols[i] = "t." + f
	}
	return strings.Join(cols, ", ")
}()

func taskValues(t *model.Task) ([]any, error) {
	attrs, err := codec.Encode(t.CustomAttributes)
	if err != nil {
		return nil, err
	}
	callback, err := codec.Encode(t.CallbackInfo)
	if err != nil {
		return nil, err
	}

	values := []any{
		t.ID, t.Created, t.Modified, t.Claimed, t.Completed, t.Planned, t.Due, t.Received,
		nullString(t.Name), nullString(t.Description), nullString(t.Note), nullString(t.Creator), nullString(t.BusinessProcessID),
		nullString(t.Classification.ID), nullString(t.Classification.Key), nullString(t.Classification.Category), t.Classification.Priority,
		nullString(t.Workbasket.ID), nullString(t.Workbasket.Key), nullString(t.Workbasket.Domain),
		nullString(t.Owner), t.State.String(), t.Priority, t.ManualPriority,
		nullString(t.PrimaryObjectReference.Company), nullString(t.PrimaryObjectReference.System),
		nullString(t.PrimaryObjectReference.SystemInstance), nullString(t.PrimaryObjectReference.Type),
		nullString(t.PrimaryObjectReference.Value),
	}
	for _, c := range t.Customs {
		values = append(values, c)
	}
	return append(values, nullString(attrs), nullString(callback), t.IsRead, t.IsTransferred), nil
}

// scanTask reads the columns listed in taskFields followed by extra
func scanTask(row pgx.Row, extra ...any) (*model.Task, error) {
	var (
		t                                                 model.Task
		name, description, note, creator, bpID            *string
		classID, classKey, classCategory                  *string
		wbID, wbKey, domain, owner, state                 *string
		porCompany, porSystem, porInstance, porType, porV *string
		attrs, callback                                   *string
	)

	dest := []any{
		&t.ID, &t.Created, &t.Modified, &t.Claimed, &t.Completed, &t.Planned, &t.Due, &t.Received,
		&name, &description, &note, &creator, &bpID,
		&classID, &classKey, &classCategory, &t.Classification.Priority,
		&wbID, &wbKey, &domain,
		&owner, &state, &t.Priority, &t.ManualPriority,
		&porCompany, &porSystem, &porInstance, &porType, &porV,
	}
	for i := range t.Customs {
		dest = append(dest, &t.Customs[i])
	}
	dest = append(dest, &attrs, &callback, &t.IsRead, &t.IsTransferred)
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	t.Name = fromNull(name)
	t.Description = fromNull(description)
	t.Note = fromNull(note)
	t.Creator = fromNull(creator)
	t.BusinessProcessID = fromNull(bpID)
	t.Classification.ID = fromNull(classID)
	t.Classification.Key = fromNull(classKey)
	t.Classification.Category = fromNull(classCategory)
	t.Workbasket = model.WorkbasketSummary{ID: fromNull(wbID), Key: fromNull(wbKey), Domain: fromNull(domain)}
	t.Owner = fromNull(owner)
	t.State = types.TaskState(fromNull(state))
	t.PrimaryObjectReference = model.ObjectReference{
		Company:        fromNull(porCompany),
		System:         fromNull(porSystem),
		SystemInstance: fromNull(porInstance),
		Type:           fromNull(porType),
		Value:          fromNull(porV),
	}

	var err error
	if t.CustomAttributes, err = codec.Decode(fromNull(attrs)); err != nil {
		return nil, err
	}
	if t.CallbackInfo, err = codec.Decode(fromNull(callback)); err != nil {
		return nil, err
	}
	return &t, nil
}

func insertTask(ctx context.Context, q querier, t *model.Task) error {
	values, err := taskValues(t)
	if err != nil {
		return err
	}
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	sql := "INSERT INTO tasks (" + strings.Join(taskFields, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	if _, err := q.Exec(ctx, sql, values...); err != nil {
		return err
	}
	return insertChildren(ctx, q, t)
}

func insertChildren(ctx context.Context, q querier, t *model.Task) error {
	for i, ref := range t.SecondaryObjectReferences {
		if _, err := q.Exec(ctx,
			`INSERT INTO object_references (task_id, position, company, system, system_instance, type, value)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.ID, i, nullString(ref.Company), nullString(ref.System), nullString(ref.SystemInstance),
			nullString(ref.Type), nullString(ref.Value)); err != nil {
			return err
		}
	}
	for i, a := range t.Attachments {
		if _, err := q.Exec(ctx,
			`INSERT INTO attachments (task_id, position, id, classification_id, classification_key,
				classification_category, classification_priority, ref_company, ref_system,
				ref_system_instance, ref_type, ref_value, channel, received)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			t.ID, i, a.ID, nullString(a.Classification.ID), nullString(a.Classification.Key),
			nullString(a.Classification.Category), a.Classification.Priority,
			nullString(a.ObjectReference.Company), nullString(a.ObjectReference.System),
			nullString(a.ObjectReference.SystemInstance), nullString(a.ObjectReference.Type),
			nullString(a.ObjectReference.Value), nullString(a.Channel), a.Received); err != nil {
			return err
		}
	}
	return nil
}

// hydrate loads secondary object references and attachments of the given tasks
func hydrate(ctx context.Context, q querier, tasks map[string]*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}

	rows, err := q.Query(ctx,
		`SELECT task_id, company, system, system_instance, type, value
		FROM object_references WHERE task_id = ANY($1) ORDER BY task_id, position`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var taskID string
		var company, system, instance, typ, value *string
		if err := rows.Scan(&taskID, &company, &system, &instance, &typ, &value); err != nil {
			rows.Close()
			return err
		}
		t := tasks[taskID]
		t.SecondaryObjectReferences = append(t.SecondaryObjectReferences, model.ObjectReference{
			Company: fromNull(company), System: fromNull(system), SystemInstance: fromNull(instance),
			Type: fromNull(typ), Value: fromNull(value),
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.Query(ctx,
		`SELECT task_id, id, classification_id, classification_key, classification_category,
			classification_priority, ref_company, ref_system, ref_system_instance, ref_type,
			ref_value, channel, received
		FROM attachments WHERE task_id = ANY($1) ORDER BY task_id, position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var taskID string
		var a model.Attachment
		var classID, classKey, classCategory, company, system, instance, typ, value, channel *string
		if err := rows.Scan(&taskID, &a.ID, &classID, &classKey, &classCategory, &a.Classification.Priority,
			&company, &system, &instance, &typ, &value, &channel, &a.Received); err != nil {
			return err
		}
		a.Classification.ID = fromNull(classID)
		a.Classification.Key = fromNull(classKey)
		a.Classification.Category = fromNull(classCategory)
		a.ObjectReference = model.ObjectReference{
			Company: fromNull(company), System: fromNull(system), SystemInstance: fromNull(instance),
			Type: fromNull(typ), Value: fromNull(value),
		}
		a.Channel = fromNull(channel)
		t := tasks[taskID]
		t.Attachments = append(t.Attachments, a)
	}
	return rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)", task.ID).Scan(&exists); err != nil {
			return model.WrapStorage(err, "failed to check task", goerr.V(model.TaskIDKey, task.ID))
		}
		if exists {
			return goerr.Wrap(model.ErrInvalidArgument, "task already exists", goerr.V(model.TaskIDKey, task.ID))
		}
		if err := insertTask(ctx, tx, task); err != nil {
			return model.WrapStorage(err, "failed to insert task", goerr.V(model.TaskIDKey, task.ID))
		}
		return nil
	})
	return err
}

func (r *taskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks t WHERE t.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "task not found", goerr.V(model.TaskIDKey, id))
	}
	if err != nil {
		return nil, model.WrapStorage(err, "failed to get task", goerr.V(model.TaskIDKey, id))
	}
	if err := hydrate(ctx, r.pool, map[string]*model.Task{t.ID: t}); err != nil {
		return nil, model.WrapStorage(err, "failed to load task details", goerr.V(model.TaskIDKey, id))
	}
	return t, nil
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task, expectedModified time.Time) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		values, err := taskValues(task)
		if err != nil {
			return err
		}
		sets := make([]string, 0, len(taskFields)-1)
		for i, f := range taskFields[1:] {
			sets = append(sets, f+" = $"+strconv.Itoa(i+2))
		}
		values = append(values, expectedModified)
		sql := "UPDATE tasks SET " + strings.Join(sets, ", ") +
			" WHERE id = $1 AND modified = $" + strconv.Itoa(len(values))

		tag, err := tx.Exec(ctx, sql, values...)
		if err != nil {
			return model.WrapStorage(err, "failed to update task", goerr.V(model.TaskIDKey, task.ID))
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)", task.ID).Scan(&exists); err != nil {
				return model.WrapStorage(err, "failed to check task", goerr.V(model.TaskIDKey, task.ID))
			}
			if !exists {
				return goerr.Wrap(model.ErrNotFound, "task not found", goerr.V(model.TaskIDKey, task.ID))
			}
			return goerr.Wrap(model.ErrConcurrency, "task was modified concurrently",
				goerr.V(model.TaskIDKey, task.ID), goerr.V("expected", expectedModified))
		}

		for _, table := range []string{"object_references", "attachments"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE task_id = $1", task.ID); err != nil {
				return model.WrapStorage(err, "failed to clear task details", goerr.V(model.TaskIDKey, task.ID))
			}
		}
		if err := insertChildren(ctx, tx, task); err != nil {
			return model.WrapStorage(err, "failed to store task details", goerr.V(model.TaskIDKey, task.ID))
		}
		return nil
	})
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return model.WrapStorage(err, "failed to delete task", goerr.V(model.TaskIDKey, id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(model.ErrNotFound, "task not found", goerr.V(model.TaskIDKey, id))
	}
	return nil
}

func (r *taskRepository) Fetch(ctx context.Context, req *query.Request) ([]*model.TaskSummary, error) {
	stmt, err := compileSelect(req)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, stmt.sql, stmt.args...)
	if err != nil {
		return nil, model.WrapStorage(err, "failed to query tasks", goerr.V("sql", stmt.sql))
	}
	defer rows.Close()

	var out []*model.TaskSummary
	byID := make(map[string]*model.Task)
	for rows.Next() {
		var count int64
		t, err := scanTask(rows, &count)
		if err != nil {
			return nil, model.WrapStorage(err, "failed to scan task")
		}
		s := &model.TaskSummary{Task: *t, GroupByCount: count}
		out = append(out, s)
		byID[t.ID] = &s.Task
	}
	if err := rows.Err(); err != nil {
		return nil, model.WrapStorage(err, "failed to read tasks")
	}
	rows.Close()

	if err := hydrate(ctx, r.pool, byID); err != nil {
		return nil, model.WrapStorage(err, "failed to load task details")
	}
	return out, nil
}

func (r *taskRepository) Count(ctx context.Context, req *query.Request) (int64, error) {
	stmt, err := compileCount(req)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.pool.QueryRow(ctx, stmt.sql, stmt.args...).Scan(&n); err != nil {
		return 0, model.WrapStorage(err, "failed to count tasks", goerr.V("sql", stmt.sql))
	}
	return n, nil
}

func (r *taskRepository) Values(ctx context.Context, req *query.Request, col query.Column, dir types.SortDirection) ([]string, error) {
	stmt, err := compileValues(req, col, dir)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, stmt.sql, stmt.args...)
	if err != nil {
		return nil, model.WrapStorage(err, "failed to list values", goerr.V(model.ColumnKey, col))
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, model.WrapStorage(err, "failed to read values", goerr.V(model.ColumnKey, col))
	}
	return values, nil
}
