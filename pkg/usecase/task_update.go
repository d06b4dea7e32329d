package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/model/auth"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
)

// TaskIDPrefix starts every generated task id
const TaskIDPrefix = "TKI:"

// NewTask is the input of CreateTask
type NewTask struct {
	WorkbasketID      string
	ClassificationKey string

	Name              string
	Description       string
	Note              string
	BusinessProcessID string

	PrimaryObjectReference    model.ObjectReference
	SecondaryObjectReferences []model.ObjectReference
	Attachments               []model.Attachment

	Planned  *time.Time
	Due      *time.Time
	Received *time.Time

	// ManualPriority overrides the classification priority when set
	ManualPriority *int

	Customs      map[query.CustomField]*string
	CallbackInfo map[string]string
}

// TaskUpdate lists the fields to change. Nil fields are left as they are.
type TaskUpdate struct {
	Name        *string
	Description *string
	Note        *string
	Planned     *time.Time
	Due         *time.Time
	// ManualPriority of model.NoManualPriority removes the override
	ManualPriority *int
	// Customs sets slots and map keys; a nil value clears the field
	Customs map[query.CustomField]*string
}

func validateReference(ref model.ObjectReference) error {
	if ref.Company == "" || ref.Type == "" || ref.Value == "" {
		return goerr.Wrap(model.ErrInvalidArgument, "object reference needs company, type and value",
			goerr.V("reference", ref))
	}
	return nil
}

func validateManualPriority(prio int) error {
	if prio < model.NoManualPriority {
		return goerr.Wrap(model.ErrInvalidArgument, "manual priority must be -1 or greater",
			goerr.V("priority", prio))
	}
	return nil
}

// setCustom writes one custom field, resolving slots and map keys
func setCustom(t *model.Task, field query.CustomField, value *string) error {
	col, key, err := query.ResolveCustomField(field)
	if err != nil {
		return err
	}
	if slot, ok := col.CustomSlot(); ok {
		t.SetCustom(slot, value)
		return nil
	}

	if value == nil {
		delete(t.CustomAttributes, key)
		return nil
	}
	if t.CustomAttributes == nil {
		t.CustomAttributes = make(map[string]string)
	}
	t.CustomAttributes[key] = *value
	return nil
}

// CreateTask stores a new READY task in a workbasket the caller may APPEND to
func (uc *TaskUseCase) CreateTask(ctx context.Context, input NewTask) (*model.Task, error) {
	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}

	if input.WorkbasketID == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "workbasket is not given")
	}
	wb, err := uc.repo.Workbasket().Get(ctx, input.WorkbasketID)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(model.ErrNotAuthorized, "missing workbasket permission",
				goerr.V(model.WorkbasketIDKey, input.WorkbasketID), goerr.V(UserIDKey, caller.UserID))
		}
		return nil, goerr.Wrap(err, "failed to get workbasket", goerr.V(model.WorkbasketIDKey, input.WorkbasketID))
	}
	if err := uc.authz.requireWorkbasketPermission(ctx, caller, wb.ID, types.PermissionAppend); err != nil {
		return nil, err
	}

	if err := validateReference(input.PrimaryObjectReference); err != nil {
		return nil, err
	}
	if input.ManualPriority != nil {
		if err := validateManualPriority(*input.ManualPriority); err != nil {
			return nil, err
		}
	}
	if input.ClassificationKey == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "classification key is not given")
	}
	class, err := uc.repo.Classification().GetByKey(ctx, input.ClassificationKey, wb.Domain)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(model.ErrInvalidArgument, "classification not found in workbasket domain",
				goerr.V("key", input.ClassificationKey), goerr.V("domain", wb.Domain))
		}
		return nil, goerr.Wrap(err, "failed to get classification", goerr.V("key", input.ClassificationKey))
	}

	now := uc.timestamp()
	task := &model.Task{
		ID:                        TaskIDPrefix + uuid.NewString(),
		Created:                   now,
		Modified:                  now,
		Planned:                   input.Planned,
		Due:                       input.Due,
		Received:                  input.Received,
		Name:                      input.Name,
		Description:               input.Description,
		Note:                      input.Note,
		Creator:                   caller.UserID,
		BusinessProcessID:         input.BusinessProcessID,
		Classification:            class.Summary(),
		Workbasket:                wb.Summary(),
		State:                     types.TaskStateReady,
		ManualPriority:            model.NoManualPriority,
		PrimaryObjectReference:    input.PrimaryObjectReference,
		SecondaryObjectReferences: input.SecondaryObjectReferences,
		CallbackInfo:              input.CallbackInfo,
		Attachments:               input.Attachments,
	}
	if task.Name == "" {
		task.Name = class.Name
	}
	if input.ManualPriority != nil {
		task.ManualPriority = *input.ManualPriority
	}
	task.Priority = task.EffectivePriority()
	for field, value := range input.Customs {
		if err := setCustom(task, field, value); err != nil {
			return nil, err
		}
	}

	if err := uc.repo.Task().Create(ctx, task); err != nil {
		return nil, goerr.Wrap(err, "failed to create task", goerr.V(model.TaskIDKey, task.ID))
	}

	logging.From(ctx).Info("task created",
		slog.String("task_id", task.ID),
		slog.String("workbasket_id", wb.ID),
		slog.String("user_id", caller.UserID),
	)
	return task, nil
}

// update applies mutate to an open task the caller can see
func (uc *TaskUseCase) update(ctx context.Context, id, action string, mutate func(caller *auth.Caller, t *model.Task) error) (*model.Task, error) {
	return uc.transition(ctx, id, action, types.OpenTaskStates(), mutate)
}

// UpdateTask changes the editable fields of an open task
func (uc *TaskUseCase) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (*model.Task, error) {
	return uc.update(ctx, id, "updated", func(_ *auth.Caller, t *model.Task) error {
		if upd.Name != nil {
			t.Name = *upd.Name
		}
		if upd.Description != nil {
			t.Description = *upd.Description
		}
		if upd.Note != nil {
			t.Note = *upd.Note
		}
		if upd.Planned != nil {
			t.Planned = upd.Planned
		}
		if upd.Due != nil {
			t.Due = upd.Due
		}
		if upd.ManualPriority != nil {
			if err := validateManualPriority(*upd.ManualPriority); err != nil {
				return err
			}
			t.ManualPriority = *upd.ManualPriority
		}
		for field, value := range upd.Customs {
			if err := setCustom(t, field, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetCustomAttribute sets or, with a nil value, clears one custom field
func (uc *TaskUseCase) SetCustomAttribute(ctx context.Context, id string, field query.CustomField, value *string) (*model.Task, error) {
	return uc.UpdateTask(ctx, id, TaskUpdate{Customs: map[query.CustomField]*string{field: value}})
}

// SetOwner assigns a READY task without claiming it
func (uc *TaskUseCase) SetOwner(ctx context.Context, id, owner string) (*model.Task, error) {
	allowed := []types.TaskState{types.TaskStateReady}
	return uc.transition(ctx, id, "owner set", allowed, func(_ *auth.Caller, t *model.Task) error {
		t.Owner = owner
		return nil
	})
}

// SetRead marks the task as read or unread
func (uc *TaskUseCase) SetRead(ctx context.Context, id string, read bool) (*model.Task, error) {
	return uc.transition(ctx, id, "read flag set", types.AllTaskStates(), func(_ *auth.Caller, t *model.Task) error {
		t.IsRead = read
		return nil
	})
}

// DeleteTask removes a task in an end state. Administrators only.
func (uc *TaskUseCase) DeleteTask(ctx context.Context, id string) error {
	return uc.deleteTask(ctx, id, false)
}

// ForceDeleteTask removes a task regardless of its state. Administrators only.
func (uc *TaskUseCase) ForceDeleteTask(ctx context.Context, id string) error {
	return uc.deleteTask(ctx, id, true)
}

func (uc *TaskUseCase) deleteTask(ctx context.Context, id string, force bool) error {
	caller, err := callerOf(ctx)
	if err != nil {
		return err
	}
	if !caller.Admin {
		return goerr.Wrap(model.ErrNotAuthorized, "administrative role required",
			goerr.V(model.TaskIDKey, id), goerr.V(UserIDKey, caller.UserID))
	}

	task, err := uc.load(ctx, caller, id)
	if err != nil {
		return err
	}
	if !force && !task.State.IsEndState() {
		return goerr.Wrap(model.NewInvalidTaskStateError(task, types.EndTaskStates()...), "cannot delete open task",
			goerr.V(model.TaskIDKey, id))
	}

	if err := uc.repo.Task().Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return taskNotFound(id)
		}
		return goerr.Wrap(err, "failed to delete task", goerr.V(model.TaskIDKey, id))
	}
	logging.From(ctx).Info("task deleted", slog.String("task_id", id), slog.String("user_id", caller.UserID))
	return nil
}
