package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

func strPtr(s string) *string { return &s }

func TestTask_EffectivePriority(t *testing.T) {
	task := &model.Task{
		Classification: model.ClassificationSummary{Priority: 7},
		ManualPriority: model.NoManualPriority,
	}
	gt.V(t, task.EffectivePriority()).Equal(7)

	task.ManualPriority = 0
	gt.V(t, task.EffectivePriority()).Equal(0)

	task.ManualPriority = 42
	gt.V(t, task.EffectivePriority()).Equal(42)
}

func TestTask_Custom(t *testing.T) {
	task := &model.Task{}

	_, ok := task.Custom(1)
	gt.B(t, ok).False()

	task.SetCustom(1, strPtr(""))
	v, ok := task.Custom(1)
	gt.B(t, ok).True()
	gt.V(t, v).Equal("")

	task.SetCustom(16, strPtr("last"))
	v, ok = task.Custom(16)
	gt.B(t, ok).True()
	gt.V(t, v).Equal("last")

	task.SetCustom(17, strPtr("ignored"))
	_, ok = task.Custom(17)
	gt.B(t, ok).False()

	task.SetCustom(1, nil)
	_, ok = task.Custom(1)
	gt.B(t, ok).False()
}

func TestTask_Clone(t *testing.T) {
	now := time.Now()
	orig := &model.Task{
		ID:                        "TKI:1",
		Claimed:                   &now,
		CustomAttributes:          map[string]string{"k": "v"},
		SecondaryObjectReferences: []model.ObjectReference{{Type: "T", Value: "1"}},
		Attachments:               []model.Attachment{{ID: "A1", Channel: "mail"}},
	}
	orig.SetCustom(3, strPtr("c3"))

	c := orig.Clone()
	c.CustomAttributes["k"] = "changed"
	c.SecondaryObjectReferences[0].Value = "2"
	c.Attachments[0].Channel = "fax"
	*c.Customs[2] = "changed"
	*c.Claimed = now.Add(time.Hour)

	gt.V(t, orig.CustomAttributes["k"]).Equal("v")
	gt.V(t, orig.SecondaryObjectReferences[0].Value).Equal("1")
	gt.V(t, orig.Attachments[0].Channel).Equal("mail")
	gt.V(t, *orig.Customs[2]).Equal("c3")
	gt.B(t, orig.Claimed.Equal(now)).True()
}

func TestObjectReference_Equal(t *testing.T) {
	a := model.ObjectReference{Company: "C", System: "S", SystemInstance: "I", Type: "T", Value: "V"}
	b := a
	gt.B(t, a.Equal(b)).True()

	b.Value = "W"
	gt.B(t, a.Equal(b)).False()
	gt.B(t, model.ObjectReference{}.IsZero()).True()
}

func TestInvalidTaskStateError(t *testing.T) {
	task := &model.Task{ID: "TKI:1", State: types.TaskStateCompleted}
	err := model.NewInvalidTaskStateError(task, types.TaskStateReady)

	gt.B(t, errors.Is(err, model.ErrInvalidTaskState)).True()

	var stateErr *model.InvalidTaskStateError
	gt.B(t, errors.As(err, &stateErr)).True()
	gt.V(t, stateErr.Actual).Equal(types.TaskStateCompleted)
	gt.V(t, stateErr.Required).Equal([]types.TaskState{types.TaskStateReady})
	gt.S(t, err.Error()).Contains("COMPLETED")
}

func TestWrapStorage(t *testing.T) {
	cause := errors.New("connection reset")
	err := model.WrapStorage(cause, "failed to fetch")

	gt.B(t, errors.Is(err, model.ErrStorage)).True()
	gt.B(t, errors.Is(err, cause)).True()
	gt.B(t, errors.Is(err, model.ErrNotFound)).False()
}

func TestBulkResult(t *testing.T) {
	r := model.NewBulkResult()
	gt.B(t, r.ContainsErrors()).False()

	r.Add("b", model.ErrNotFound)
	r.Add("a", model.ErrInvalidArgument)
	r.Add("c", nil)

	gt.B(t, r.ContainsErrors()).True()
	gt.V(t, r.FailedIDs()).Equal([]string{"a", "b"})
	gt.Value(t, r.Err("c")).Nil()
	gt.Error(t, r.Err("b")).Is(model.ErrNotFound)

	other := model.NewBulkResult()
	other.Add("d", model.ErrConcurrency)
	r.Merge(other)
	gt.A(t, r.FailedIDs()).Length(3)
}

func TestUser_DisplayName(t *testing.T) {
	gt.V(t, (&model.User{LongName: "Doe, Jane - (jd)"}).DisplayName()).Equal("Doe, Jane - (jd)")
	gt.V(t, (&model.User{FirstName: "Jane", LastName: "Doe"}).DisplayName()).Equal("Doe, Jane")
	gt.V(t, (&model.User{FirstName: "Jane"}).DisplayName()).Equal("Jane")
}
