package model

import (
	"time"

	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

// CustomSlotCount is the number of fixed custom string slots on a task
const CustomSlotCount = 16

// ObjectReference points at the business object a task is about.
// Two references are equal when all five parts are equal.
type ObjectReference struct {
	Company        string
	System         string
	SystemInstance string
	Type           string
	Value          string
}

// Equal reports structural equality
func (r ObjectReference) Equal(other ObjectReference) bool {
	return r == other
}

// IsZero reports whether no part of the reference is set
func (r ObjectReference) IsZero() bool {
	return r == ObjectReference{}
}

// ClassificationSummary is the snapshot of a classification taken when it is assigned
type ClassificationSummary struct {
	ID       string
	Key      string
	Category string
	Priority int
}

// WorkbasketSummary is the snapshot of the workbasket a task lives in
type WorkbasketSummary struct {
	ID     string
	Key    string
	Domain string
}

// Attachment is a document attached to a task
type Attachment struct {
	ID              string
	Classification  ClassificationSummary
	ObjectReference ObjectReference
	Channel         string
	Received        *time.Time
}

// Task is a unit of human work routed into a workbasket
type Task struct {
	ID string

	Created   time.Time
	Modified  time.Time
	Claimed   *time.Time
	Completed *time.Time
	Planned   *time.Time
	Due       *time.Time
	Received  *time.Time

	Name              string
	Description       string
	Note              string
	Creator           string
	BusinessProcessID string

	Classification ClassificationSummary
	Workbasket     WorkbasketSummary

	Owner         string // empty means unclaimed
	OwnerLongName string // resolved on read, never persisted
	State         types.TaskState

	Priority       int
	ManualPriority int // -1 means unset

	PrimaryObjectReference    ObjectReference
	SecondaryObjectReferences []ObjectReference

	// Customs holds the sixteen named slots. A nil entry is NULL, which is
	// distinct from the empty string.
	Customs          [CustomSlotCount]*string
	CustomAttributes map[string]string
	CallbackInfo     map[string]string

	IsRead        bool
	IsTransferred bool

	Attachments []Attachment
}

// TaskSummary is a query result row. GroupByCount is set only for grouped queries.
type TaskSummary struct {
	Task
	GroupByCount int64
}

// NoManualPriority marks ManualPriority as unset
const NoManualPriority = -1

// EffectivePriority applies the manual override rule:
// a manual priority >= 0 wins over the classification priority.
func (t *Task) EffectivePriority() int {
	if t.ManualPriority >= 0 {
		return t.ManualPriority
	}
	return t.Classification.Priority
}

// Custom returns the value of slot n (1-based) and whether it is set
func (t *Task) Custom(n int) (string, bool) {
	if n < 1 || n > CustomSlotCount || t.Customs[n-1] == nil {
		return "", false
	}
	return *t.Customs[n-1], true
}

// SetCustom stores a value in slot n (1-based). Out of range slots are ignored.
func (t *Task) SetCustom(n int, value *string) {
	if n < 1 || n > CustomSlotCount {
		return
	}
	if value == nil {
		t.Customs[n-1] = nil
		return
	}
	v := *value
	t.Customs[n-1] = &v
}

// Clone returns a deep copy of the task
func (t *Task) Clone() *Task {
	c := *t
	c.Claimed = cloneTime(t.Claimed)
	c.Completed = cloneTime(t.Completed)
	c.Planned = cloneTime(t.Planned)
	c.Due = cloneTime(t.Due)
	c.Received = cloneTime(t.Received)

	for i, v := range t.Customs {
		if v != nil {
			s := *v
			c.Customs[i] = &s
		}
	}
	c.CustomAttributes = cloneStringMap(t.CustomAttributes)
	c.CallbackInfo = cloneStringMap(t.CallbackInfo)

	if t.SecondaryObjectReferences != nil {
		c.SecondaryObjectReferences = make([]ObjectReference, len(t.SecondaryObjectReferences))
		copy(c.SecondaryObjectReferences, t.SecondaryObjectReferences)
	}
	if t.Attachments != nil {
		c.Attachments = make([]Attachment, len(t.Attachments))
		for i, a := range t.Attachments {
			a.Received = cloneTime(a.Received)
			c.Attachments[i] = a
		}
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
