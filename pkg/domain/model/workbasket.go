package model

import (
	"time"

	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

// Workbasket is the access-controlled container tasks are routed into.
// (Key, Domain) is unique.
type Workbasket struct {
	ID          string
	Key         string
	Domain      string
	Name        string
	Description string
	Owner       string
	Created     time.Time
	Modified    time.Time
}

// Summary returns the denormalized reference stored on tasks
func (w *Workbasket) Summary() WorkbasketSummary {
	return WorkbasketSummary{ID: w.ID, Key: w.Key, Domain: w.Domain}
}

// WorkbasketAccessItem grants permissions on one workbasket to one access id.
// (WorkbasketID, AccessID) is unique.
type WorkbasketAccessItem struct {
	WorkbasketID string
	AccessID     string
	AccessName   string
	Permissions  types.PermissionSet
}

// Clone returns a deep copy of the access item
func (a *WorkbasketAccessItem) Clone() *WorkbasketAccessItem {
	c := *a
	c.Permissions = types.NewPermissionSet(a.Permissions.Slice()...)
	return &c
}
