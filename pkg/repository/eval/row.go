// Package eval evaluates query requests in process. The memory and
// Firestore backends load candidate rows and delegate filtering, sorting,
// grouping and paging here, so they agree with the SQL backend.
package eval

import (
	"context"
	"time"

	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
)

// Row is a task together with data joined from related entities
type Row struct {
	Task               *model.Task
	ClassificationName string
	OwnerLongName      string
}

// PermissionResolver returns the ids of workbaskets on which at least one
// of accessIDs holds every permission in perms
type PermissionResolver func(ctx context.Context, accessIDs []string, perms []types.Permission) (map[string]struct{}, error)

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// stringValues returns the values of a text column. Single valued columns
// yield exactly one element which is nil for NULL.
func stringValues(r *Row, col query.Column) []*string {
	t := r.Task
	if n, ok := col.CustomSlot(); ok {
		return []*string{t.Customs[n-1]}
	}

	switch col {
	case query.ColumnTaskID:
		return []*string{nullable(t.ID)}
	case query.ColumnName:
		return []*string{nullable(t.Name)}
	case query.ColumnDescription:
		return []*string{nullable(t.Description)}
	case query.ColumnNote:
		return []*string{nullable(t.Note)}
	case query.ColumnCreator:
		return []*string{nullable(t.Creator)}
	case query.ColumnBusinessProcessID:
		return []*string{nullable(t.BusinessProcessID)}
	case query.ColumnState:
		return []*string{nullable(t.State.String())}
	case query.ColumnOwner:
		return []*string{nullable(t.Owner)}
	case query.ColumnOwnerLongName:
		return []*string{nullable(r.OwnerLongName)}
	case query.ColumnClassificationID:
		return []*string{nullable(t.Classification.ID)}
	case query.ColumnClassificationKey:
		return []*string{nullable(t.Classification.Key)}
	case query.ColumnClassificationCategory:
		return []*string{nullable(t.Classification.Category)}
	case query.ColumnClassificationName:
		return []*string{nullable(r.ClassificationName)}
	case query.ColumnWorkbasketID:
		return []*string{nullable(t.Workbasket.ID)}
	case query.ColumnWorkbasketKey:
		return []*string{nullable(t.Workbasket.Key)}
	case query.ColumnDomain:
		return []*string{nullable(t.Workbasket.Domain)}
	case query.ColumnPorCompany:
		return []*string{nullable(t.PrimaryObjectReference.Company)}
	case query.ColumnPorSystem:
		return []*string{nullable(t.PrimaryObjectReference.System)}
	case query.ColumnPorSystemInstance:
		return []*string{nullable(t.PrimaryObjectReference.SystemInstance)}
	case query.ColumnPorType:
		return []*string{nullable(t.PrimaryObjectReference.Type)}
	case query.ColumnPorValue:
		return []*string{nullable(t.PrimaryObjectReference.Value)}
	case query.ColumnSorType:
		out := make([]*string, 0, len(t.SecondaryObjectReferences))
		for _, ref := range t.SecondaryObjectReferences {
			out = append(out, nullable(ref.Type))
		}
		return out
	case query.ColumnSorValue:
		out := make([]*string, 0, len(t.SecondaryObjectReferences))
		for _, ref := range t.SecondaryObjectReferences {
			out = append(out, nullable(ref.Value))
		}
		return out
	case query.ColumnAttachmentChannel:
		out := make([]*string, 0, len(t.Attachments))
		for _, a := range t.Attachments {
			out = append(out, nullable(a.Channel))
		}
		return out
	case query.ColumnAttachmentClassificationKey:
		out := make([]*string, 0, len(t.Attachments))
		for _, a := range t.Attachments {
			out = append(out, nullable(a.Classification.Key))
		}
		return out
	}
	return nil
}

func timeValue(r *Row, col query.Column) *time.Time {
	t := r.Task
	switch col {
	case query.ColumnCreated:
		return &t.Created
	case query.ColumnModified:
		return &t.Modified
	case query.ColumnClaimed:
		return t.Claimed
	case query.ColumnCompleted:
		return t.Completed
	case query.ColumnPlanned:
		return t.Planned
	case query.ColumnDue:
		return t.Due
	case query.ColumnReceived:
		return t.Received
	}
	return nil
}

func intValue(r *Row, col query.Column) int {
	if col == query.ColumnPriority {
		return r.Task.Priority
	}
	return 0
}

func boolValue(r *Row, col query.Column) bool {
	switch col {
	case query.ColumnIsRead:
		return r.Task.IsRead
	case query.ColumnIsTransferred:
		return r.Task.IsTransferred
	}
	return false
}

// sortValue is the value a row sorts by; multi valued columns use their
// smallest value. nil is NULL.
func sortValue(r *Row, col query.Column) any {
	switch col.Kind() {
	case query.KindString:
		var lowest *string
		for _, v := range stringValues(r, col) {
			if v != nil && (lowest == nil || *v < *lowest) {
				lowest = v
			}
		}
		if lowest == nil {
			return nil
		}
		return *lowest
	case query.KindInt:
		return intValue(r, col)
	case query.KindTime:
		if v := timeValue(r, col); v != nil {
			return *v
		}
		return nil
	case query.KindBool:
		return boolValue(r, col)
	}
	return nil
}
