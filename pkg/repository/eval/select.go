package eval

import (
	"context"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
)

type group struct {
	rep   *Row
	count int64
}

func filter(ctx context.Context, rows []*Row, preds []query.Predicate, resolve PermissionResolver) ([]*Row, error) {
	match, err := Compile(ctx, preds, resolve)
	if err != nil {
		return nil, err
	}
	var out []*Row
	for _, r := range rows {
		if match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// groupKey returns the group a row belongs to. ok is false when the row
// has no value for the key.
func groupKey(r *Row, key *query.GroupKey) (any, bool) {
	switch key.Kind {
	case query.GroupByPOR:
		return r.Task.PrimaryObjectReference, true
	case query.GroupBySOR:
		var lowest *string
		for _, ref := range r.Task.SecondaryObjectReferences {
			if ref.Type == key.SorType && (lowest == nil || ref.Value < *lowest) {
				v := ref.Value
				lowest = &v
			}
		}
		if lowest == nil {
			return nil, false
		}
		return *lowest, true
	}
	return nil, false
}

func groupRows(rows []*Row, key *query.GroupKey) []group {
	index := map[any]int{}
	var groups []group
	for _, r := range rows {
		k, ok := groupKey(r, key)
		if !ok {
			continue
		}
		i, found := index[k]
		if !found {
			index[k] = len(groups)
			groups = append(groups, group{rep: r, count: 1})
			continue
		}
		groups[i].count++
		// the member with the lowest task id represents the group
		if r.Task.ID < groups[i].rep.Task.ID {
			groups[i].rep = r
		}
	}
	return groups
}

func sortRows[T any](items []T, row func(T) *Row, sorts []query.SortKey) {
	slices.SortStableFunc(items, func(a, b T) int {
		ra, rb := row(a), row(b)
		for _, s := range sorts {
			c := compareValues(sortValue(ra, s.Column), sortValue(rb, s.Column))
			if s.Direction == types.SortDescending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return strings.Compare(ra.Task.ID, rb.Task.ID)
	})
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func summary(r *Row, count int64) *model.TaskSummary {
	t := r.Task.Clone()
	t.OwnerLongName = r.OwnerLongName
	return &model.TaskSummary{Task: *t, GroupByCount: count}
}

// Select filters, groups, sorts and pages rows
func Select(ctx context.Context, rows []*Row, req *query.Request, resolve PermissionResolver) ([]*model.TaskSummary, error) {
	matched, err := filter(ctx, rows, req.Predicates, resolve)
	if err != nil {
		return nil, err
	}

	if req.Group != nil {
		groups := groupRows(matched, req.Group)
		sortRows(groups, func(g group) *Row { return g.rep }, req.Sorts)
		groups = window(groups, req.Offset, req.Limit)
		out := make([]*model.TaskSummary, 0, len(groups))
		for _, g := range groups {
			out = append(out, summary(g.rep, g.count))
		}
		return out, nil
	}

	sortRows(matched, func(r *Row) *Row { return r }, req.Sorts)
	matched = window(matched, req.Offset, req.Limit)
	out := make([]*model.TaskSummary, 0, len(matched))
	for _, r := range matched {
		out = append(out, summary(r, 0))
	}
	return out, nil
}

// Count returns the number of matching rows, or of groups in grouped mode
func Count(ctx context.Context, rows []*Row, req *query.Request, resolve PermissionResolver) (int64, error) {
	matched, err := filter(ctx, rows, req.Predicates, resolve)
	if err != nil {
		return 0, err
	}
	if req.Group != nil {
		return int64(len(groupRows(matched, req.Group))), nil
	}
	return int64(len(matched)), nil
}

// Values returns the distinct non NULL values of a text column among the
// matching rows
func Values(ctx context.Context, rows []*Row, req *query.Request, col query.Column, dir types.SortDirection, resolve PermissionResolver) ([]string, error) {
	if col.Kind() != query.KindString {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "values are available for text columns only", goerr.V(model.ColumnKey, col))
	}
	matched, err := filter(ctx, rows, req.Predicates, resolve)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var out []string
	for _, r := range matched {
		for _, v := range stringValues(r, col) {
			if v == nil {
				continue
			}
			if _, ok := seen[*v]; !ok {
				seen[*v] = struct{}{}
				out = append(out, *v)
			}
		}
	}

	slices.Sort(out)
	if dir.Normalize() == types.SortDescending {
		slices.Reverse(out)
	}
	return out, nil
}
