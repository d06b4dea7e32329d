package query

import (
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

// SortKey orders results by one column
type SortKey struct {
	Column    Column
	Direction types.SortDirection
}

// GroupKind selects what grouped queries collapse on
type GroupKind int

const (
	GroupByPOR GroupKind = iota + 1
	GroupBySOR
)

// GroupKey describes grouped mode. For GroupBySOR, SorType names the
// secondary object reference type whose value forms the group.
type GroupKey struct {
	Kind    GroupKind
	SorType string
}

// GroupByPrimaryObjectReference groups tasks sharing a primary object reference
func GroupByPrimaryObjectReference() GroupKey {
	return GroupKey{Kind: GroupByPOR}
}

// GroupBySecondaryObjectReference groups tasks by the value of their
// secondary object reference of the given type
func GroupBySecondaryObjectReference(sorType string) GroupKey {
	return GroupKey{Kind: GroupBySOR, SorType: sorType}
}

// Query is a frozen set of predicates, sort keys and an optional group key.
// It is safe to share between goroutines.
type Query struct {
	predicates  []Predicate
	sorts       []SortKey
	group       *GroupKey
	permissions []types.Permission
}

func (q *Query) Predicates() []Predicate {
	out := make([]Predicate, len(q.predicates))
	for i, p := range q.predicates {
		out[i] = p.clone()
	}
	return out
}

func (q *Query) Sorts() []SortKey {
	return slices.Clone(q.sorts)
}

// Group returns the group key, or nil for a flat query
func (q *Query) Group() *GroupKey {
	if q.group == nil {
		return nil
	}
	g := *q.group
	return &g
}

// RequiredPermissions returns READ followed by any explicitly requested permission
func (q *Query) RequiredPermissions() []types.Permission {
	out := []types.Permission{types.PermissionRead}
	for _, p := range q.permissions {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// Joins reports the related data needed to evaluate the query
func (q *Query) Joins() []Join {
	return collectJoins(q.predicates, q.sorts, q.group)
}

// Request combines the query with extra predicates (typically the
// authorization predicate) and a result window into a storage request.
// A limit of zero means unlimited; negative windows are rejected.
func (q *Query) Request(extra []Predicate, offset, limit int) (*Request, error) {
	if offset < 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "offset must not be negative", goerr.V("offset", offset))
	}
	if limit < 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "limit must not be negative", goerr.V("limit", limit))
	}
	preds := q.Predicates()
	for _, p := range extra {
		preds = append(preds, p.clone())
	}
	return &Request{
		Predicates: preds,
		Sorts:      q.Sorts(),
		Group:      q.Group(),
		Offset:     offset,
		Limit:      limit,
	}, nil
}

// Request is what the executor hands to storage
type Request struct {
	Predicates []Predicate
	Sorts      []SortKey
	Group      *GroupKey
	Offset     int
	Limit      int
}

func (r *Request) Joins() []Join {
	return collectJoins(r.Predicates, r.Sorts, r.Group)
}

func collectJoins(preds []Predicate, sorts []SortKey, group *GroupKey) []Join {
	var joins []Join
	add := func(c Column) {
		if j := c.Join(); j != JoinNone && !slices.Contains(joins, j) {
			joins = append(joins, j)
		}
	}
	for _, p := range preds {
		for _, c := range p.Columns {
			add(c)
		}
	}
	for _, s := range sorts {
		add(s.Column)
	}
	if group != nil && group.Kind == GroupBySOR {
		add(ColumnSorValue)
	}
	return joins
}
