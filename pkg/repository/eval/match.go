package eval

import (
	"context"
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/query"
	"github.com/secmon-lab/taskbasket/pkg/repository/codec"
)

// Matcher reports whether a row satisfies every compiled predicate
type Matcher func(r *Row) bool

// Compile turns predicates into a Matcher. Permission predicates are
// resolved once through resolve.
func Compile(ctx context.Context, preds []query.Predicate, resolve PermissionResolver) (Matcher, error) {
	matchers := make([]Matcher, 0, len(preds))
	for _, p := range preds {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		m, err := compileOne(ctx, p, resolve)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}

	return func(r *Row) bool {
		for _, m := range matchers {
			if !m(r) {
				return false
			}
		}
		return true
	}, nil
}

func compileOne(ctx context.Context, p query.Predicate, resolve PermissionResolver) (Matcher, error) {
	if p.Op == query.OpPermitted {
		if resolve == nil {
			return nil, goerr.New("permission resolver is not configured")
		}
		permitted, err := resolve(ctx, p.AccessIDs, p.Permissions)
		if err != nil {
			return nil, err
		}
		return func(r *Row) bool {
			_, ok := permitted[r.Task.Workbasket.ID]
			return ok
		}, nil
	}

	switch p.Column().Kind() {
	case query.KindString:
		return compileString(p), nil
	case query.KindBlob:
		return compileMapKey(p)
	case query.KindInt:
		return compileInt(p), nil
	case query.KindTime:
		return compileTime(p), nil
	case query.KindBool:
		return func(r *Row) bool {
			return slices.Contains(p.Bools, boolValue(r, p.Column()))
		}, nil
	case query.KindReference:
		return compileReference(p), nil
	}
	return nil, goerr.Wrap(model.ErrInvalidArgument, "unsupported column", goerr.V(model.ColumnKey, p.Column()))
}

// matchString applies the operator to one value with SQL NULL semantics:
// NULL never satisfies NOT IN, LIKE or NOT LIKE.
func matchString(v *string, op query.Op, operands []*string) bool {
	switch op {
	case query.OpIn:
		for _, o := range operands {
			if (o == nil && v == nil) || (o != nil && v != nil && *o == *v) {
				return true
			}
		}
		return false
	case query.OpNotIn:
		if v == nil {
			return false
		}
		for _, o := range operands {
			if o != nil && *o == *v {
				return false
			}
		}
		return true
	case query.OpLike:
		if v == nil {
			return false
		}
		for _, o := range operands {
			if query.MatchLike(*v, *o) {
				return true
			}
		}
		return false
	case query.OpNotLike:
		if v == nil {
			return false
		}
		for _, o := range operands {
			if query.MatchLike(*v, *o) {
				return false
			}
		}
		return true
	}
	return false
}

func compileString(p query.Predicate) Matcher {
	return func(r *Row) bool {
		for _, col := range p.Columns {
			// a multi valued column matches when any of its values does
			for _, v := range stringValues(r, col) {
				if matchString(v, p.Op, p.Strings) {
					return true
				}
			}
		}
		return false
	}
}

func compileMapKey(p query.Predicate) (Matcher, error) {
	patterns := make([]*string, 0, len(p.Strings))
	for _, s := range p.Strings {
		pattern, err := codec.KeyPattern(p.MapKey, *s)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, &pattern)
	}

	return func(r *Row) bool {
		blob, err := codec.Encode(r.Task.CustomAttributes)
		if err != nil {
			return false
		}
		return matchString(nullable(blob), p.Op, patterns)
	}, nil
}

func compileInt(p query.Predicate) Matcher {
	return func(r *Row) bool {
		v := intValue(r, p.Column())
		switch p.Op {
		case query.OpIn:
			return slices.Contains(p.Ints, v)
		case query.OpNotIn:
			return !slices.Contains(p.Ints, v)
		case query.OpWithin, query.OpNotWithin:
			within := false
			for _, x := range p.IntRanges {
				if x.Contains(v) {
					within = true
					break
				}
			}
			return within == (p.Op == query.OpWithin)
		}
		return false
	}
}

func compileTime(p query.Predicate) Matcher {
	return func(r *Row) bool {
		v := timeValue(r, p.Column())
		if v == nil {
			return false
		}
		within := slices.ContainsFunc(p.Times, func(x query.TimeInterval) bool {
			return x.Contains(*v)
		})
		return within == (p.Op == query.OpWithin)
	}
}

func compileReference(p query.Predicate) Matcher {
	return func(r *Row) bool {
		var refs []model.ObjectReference
		if p.Column() == query.ColumnPrimaryObjectReference {
			refs = []model.ObjectReference{r.Task.PrimaryObjectReference}
		} else {
			refs = r.Task.SecondaryObjectReferences
		}
		for _, ref := range refs {
			if slices.ContainsFunc(p.References, ref.Equal) {
				return true
			}
		}
		return false
	}
}

func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	// NULL sorts after every value ascending, as in PostgreSQL
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	switch x := a.(type) {
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case int:
		y := b.(int)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case time.Time:
		return x.Compare(b.(time.Time))
	case bool:
		y := b.(bool)
		switch {
		case !x && y:
			return -1
		case x && !y:
			return 1
		}
	}
	return 0
}
