package query

import (
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

// Op is the comparison a predicate performs
type Op int

const (
	OpIn Op = iota + 1
	OpNotIn
	OpLike
	OpNotLike
	OpWithin
	OpNotWithin
	// OpPermitted restricts rows to workbaskets where one of AccessIDs
	// holds every permission in Permissions.
	OpPermitted
)

func (o Op) String() string {
	switch o {
	case OpIn:
		return "EQ_ANY"
	case OpNotIn:
		return "NOT_EQ_ANY"
	case OpLike:
		return "LIKE_ANY"
	case OpNotLike:
		return "NOT_LIKE_ANY"
	case OpWithin:
		return "RANGE_WITHIN_ANY"
	case OpNotWithin:
		return "RANGE_NOT_WITHIN_ANY"
	case OpPermitted:
		return "PERMITTED"
	default:
		return "UNKNOWN"
	}
}

// Negated reports whether the operator excludes matches
func (o Op) Negated() bool {
	return o == OpNotIn || o == OpNotLike || o == OpNotWithin
}

// TimeInterval is a closed-open interval [Begin, End). A nil bound is open.
type TimeInterval struct {
	Begin *time.Time
	End   *time.Time
}

// Between returns the interval [begin, end)
func Between(begin, end time.Time) TimeInterval {
	return TimeInterval{Begin: &begin, End: &end}
}

// Since returns the interval [begin, inf)
func Since(begin time.Time) TimeInterval {
	return TimeInterval{Begin: &begin}
}

// Before returns the interval (-inf, end)
func Before(end time.Time) TimeInterval {
	return TimeInterval{End: &end}
}

func (x TimeInterval) Contains(t time.Time) bool {
	if x.Begin != nil && t.Before(*x.Begin) {
		return false
	}
	if x.End != nil && !t.Before(*x.End) {
		return false
	}
	return true
}

func (x TimeInterval) validate() error {
	if x.Begin == nil && x.End == nil {
		return goerr.Wrap(model.ErrInvalidArgument, "time interval has neither begin nor end")
	}
	if x.Begin != nil && x.End != nil && x.End.Before(*x.Begin) {
		return goerr.Wrap(model.ErrInvalidArgument, "time interval ends before it begins",
			goerr.V("begin", *x.Begin), goerr.V("end", *x.End))
	}
	return nil
}

// IntInterval is an inclusive integer interval [Begin, End]
type IntInterval struct {
	Begin *int
	End   *int
}

// IntBetween returns the interval [begin, end]
func IntBetween(begin, end int) IntInterval {
	return IntInterval{Begin: &begin, End: &end}
}

func (x IntInterval) Contains(v int) bool {
	if x.Begin != nil && v < *x.Begin {
		return false
	}
	if x.End != nil && v > *x.End {
		return false
	}
	return true
}

func (x IntInterval) validate() error {
	if x.Begin == nil && x.End == nil {
		return goerr.Wrap(model.ErrInvalidArgument, "integer interval has neither begin nor end")
	}
	if x.Begin != nil && x.End != nil && *x.End < *x.Begin {
		return goerr.Wrap(model.ErrInvalidArgument, "integer interval ends before it begins",
			goerr.V("begin", *x.Begin), goerr.V("end", *x.End))
	}
	return nil
}

// Predicate is a single immutable filter. Exactly one operand slice is
// populated, chosen by the kind of the column and the operator. When
// Columns holds more than one column the predicate matches if any column
// matches (wildcard search).
type Predicate struct {
	Columns []Column
	// MapKey selects a key of the custom attribute map when the column is
	// ColumnCustomAttributes.
	MapKey string
	Op     Op

	Strings    []*string
	Ints       []int
	Bools      []bool
	References []model.ObjectReference
	Times      []TimeInterval
	IntRanges  []IntInterval

	AccessIDs   []string
	Permissions []types.Permission
}

// Column returns the first column of the predicate
func (p Predicate) Column() Column {
	if len(p.Columns) == 0 {
		return ""
	}
	return p.Columns[0]
}

// Permitted builds the authorization predicate for the given access ids.
// READ is always part of the required permission set.
func Permitted(accessIDs []string, perms ...types.Permission) Predicate {
	required := []types.Permission{types.PermissionRead}
	for _, p := range perms {
		if !slices.Contains(required, p) {
			required = append(required, p)
		}
	}
	return Predicate{
		Columns:     []Column{ColumnWorkbasketID},
		Op:          OpPermitted,
		AccessIDs:   slices.Clone(accessIDs),
		Permissions: required,
	}
}

func (p Predicate) clone() Predicate {
	out := p
	out.Columns = slices.Clone(p.Columns)
	out.Strings = make([]*string, len(p.Strings))
	for i, s := range p.Strings {
		if s != nil {
			v := *s
			out.Strings[i] = &v
		}
	}
	if p.Strings == nil {
		out.Strings = nil
	}
	out.Ints = slices.Clone(p.Ints)
	out.Bools = slices.Clone(p.Bools)
	out.References = slices.Clone(p.References)
	out.Times = slices.Clone(p.Times)
	out.IntRanges = slices.Clone(p.IntRanges)
	out.AccessIDs = slices.Clone(p.AccessIDs)
	out.Permissions = slices.Clone(p.Permissions)
	return out
}

func (p Predicate) operandCount() int {
	switch {
	case p.Op == OpPermitted:
		return len(p.Permissions)
	case len(p.Strings) > 0:
		return len(p.Strings)
	case len(p.Ints) > 0:
		return len(p.Ints)
	case len(p.Bools) > 0:
		return len(p.Bools)
	case len(p.References) > 0:
		return len(p.References)
	case len(p.Times) > 0:
		return len(p.Times)
	default:
		return len(p.IntRanges)
	}
}

// Validate checks that operator, column kind and operands agree
func (p Predicate) Validate() error {
	if len(p.Columns) == 0 {
		return goerr.Wrap(model.ErrInvalidArgument, "predicate has no column")
	}
	if p.Op == OpPermitted {
		if p.Column() != ColumnWorkbasketID {
			return goerr.Wrap(model.ErrInvalidArgument, "permission predicate must target workbasket id")
		}
		for _, perm := range p.Permissions {
			if !perm.IsValid() {
				return goerr.Wrap(model.ErrInvalidArgument, "invalid permission", goerr.V(model.PermissionKey, perm))
			}
		}
		return nil
	}

	kind := p.Column().Kind()
	for _, c := range p.Columns {
		if !c.IsValid() {
			return goerr.Wrap(model.ErrInvalidArgument, "unknown column", goerr.V(model.ColumnKey, c))
		}
		if c.Kind() != kind {
			return goerr.Wrap(model.ErrInvalidArgument, "columns of a predicate must share a kind",
				goerr.V(model.ColumnKey, c))
		}
	}
	if len(p.Columns) > 1 && p.Op != OpLike && p.Op != OpNotLike {
		return goerr.Wrap(model.ErrInvalidArgument, "multiple columns are supported for LIKE only", goerr.V("op", p.Op))
	}

	if p.operandCount() == 0 {
		if p.Op == OpLike || p.Op == OpNotLike {
			return goerr.Wrap(model.ErrInvalidArgument, "search argument in LIKE query is not given",
				goerr.V(model.ColumnKey, p.Column()))
		}
		return goerr.Wrap(model.ErrInvalidArgument, "no operand given", goerr.V(model.ColumnKey, p.Column()), goerr.V("op", p.Op))
	}

	populated := 0
	for _, n := range []int{len(p.Strings), len(p.Ints), len(p.Bools), len(p.References), len(p.Times), len(p.IntRanges)} {
		if n > 0 {
			populated++
		}
	}
	if populated > 1 {
		return goerr.Wrap(model.ErrInvalidArgument, "operands of different types given", goerr.V(model.ColumnKey, p.Column()))
	}

	ok := false
	switch kind {
	case KindString:
		ok = (p.Op == OpIn || p.Op == OpNotIn || p.Op == OpLike || p.Op == OpNotLike) && len(p.Strings) > 0
	case KindBlob:
		ok = (p.Op == OpLike || p.Op == OpNotLike) && len(p.Strings) > 0 && p.MapKey != ""
	case KindInt:
		ok = ((p.Op == OpIn || p.Op == OpNotIn) && len(p.Ints) > 0) ||
			((p.Op == OpWithin || p.Op == OpNotWithin) && len(p.IntRanges) > 0)
	case KindTime:
		ok = (p.Op == OpWithin || p.Op == OpNotWithin) && len(p.Times) > 0
	case KindBool:
		ok = p.Op == OpIn && len(p.Bools) > 0
	case KindReference:
		ok = p.Op == OpIn && len(p.References) > 0
	}
	if !ok {
		return goerr.Wrap(model.ErrInvalidArgument, "operator is not applicable to column",
			goerr.V(model.ColumnKey, p.Column()), goerr.V("op", p.Op))
	}

	if p.Op == OpLike || p.Op == OpNotLike {
		for _, s := range p.Strings {
			if s == nil {
				return goerr.Wrap(model.ErrInvalidArgument, "LIKE pattern must not be null",
					goerr.V(model.ColumnKey, p.Column()))
			}
			if danglingEscape(*s) {
				return goerr.Wrap(model.ErrInvalidArgument, "LIKE pattern must not end with an escape character",
					goerr.V(model.ColumnKey, p.Column()), goerr.V("pattern", *s))
			}
		}
	}
	for _, x := range p.Times {
		if err := x.validate(); err != nil {
			return goerr.Wrap(err, "invalid time interval", goerr.V(model.ColumnKey, p.Column()))
		}
	}
	for _, x := range p.IntRanges {
		if err := x.validate(); err != nil {
			return goerr.Wrap(err, "invalid integer interval", goerr.V(model.ColumnKey, p.Column()))
		}
	}
	return nil
}
