package query

import (
	"fmt"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

// Builder accumulates predicates, sort keys and a group key. Every method
// validates its input immediately and returns model.ErrInvalidArgument on
// bad input, leaving the builder unchanged. A Builder must not be shared
// between goroutines.
type Builder struct {
	predicates  []Predicate
	sorts       []SortKey
	group       *GroupKey
	permissions []types.Permission
}

// NewTaskQuery returns an empty builder for task queries
func NewTaskQuery() *Builder {
	return &Builder{}
}

// Filter is a typed filter applied to a Builder
type Filter func(b *Builder) error

// New builds a query from filters in one step
func New(filters ...Filter) (*Query, error) {
	b := NewTaskQuery()
	if err := b.Apply(filters...); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// Apply applies filters in order and stops at the first failure
func (b *Builder) Apply(filters ...Filter) error {
	for _, f := range filters {
		if err := f(b); err != nil {
			return err
		}
	}
	return nil
}

// Where adds a predicate on a column. Operands may be string, *string, nil,
// types.TaskState, int, bool, model.ObjectReference, TimeInterval or
// IntInterval, according to the column kind.
func (b *Builder) Where(col Column, op Op, operands ...any) error {
	if op == OpPermitted {
		return goerr.Wrap(model.ErrInvalidArgument, "permission predicates are added by the executor")
	}
	p := Predicate{Columns: []Column{col}, Op: op}
	for i, v := range operands {
		if err := p.addOperand(v); err != nil {
			return goerr.Wrap(err, "invalid operand", goerr.V(model.ColumnKey, col), goerr.V("index", i))
		}
	}
	return b.add(p)
}

// WhereCustom adds a predicate on a custom field. Map keys support LIKE and
// NOT LIKE only.
func (b *Builder) WhereCustom(field CustomField, op Op, values ...*string) error {
	col, key, err := ResolveCustomField(field)
	if err != nil {
		return err
	}
	if key != "" && op != OpLike && op != OpNotLike {
		return goerr.Wrap(model.ErrInvalidArgument, "custom attribute map supports LIKE only",
			goerr.V("field", field.String()), goerr.V("op", op))
	}
	return b.add(Predicate{Columns: []Column{col}, MapKey: key, Op: op, Strings: copyStrings(values)})
}

// WildcardSearch matches pattern with LIKE against any of the columns
func (b *Builder) WildcardSearch(pattern string, columns ...Column) error {
	if len(columns) == 0 {
		return goerr.Wrap(model.ErrInvalidArgument, "wildcard search needs at least one column")
	}
	for _, c := range columns {
		if c.Kind() != KindString || c.MultiValued() {
			return goerr.Wrap(model.ErrInvalidArgument, "wildcard search supports single valued text columns only",
				goerr.V(model.ColumnKey, c))
		}
	}
	return b.add(Predicate{Columns: slices.Clone(columns), Op: OpLike, Strings: []*string{&pattern}})
}

// OrderBy appends a sort key. An empty direction sorts ascending.
func (b *Builder) OrderBy(col Column, dir types.SortDirection) error {
	dir = dir.Normalize()
	if !dir.IsValid() {
		return goerr.Wrap(model.ErrInvalidArgument, "invalid sort direction", goerr.V("direction", dir))
	}
	switch col.Kind() {
	case KindString, KindInt, KindTime, KindBool:
	default:
		return goerr.Wrap(model.ErrInvalidArgument, "column is not sortable", goerr.V(model.ColumnKey, col))
	}
	b.sorts = append(b.sorts, SortKey{Column: col, Direction: dir})
	return nil
}

// GroupBy switches the query into grouped mode
func (b *Builder) GroupBy(key GroupKey) error {
	if b.group != nil {
		return goerr.Wrap(model.ErrInvalidArgument, "group by is already set")
	}
	switch key.Kind {
	case GroupByPOR:
		if key.SorType != "" {
			return goerr.Wrap(model.ErrInvalidArgument, "primary object reference grouping takes no type")
		}
	case GroupBySOR:
		if key.SorType == "" {
			return goerr.Wrap(model.ErrInvalidArgument, "secondary object reference type is not given")
		}
		// tasks without a reference of that type are not part of any group
		sorType := key.SorType
		if err := b.add(Predicate{Columns: []Column{ColumnSorType}, Op: OpIn, Strings: []*string{&sorType}}); err != nil {
			return err
		}
	default:
		return goerr.Wrap(model.ErrInvalidArgument, "unknown group kind", goerr.V("kind", key.Kind))
	}
	b.group = &key
	return nil
}

// RequirePermission requires permissions on the workbasket of every result
// in addition to READ
func (b *Builder) RequirePermission(perms ...types.Permission) error {
	for _, p := range perms {
		if !p.IsValid() {
			return goerr.Wrap(model.ErrInvalidArgument, "invalid permission", goerr.V(model.PermissionKey, p))
		}
	}
	for _, p := range perms {
		if !slices.Contains(b.permissions, p) {
			b.permissions = append(b.permissions, p)
		}
	}
	return nil
}

// Build freezes the current state. The builder stays usable and later
// changes do not affect returned queries.
func (b *Builder) Build() *Query {
	q := &Query{
		predicates:  make([]Predicate, len(b.predicates)),
		sorts:       slices.Clone(b.sorts),
		permissions: slices.Clone(b.permissions),
	}
	for i, p := range b.predicates {
		q.predicates[i] = p.clone()
	}
	if b.group != nil {
		g := *b.group
		q.group = &g
	}
	return q
}

func (b *Builder) add(p Predicate) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.predicates = append(b.predicates, p)
	return nil
}

func (p *Predicate) addOperand(v any) error {
	switch x := v.(type) {
	case nil:
		p.Strings = append(p.Strings, nil)
	case string:
		p.Strings = append(p.Strings, &x)
	case *string:
		p.Strings = append(p.Strings, copyStrings([]*string{x})...)
	case types.TaskState:
		s := x.String()
		p.Strings = append(p.Strings, &s)
	case fmt.Stringer:
		s := x.String()
		p.Strings = append(p.Strings, &s)
	case int:
		p.Ints = append(p.Ints, x)
	case bool:
		p.Bools = append(p.Bools, x)
	case model.ObjectReference:
		p.References = append(p.References, x)
	case TimeInterval:
		p.Times = append(p.Times, x)
	case IntInterval:
		p.IntRanges = append(p.IntRanges, x)
	default:
		return goerr.Wrap(model.ErrInvalidArgument, "unsupported operand type", goerr.V("type", fmt.Sprintf("%T", v)))
	}
	return nil
}

func copyStrings(values []*string) []*string {
	out := make([]*string, len(values))
	for i, v := range values {
		if v != nil {
			s := *v
			out[i] = &s
		}
	}
	return out
}

// Str returns a pointer to s, for custom field operands
func Str(s string) *string {
	return &s
}

func invalidState(s types.TaskState) error {
	return goerr.Wrap(model.ErrInvalidArgument, "invalid task state", goerr.V("state", s))
}
