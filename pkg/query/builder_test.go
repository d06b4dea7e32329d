package query_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
)

func TestBuilder_EmptyOperands(t *testing.T) {
	columns := []query.Column{
		query.ColumnName,
		query.ColumnOwner,
		query.ColumnClassificationKey,
		query.ColumnPorValue,
		query.ColumnAttachmentChannel,
	}
	for _, col := range columns {
		t.Run(col.String(), func(t *testing.T) {
			b := query.NewTaskQuery()
			gt.Error(t, b.Where(col, query.OpLike)).Is(model.ErrInvalidArgument)
			gt.Error(t, b.Where(col, query.OpNotLike)).Is(model.ErrInvalidArgument)
			gt.Error(t, b.Where(col, query.OpIn)).Is(model.ErrInvalidArgument)
			gt.Error(t, b.Where(col, query.OpNotIn)).Is(model.ErrInvalidArgument)
			gt.Array(t, b.Build().Predicates()).Length(0)
		})
	}

	t.Run("custom fields", func(t *testing.T) {
		b := query.NewTaskQuery()
		gt.Error(t, b.WhereCustom(query.Custom7, query.OpLike)).Is(model.ErrInvalidArgument)
		gt.Error(t, b.WhereCustom(query.Custom7, query.OpIn)).Is(model.ErrInvalidArgument)
		gt.Error(t, b.Apply(query.CustomLike(query.Custom16))).Is(model.ErrInvalidArgument)
		gt.Error(t, b.Apply(query.CustomAttributeLike("region"))).Is(model.ErrInvalidArgument)
	})

	t.Run("typed filters", func(t *testing.T) {
		_, err := query.New(query.NameLike())
		gt.Error(t, err).Is(model.ErrInvalidArgument)
		_, err = query.New(query.WorkbasketIDIn())
		gt.Error(t, err).Is(model.ErrInvalidArgument)
		_, err = query.New(query.StateIn())
		gt.Error(t, err).Is(model.ErrInvalidArgument)
	})
}

func TestBuilder_OperandValidation(t *testing.T) {
	testCases := []struct {
		name     string
		col      query.Column
		op       query.Op
		operands []any
		wantErr  bool
	}{
		{"string in", query.ColumnName, query.OpIn, []any{"a", nil}, false},
		{"like rejects null", query.ColumnName, query.OpLike, []any{nil}, true},
		{"like dangling escape", query.ColumnName, query.OpLike, []any{`abc\`}, true},
		{"not like dangling escape", query.ColumnName, query.OpNotLike, []any{"a%", `%\\\`}, true},
		{"like escaped backslash", query.ColumnName, query.OpLike, []any{`abc\\`}, false},
		{"string within", query.ColumnName, query.OpWithin, []any{"a"}, true},
		{"int in", query.ColumnPriority, query.OpIn, []any{1, 2}, false},
		{"int range", query.ColumnPriority, query.OpWithin, []any{query.IntBetween(1, 5)}, false},
		{"int range inverted", query.ColumnPriority, query.OpWithin, []any{query.IntBetween(5, 1)}, true},
		{"int with string", query.ColumnPriority, query.OpIn, []any{"1"}, true},
		{"time within", query.ColumnDue, query.OpWithin, []any{query.Since(time.Now())}, false},
		{"open interval", query.ColumnDue, query.OpWithin, []any{query.TimeInterval{}}, true},
		{"time in", query.ColumnDue, query.OpIn, []any{query.Since(time.Now())}, true},
		{"bool", query.ColumnIsRead, query.OpIn, []any{true}, false},
		{"bool not in", query.ColumnIsRead, query.OpNotIn, []any{true}, true},
		{"mixed", query.ColumnName, query.OpIn, []any{"a", 1}, true},
		{"unknown column", query.Column("NOPE"), query.OpIn, []any{"a"}, true},
		{"unsupported operand", query.ColumnName, query.OpIn, []any{1.5}, true},
		{"permitted", query.ColumnWorkbasketID, query.OpPermitted, []any{"u1"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := query.NewTaskQuery().Where(tc.col, tc.op, tc.operands...)
			if tc.wantErr {
				gt.Error(t, err).Is(model.ErrInvalidArgument)
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestBuilder_LikeErrorMessage(t *testing.T) {
	err := query.NewTaskQuery().Where(query.ColumnNote, query.OpLike)
	gt.Error(t, err).Is(model.ErrInvalidArgument)
	gt.String(t, err.Error()).Contains("search argument in LIKE query is not given")
}

func TestBuilder_Build(t *testing.T) {
	b := query.NewTaskQuery()
	gt.NoError(t, b.Apply(
		query.WorkbasketIDIn("WBI:1"),
		query.CustomIn(query.Custom1, query.Str(""), nil),
		query.OrderBy(query.ColumnDue, ""),
		query.OrderBy(query.ColumnClassificationName, types.SortDescending),
	)).Required()

	q1 := b.Build()
	q2 := b.Build()
	gt.Value(t, q1).Equal(q2)

	sorts := q1.Sorts()
	gt.Array(t, sorts).Length(2)
	gt.Value(t, sorts[0].Direction).Equal(types.SortAscending)
	gt.Value(t, sorts[1].Direction).Equal(types.SortDescending)
	gt.Array(t, q1.Joins()).Has(query.JoinClassification)

	// later changes do not leak into built queries
	gt.NoError(t, b.Apply(query.NameIn("x")))
	gt.Array(t, q1.Predicates()).Length(2)
	gt.Array(t, b.Build().Predicates()).Length(3)

	// returned slices are copies
	preds := q1.Predicates()
	*preds[1].Strings[0] = "changed"
	gt.Value(t, *q1.Predicates()[1].Strings[0]).Equal("")
	gt.Value(t, q1.Predicates()[1].Strings[1]).Nil()
}

func TestBuilder_OrderBy(t *testing.T) {
	b := query.NewTaskQuery()
	gt.Error(t, b.OrderBy(query.ColumnName, "SIDEWAYS")).Is(model.ErrInvalidArgument)
	gt.Error(t, b.OrderBy(query.ColumnPrimaryObjectReference, "")).Is(model.ErrInvalidArgument)
	gt.Error(t, b.Apply(query.OrderByCustom(query.MapKey("k"), ""))).Is(model.ErrInvalidArgument)
	gt.NoError(t, b.Apply(query.OrderByCustom(query.Custom3, types.SortDescending)))
	gt.NoError(t, b.OrderBy(query.ColumnAttachmentChannel, ""))

	q := b.Build()
	gt.Array(t, q.Sorts()).Length(2)
	gt.Array(t, q.Joins()).Has(query.JoinAttachment)
}

func TestBuilder_GroupBy(t *testing.T) {
	t.Run("secondary reference adds type filter", func(t *testing.T) {
		q, err := query.New(query.GroupBy(query.GroupBySecondaryObjectReference("ticket")))
		gt.NoError(t, err).Required()

		preds := q.Predicates()
		gt.Array(t, preds).Length(1)
		gt.Value(t, preds[0].Column()).Equal(query.ColumnSorType)
		gt.Value(t, *preds[0].Strings[0]).Equal("ticket")
		gt.Value(t, q.Group().Kind).Equal(query.GroupBySOR)
		gt.Array(t, q.Joins()).Has(query.JoinSecondaryObjectReference)
	})

	t.Run("only once", func(t *testing.T) {
		b := query.NewTaskQuery()
		gt.NoError(t, b.GroupBy(query.GroupByPrimaryObjectReference()))
		gt.Error(t, b.GroupBy(query.GroupByPrimaryObjectReference())).Is(model.ErrInvalidArgument)
	})

	t.Run("secondary reference needs type", func(t *testing.T) {
		_, err := query.New(query.GroupBy(query.GroupBySecondaryObjectReference("")))
		gt.Error(t, err).Is(model.ErrInvalidArgument)
	})

	t.Run("flat query has no group", func(t *testing.T) {
		q, err := query.New()
		gt.NoError(t, err).Required()
		gt.Value(t, q.Group()).Nil()
	})
}

func TestBuilder_RequirePermission(t *testing.T) {
	q, err := query.New(query.RequirePermission(types.PermissionAppend, types.PermissionRead, types.PermissionAppend))
	gt.NoError(t, err).Required()
	perms := q.RequiredPermissions()
	gt.Array(t, perms).Length(2)
	gt.Value(t, perms[0]).Equal(types.PermissionRead)
	gt.Value(t, perms[1]).Equal(types.PermissionAppend)

	_, err = query.New(query.RequirePermission("WRITE"))
	gt.Error(t, err).Is(model.ErrInvalidArgument)
}

func TestBuilder_WildcardSearch(t *testing.T) {
	b := query.NewTaskQuery()
	slot, _, err := query.ResolveCustomField(query.Custom2)
	gt.NoError(t, err).Required()

	gt.NoError(t, b.WildcardSearch("%abc%", query.ColumnName, query.ColumnNote, slot))
	gt.Error(t, b.WildcardSearch("%abc%")).Is(model.ErrInvalidArgument)
	gt.Error(t, b.WildcardSearch("%abc%", query.ColumnPriority)).Is(model.ErrInvalidArgument)
	gt.Error(t, b.WildcardSearch("%abc%", query.ColumnSorValue)).Is(model.ErrInvalidArgument)

	preds := b.Build().Predicates()
	gt.Array(t, preds).Length(1)
	gt.Array(t, preds[0].Columns).Length(3)
}

func TestRequest(t *testing.T) {
	q, err := query.New(query.StateIn(types.TaskStateReady), query.OrderBy(query.ColumnOwnerLongName, ""))
	gt.NoError(t, err).Required()

	req, err := q.Request([]query.Predicate{query.Permitted([]string{"u1"})}, 3, 0)
	gt.NoError(t, err).Required()
	gt.Array(t, req.Predicates).Length(2)
	gt.Number(t, req.Offset).Equal(3)
	gt.Number(t, req.Limit).Equal(0)
	gt.Array(t, req.Joins()).Has(query.JoinOwner)
	gt.Value(t, req.Predicates[1].Op).Equal(query.OpPermitted)
	gt.Array(t, req.Predicates[1].Permissions).Has(types.PermissionRead)
}

func TestRequest_NegativeWindow(t *testing.T) {
	q, err := query.New(query.StateIn(types.TaskStateReady))
	gt.NoError(t, err).Required()

	_, err = q.Request(nil, -1, 10)
	gt.Error(t, err).Is(model.ErrInvalidArgument)
	_, err = q.Request(nil, 0, -5)
	gt.Error(t, err).Is(model.ErrInvalidArgument)
}

func TestBuilder_LikeDanglingEscape(t *testing.T) {
	_, err := query.New(query.WildcardSearch(`50\`, query.ColumnName, query.ColumnNote))
	gt.Error(t, err).Is(model.ErrInvalidArgument)
	_, err = query.New(query.CustomLike(query.Custom3, `x\`))
	gt.Error(t, err).Is(model.ErrInvalidArgument)
	_, err = query.New(query.CustomAttributeLike("path", `C:\`))
	gt.Error(t, err).Is(model.ErrInvalidArgument)

	_, err = query.New(query.CustomAttributeLike("path", `C:\\%`))
	gt.NoError(t, err)
}
