package eval_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
	"github.com/secmon-lab/taskbasket/pkg/repository/eval"
)

func newRow(id, wb string, mod func(t *model.Task)) *eval.Row {
	t := &model.Task{
		ID:             id,
		Created:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Modified:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Workbasket:     model.WorkbasketSummary{ID: wb, Key: "KEY-" + wb, Domain: "DOMAIN_A"},
		State:          types.TaskStateReady,
		ManualPriority: model.NoManualPriority,
	}
	if mod != nil {
		mod(t)
	}
	return &eval.Row{Task: t}
}

func allowAll(_ context.Context, _ []string, _ []types.Permission) (map[string]struct{}, error) {
	return map[string]struct{}{"WB1": {}, "WB2": {}}, nil
}

func ids(rows []*model.TaskSummary) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func request(t *testing.T, q *query.Query, extra []query.Predicate, offset, limit int) *query.Request {
	t.Helper()
	req, err := q.Request(extra, offset, limit)
	gt.NoError(t, err).Required()
	return req
}

func selectIDs(t *testing.T, rows []*eval.Row, filters ...query.Filter) []string {
	t.Helper()
	q, err := query.New(filters...)
	gt.NoError(t, err).Required()
	got, err := eval.Select(context.Background(), rows, request(t, q, nil, 0, 0), allowAll)
	gt.NoError(t, err).Required()
	return ids(got)
}

func TestSelect_NullSemantics(t *testing.T) {
	rows := []*eval.Row{
		newRow("T1", "WB1", func(t *model.Task) { t.SetCustom(1, query.Str("")) }),
		newRow("T2", "WB1", func(t *model.Task) { t.SetCustom(1, query.Str("")) }),
		newRow("T3", "WB1", nil),
		newRow("T4", "WB1", func(t *model.Task) { t.SetCustom(1, query.Str("abc")) }),
	}

	gt.Value(t, selectIDs(t, rows, query.CustomIn(query.Custom1, query.Str("")))).Equal([]string{"T1", "T2"})
	gt.Value(t, selectIDs(t, rows, query.CustomIn(query.Custom1, nil))).Equal([]string{"T3"})
	gt.Value(t, selectIDs(t, rows, query.CustomIn(query.Custom1, query.Str(""), nil))).Equal([]string{"T1", "T2", "T3"})
	gt.Value(t, selectIDs(t, rows, query.CustomNotIn(query.Custom1, query.Str("")))).Equal([]string{"T4"})
	gt.Value(t, selectIDs(t, rows, query.CustomNotIn(query.Custom1, nil))).Equal([]string{"T1", "T2", "T4"})
	gt.Value(t, selectIDs(t, rows, query.CustomLike(query.Custom1, "%"))).Equal([]string{"T1", "T2", "T4"})
	gt.Value(t, selectIDs(t, rows, query.CustomNotLike(query.Custom1, "a%"))).Equal([]string{"T1", "T2"})
}

func TestSelect_Filters(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	por := model.ObjectReference{Company: "C", System: "S", SystemInstance: "I", Type: "T", Value: "V1"}
	rows := []*eval.Row{
		newRow("T1", "WB1", func(t *model.Task) {
			t.Name = "Review invoice"
			t.Owner = "alice"
			t.Priority = 3
			t.Due = &due
			t.PrimaryObjectReference = por
			t.Attachments = []model.Attachment{{Channel: "email"}, {Channel: "fax"}}
			t.CustomAttributes = map[string]string{"region": "eu-west"}
		}),
		newRow("T2", "WB2", func(t *model.Task) {
			t.Name = "Approve order"
			t.Priority = 7
			t.IsRead = true
			t.SecondaryObjectReferences = []model.ObjectReference{{Type: "ticket", Value: "42"}}
		}),
	}

	testCases := []struct {
		name   string
		filter query.Filter
		want   []string
	}{
		{"name like ignores case", query.NameLike("%INVOICE%"), []string{"T1"}},
		{"owner in", query.OwnerIn("alice"), []string{"T1"}},
		{"unclaimed", query.OwnerIn(""), []string{"T2"}},
		{"owner not in skips null", query.OwnerNotIn("bob"), []string{"T1"}},
		{"priority range", query.PriorityWithin(query.IntBetween(5, 10)), []string{"T2"}},
		{"due within", query.DueWithin(query.Between(due, due.Add(time.Hour))), []string{"T1"}},
		{"due end is open", query.DueWithin(query.Before(due)), nil},
		{"due not within skips null", query.DueNotWithin(query.Before(due)), []string{"T1"}},
		{"por", query.PrimaryObjectReferenceIn(por), []string{"T1"}},
		{"sor type", query.SecondaryObjectReferenceTypeIn("ticket"), []string{"T2"}},
		{"attachment channel", query.AttachmentChannelIn("fax"), []string{"T1"}},
		{"is read", query.IsRead(true), []string{"T2"}},
		{"map key like", query.CustomAttributeLike("region", "eu%"), []string{"T1"}},
		{"map key without match", query.CustomLike(query.MapKey("region"), "us%"), nil},
		{"workbasket", query.WorkbasketIDIn("WB2"), []string{"T2"}},
		{"wildcard", query.WildcardSearch("%order%", query.ColumnName, query.ColumnNote), []string{"T2"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := selectIDs(t, rows, tc.filter)
			gt.Array(t, got).Length(len(tc.want))
			for _, id := range tc.want {
				gt.Array(t, got).Has(id)
			}
		})
	}
}

func TestSelect_Permission(t *testing.T) {
	rows := []*eval.Row{newRow("T1", "WB1", nil), newRow("T2", "WB2", nil)}
	var gotIDs []string
	var gotPerms []types.Permission
	resolve := func(_ context.Context, accessIDs []string, perms []types.Permission) (map[string]struct{}, error) {
		gotIDs = accessIDs
		gotPerms = perms
		return map[string]struct{}{"WB2": {}}, nil
	}

	q, err := query.New()
	gt.NoError(t, err).Required()
	req := request(t, q, []query.Predicate{query.Permitted([]string{"u1", "g1"}, types.PermissionTransfer)}, 0, 0)

	got, err := eval.Select(context.Background(), rows, req, resolve)
	gt.NoError(t, err).Required()
	gt.Value(t, ids(got)).Equal([]string{"T2"})
	gt.Value(t, gotIDs).Equal([]string{"u1", "g1"})
	gt.Value(t, gotPerms).Equal([]types.Permission{types.PermissionRead, types.PermissionTransfer})

	n, err := eval.Count(context.Background(), rows, req, resolve)
	gt.NoError(t, err).Required()
	gt.Number(t, n).Equal(int64(1))

	_, err = eval.Select(context.Background(), rows, req, nil)
	gt.Error(t, err)
}

func TestSelect_Sort(t *testing.T) {
	d1 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	rows := []*eval.Row{
		newRow("T3", "WB1", func(t *model.Task) { t.Due = &d2 }),
		newRow("T1", "WB1", nil),
		newRow("T2", "WB1", func(t *model.Task) { t.Due = &d1 }),
		newRow("T4", "WB1", func(t *model.Task) { t.Due = &d1 }),
	}

	gt.Value(t, selectIDs(t, rows, query.OrderBy(query.ColumnDue, ""))).Equal([]string{"T2", "T4", "T3", "T1"})
	gt.Value(t, selectIDs(t, rows, query.OrderBy(query.ColumnDue, types.SortDescending))).Equal([]string{"T1", "T3", "T2", "T4"})
	gt.Value(t, selectIDs(t, rows)).Equal([]string{"T1", "T2", "T3", "T4"})
}

func TestSelect_Group(t *testing.T) {
	porA := model.ObjectReference{Company: "C", Value: "A"}
	porB := model.ObjectReference{Company: "C", Value: "B"}
	rows := []*eval.Row{
		newRow("T5", "WB1", func(t *model.Task) { t.PrimaryObjectReference = porA }),
		newRow("T2", "WB1", func(t *model.Task) { t.PrimaryObjectReference = porA }),
		newRow("T9", "WB1", func(t *model.Task) { t.PrimaryObjectReference = porA }),
		newRow("T3", "WB1", func(t *model.Task) { t.PrimaryObjectReference = porB }),
	}

	q, err := query.New(query.GroupBy(query.GroupByPrimaryObjectReference()))
	gt.NoError(t, err).Required()
	req := request(t, q, nil, 0, 0)

	got, err := eval.Select(context.Background(), rows, req, allowAll)
	gt.NoError(t, err).Required()
	gt.Array(t, got).Length(2)
	gt.Value(t, got[0].ID).Equal("T2")
	gt.Number(t, got[0].GroupByCount).Equal(int64(3))
	gt.Value(t, got[1].ID).Equal("T3")
	gt.Number(t, got[1].GroupByCount).Equal(int64(1))

	n, err := eval.Count(context.Background(), rows, req, allowAll)
	gt.NoError(t, err).Required()
	gt.Number(t, n).Equal(int64(2))

	paged, err := eval.Select(context.Background(), rows, request(t, q, nil, 1, 1), allowAll)
	gt.NoError(t, err).Required()
	gt.Value(t, ids(paged)).Equal([]string{"T3"})
}

func TestSelect_GroupBySecondaryReference(t *testing.T) {
	rows := []*eval.Row{
		newRow("T1", "WB1", func(t *model.Task) {
			t.SecondaryObjectReferences = []model.ObjectReference{{Type: "ticket", Value: "9"}, {Type: "ticket", Value: "1"}}
		}),
		newRow("T2", "WB1", func(t *model.Task) {
			t.SecondaryObjectReferences = []model.ObjectReference{{Type: "ticket", Value: "1"}}
		}),
		newRow("T3", "WB1", func(t *model.Task) {
			t.SecondaryObjectReferences = []model.ObjectReference{{Type: "order", Value: "1"}}
		}),
	}

	q, err := query.New(query.GroupBy(query.GroupBySecondaryObjectReference("ticket")))
	gt.NoError(t, err).Required()
	got, err := eval.Select(context.Background(), rows, request(t, q, nil, 0, 0), allowAll)
	gt.NoError(t, err).Required()
	gt.Array(t, got).Length(1)
	gt.Value(t, got[0].ID).Equal("T1")
	gt.Number(t, got[0].GroupByCount).Equal(int64(2))
}

func TestValues(t *testing.T) {
	rows := []*eval.Row{
		newRow("T1", "WB1", func(t *model.Task) { t.Owner = "bob" }),
		newRow("T2", "WB1", func(t *model.Task) { t.Owner = "alice" }),
		newRow("T3", "WB1", func(t *model.Task) { t.Owner = "bob" }),
		newRow("T4", "WB1", nil),
	}
	q, err := query.New()
	gt.NoError(t, err).Required()
	req := request(t, q, nil, 0, 0)

	got, err := eval.Values(context.Background(), rows, req, query.ColumnOwner, "", allowAll)
	gt.NoError(t, err).Required()
	gt.Value(t, got).Equal([]string{"alice", "bob"})

	got, err = eval.Values(context.Background(), rows, req, query.ColumnOwner, types.SortDescending, allowAll)
	gt.NoError(t, err).Required()
	gt.Value(t, got).Equal([]string{"bob", "alice"})

	_, err = eval.Values(context.Background(), rows, req, query.ColumnDue, "", allowAll)
	gt.Error(t, err).Is(model.ErrInvalidArgument)
}
