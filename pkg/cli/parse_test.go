package cli

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
)

func TestParseSort(t *testing.T) {
	_, err := parseSort("name:desc")
	gt.NoError(t, err)
	_, err = parseSort("CUSTOM_3")
	gt.NoError(t, err)
	_, err = parseSort("NAME:SIDEWAYS")
	gt.Error(t, err).Is(model.ErrInvalidArgument)
	_, err = parseSort("SHOE_SIZE")
	gt.Error(t, err).Is(model.ErrInvalidArgument)
}

func TestQueryFlags_Build(t *testing.T) {
	t.Run("filters map to predicates", func(t *testing.T) {
		qf := queryFlags{
			workbaskets: []string{"GPK"},
			states:      []string{"ready", "CLAIMED"},
			customs:     []string{"1=alpha", "2=", "3"},
			attributes:  []string{"region=em%"},
			sorts:       []string{"PRIORITY:DESC"},
			groupByPOR:  true,
		}
		q, err := qf.build()
		gt.NoError(t, err).Required()
		gt.A(t, q.Predicates()).Length(6)
		gt.A(t, q.Sorts()).Length(1)
		gt.V(t, q.Group().Kind).Equal(query.GroupByPOR)
	})

	t.Run("permission flags", func(t *testing.T) {
		qf := queryFlags{permissions: []string{"transfer"}}
		q, err := qf.build()
		gt.NoError(t, err).Required()
		gt.A(t, q.RequiredPermissions()).Has(types.PermissionTransfer)
	})

	t.Run("exclusive grouping", func(t *testing.T) {
		qf := queryFlags{groupByPOR: true, groupBySOR: "case"}
		_, err := qf.build()
		gt.Error(t, err)
	})

	t.Run("bad custom slot", func(t *testing.T) {
		qf := queryFlags{customs: []string{"x=1"}}
		_, err := qf.build()
		gt.Error(t, err).Is(model.ErrInvalidArgument)
	})

	t.Run("bad attribute filter", func(t *testing.T) {
		qf := queryFlags{attributes: []string{"region"}}
		_, err := qf.build()
		gt.Error(t, err).Is(model.ErrInvalidArgument)
	})
}

func disableColor(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })
}

func TestPrintTasks(t *testing.T) {
	disableColor(t)
	var buf bytes.Buffer
	tasks := []*model.TaskSummary{
		{Task: model.Task{ID: "TKI:1", Name: "first", State: types.TaskStateReady, Owner: "u1", OwnerLongName: "Doe, Jane"}, GroupByCount: 3},
		{Task: model.Task{ID: "TKI:2", Name: "second", State: types.TaskStateClaimed}},
	}
	gt.NoError(t, printTasks(&buf, tasks, true)).Required()

	out := buf.String()
	gt.S(t, out).Contains("TKI:1")
	gt.S(t, out).Contains("Doe, Jane (u1)")
	gt.S(t, out).Contains("GROUP")
	gt.S(t, out).Contains("CLAIMED")
}

func TestPrintBulk(t *testing.T) {
	disableColor(t)
	var buf bytes.Buffer
	result := model.NewBulkResult()
	result.Add("TKI:2", model.ErrNotFound)
	gt.NoError(t, printBulk(&buf, []string{"TKI:1", "TKI:2", "TKI:1"}, result)).Required()
	gt.S(t, buf.String()).Equal("OK TKI:1\nFAIL TKI:2 not found\n")
}
