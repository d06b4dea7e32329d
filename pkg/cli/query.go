package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
	"github.com/urfave/cli/v3"
)

// queryFlags holds the filter flags of the query command
type queryFlags struct {
	workbaskets []string
	states      []string
	owners      []string
	nameLike    []string
	search      string
	customs     []string
	attributes  []string
	porValues   []string
	permissions []string
	groupByPOR  bool
	groupBySOR  string
	sorts       []string
	page        int
	pageSize    int
	count       bool
	values      string
	valuesDesc  bool
}

func (q *queryFlags) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "workbasket", Aliases: []string{"w"}, Usage: "Workbasket key", Destination: &q.workbaskets},
		&cli.StringSliceFlag{Name: "state", Usage: "Task state", Destination: &q.states},
		&cli.StringSliceFlag{Name: "owner", Usage: "Owner user id", Destination: &q.owners},
		&cli.StringSliceFlag{Name: "name-like", Usage: "LIKE pattern on the task name", Destination: &q.nameLike},
		&cli.StringFlag{Name: "search", Usage: "LIKE pattern on name, description and note", Destination: &q.search},
		&cli.StringSliceFlag{Name: "custom", Usage: "Custom slot filter SLOT=VALUE, SLOT= (empty) or SLOT (unset)", Destination: &q.customs},
		&cli.StringSliceFlag{Name: "custom-attribute", Usage: "Custom attribute filter KEY=PATTERN", Destination: &q.attributes},
		&cli.StringSliceFlag{Name: "por-value", Usage: "Primary object reference value", Destination: &q.porValues},
		&cli.StringSliceFlag{Name: "permission", Usage: "Additional permission required on the workbasket", Destination: &q.permissions},
		&cli.BoolFlag{Name: "group-by-por", Usage: "Group tasks by primary object reference", Destination: &q.groupByPOR},
		&cli.StringFlag{Name: "group-by-sor", Usage: "Group tasks by secondary object references of this type", Destination: &q.groupBySOR},
		&cli.StringSliceFlag{Name: "sort", Usage: "Sort key COLUMN[:ASC|DESC]", Destination: &q.sorts},
		&cli.IntFlag{Name: "page", Usage: "Page number, starting at 1", Value: 1, Destination: &q.page},
		&cli.IntFlag{Name: "page-size", Usage: "Page size; all rows when 0", Destination: &q.pageSize},
		&cli.BoolFlag{Name: "count", Usage: "Print the number of matching rows only", Destination: &q.count},
		&cli.StringFlag{Name: "values", Usage: "Print the distinct values of this column instead of tasks", Destination: &q.values},
		&cli.BoolFlag{Name: "values-desc", Usage: "Sort distinct values descending", Destination: &q.valuesDesc},
	}
}

// build translates the flags into a query
func (q *queryFlags) build() (*query.Query, error) {
	var filters []query.Filter
	if len(q.workbaskets) > 0 {
		filters = append(filters, query.WorkbasketKeyIn(q.workbaskets...))
	}
	if len(q.states) > 0 {
		states, err := parseStates(q.states)
		if err != nil {
			return nil, err
		}
		filters = append(filters, query.StateIn(states...))
	}
	if len(q.owners) > 0 {
		filters = append(filters, query.OwnerIn(q.owners...))
	}
	if len(q.nameLike) > 0 {
		filters = append(filters, query.NameLike(q.nameLike...))
	}
	if q.search != "" {
		filters = append(filters, query.WildcardSearch(q.search, query.ColumnName, query.ColumnDescription, query.ColumnNote))
	}
	for _, c := range q.customs {
		f, err := parseCustom(c)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	for _, a := range q.attributes {
		f, err := parseCustomAttribute(a)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if len(q.porValues) > 0 {
		filters = append(filters, query.PorValueIn(q.porValues...))
	}
	if len(q.permissions) > 0 {
		perms, err := parsePermissions(q.permissions)
		if err != nil {
			return nil, err
		}
		filters = append(filters, query.RequirePermission(perms...))
	}
	switch {
	case q.groupByPOR && q.groupBySOR != "":
		return nil, goerr.New("--group-by-por and --group-by-sor are exclusive")
	case q.groupByPOR:
		filters = append(filters, query.GroupBy(query.GroupByPrimaryObjectReference()))
	case q.groupBySOR != "":
		filters = append(filters, query.GroupBy(query.GroupBySecondaryObjectReference(q.groupBySOR)))
	}
	for _, s := range q.sorts {
		f, err := parseSort(s)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	return query.New(filters...)
}

func cmdQuery() *cli.Command {
	var engine engineConfig
	var qf queryFlags

	return &cli.Command{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "List tasks visible to the user",
		Flags:   append(engine.Flags(), qf.Flags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			q, err := qf.build()
			if err != nil {
				return goerr.Wrap(err, "invalid query")
			}

			uc, ctx, closer, err := engine.open(ctx)
			if err != nil {
				return err
			}
			defer closer()
			w := c.Root().Writer

			switch {
			case qf.count:
				n, err := uc.Query.Count(ctx, q)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, n)
				return err

			case qf.values != "":
				col, err := parseColumn(qf.values)
				if err != nil {
					return err
				}
				dir := types.SortAscending
				if qf.valuesDesc {
					dir = types.SortDescending
				}
				values, err := uc.Query.ListValues(ctx, q, col, dir)
				if err != nil {
					return err
				}
				for _, v := range values {
					if _, err := fmt.Fprintln(w, v); err != nil {
						return err
					}
				}
				return nil
			}

			list := uc.Query.List
			if qf.pageSize > 0 {
				list = func(ctx context.Context, q *query.Query) ([]*model.TaskSummary, error) {
					return uc.Query.ListPage(ctx, q, qf.page, qf.pageSize)
				}
			}
			tasks, err := list(ctx, q)
			if err != nil {
				return err
			}
			return printTasks(w, tasks, q.Group() != nil)
		},
	}
}
