package postgres

import (
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
	"github.com/secmon-lab/taskbasket/pkg/repository/codec"
)

// statement is compiled SQL with positional arguments. Operand values only
// ever travel in args.
type statement struct {
	sql  string
	args []any
}

type compiler struct {
	args []any
}

func (c *compiler) arg(v any) string {
	c.args = append(c.args, v)
	return "$" + strconv.Itoa(len(c.args))
}

// childColumn is a column of a table holding several rows per task
type childColumn struct {
	table string
	alias string
	field string
}

var singleColumns = map[query.Column]string{
	query.ColumnTaskID:                 "t.id",
	query.ColumnName:                   "t.name",
	query.ColumnDescription:            "t.description",
	query.ColumnNote:                   "t.note",
	query.ColumnCreator:                "t.creator",
	query.ColumnBusinessProcessID:      "t.business_process_id",
	query.ColumnState:                  "t.state",
	query.ColumnOwner:                  "t.owner",
	query.ColumnOwnerLongName:          "u.display_name",
	query.ColumnPriority:               "t.priority",
	query.ColumnCreated:                "t.created",
	query.ColumnModified:               "t.modified",
	query.ColumnClaimed:                "t.claimed",
	query.ColumnCompleted:              "t.completed",
	query.ColumnPlanned:                "t.planned",
	query.ColumnDue:                    "t.due",
	query.ColumnReceived:               "t.received",
	query.ColumnClassificationID:       "t.classification_id",
	query.ColumnClassificationKey:      "t.classification_key",
	query.ColumnClassificationCategory: "t.classification_category",
	query.ColumnClassificationName:     "c.name",
	query.ColumnWorkbasketID:           "t.workbasket_id",
	query.ColumnWorkbasketKey:          "t.workbasket_key",
	query.ColumnDomain:                 "t.domain",
	query.ColumnPorCompany:             "t.por_company",
	query.ColumnPorSystem:              "t.por_system",
	query.ColumnPorSystemInstance:      "t.por_instance",
	query.ColumnPorType:                "t.por_type",
	query.ColumnPorValue:               "t.por_value",
	query.ColumnIsRead:                 "t.is_read",
	query.ColumnIsTransferred:          "t.is_transferred",
	query.ColumnCustomAttributes:       "t.custom_attributes",
}

var childColumns = map[query.Column]childColumn{
	query.ColumnSorType:                     {table: "object_references", alias: "r", field: "type"},
	query.ColumnSorValue:                    {table: "object_references", alias: "r", field: "value"},
	query.ColumnAttachmentChannel:           {table: "attachments", alias: "a", field: "channel"},
	query.ColumnAttachmentClassificationKey: {table: "attachments", alias: "a", field: "classification_key"},
}

var referenceFields = []string{"company", "system", "system_instance", "type", "value"}

func singleColumn(col query.Column) (string, bool) {
	if n, ok := col.CustomSlot(); ok {
		return "t.custom_" + strconv.Itoa(n), true
	}
	expr, ok := singleColumns[col]
	return expr, ok
}

func unsupportedColumn(col query.Column) error {
	return goerr.Wrap(model.ErrInvalidArgument, "column is not supported by the SQL backend", goerr.V(model.ColumnKey, col))
}

func (c *compiler) stringCond(expr string, op query.Op, operands []*string) string {
	var values []string
	hasNull := false
	for _, o := range operands {
		if o == nil {
			hasNull = true
		} else {
			values = append(values, *o)
		}
	}

	switch op {
	case query.OpIn:
		var parts []string
		if len(values) > 0 {
			parts = append(parts, expr+" = ANY("+c.arg(values)+")")
		}
		if hasNull {
			parts = append(parts, expr+" IS NULL")
		}
		return "(" + strings.Join(parts, " OR ") + ")"

	case query.OpNotIn:
		if len(values) == 0 {
			return "(" + expr + " IS NOT NULL)"
		}
		return "(" + expr + " IS NOT NULL AND NOT (" + expr + " = ANY(" + c.arg(values) + ")))"

	case query.OpLike, query.OpNotLike:
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, expr+" ILIKE "+c.arg(v))
		}
		like := "(" + strings.Join(parts, " OR ") + ")"
		if op == query.OpLike {
			return like
		}
		return "(" + expr + " IS NOT NULL AND NOT " + like + ")"
	}
	return "FALSE"
}

func (c *compiler) stringPredicate(p query.Predicate) (string, error) {
	var parts []string
	for _, col := range p.Columns {
		if expr, ok := singleColumn(col); ok {
			parts = append(parts, c.stringCond(expr, p.Op, p.Strings))
			continue
		}
		child, ok := childColumns[col]
		if !ok {
			return "", unsupportedColumn(col)
		}
		// a multi valued column matches when one of its rows does
		field := child.alias + "." + child.field
		parts = append(parts, "EXISTS (SELECT 1 FROM "+child.table+" "+child.alias+
			" WHERE "+child.alias+".task_id = t.id AND "+c.stringCond(field, p.Op, p.Strings)+")")
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

func (c *compiler) mapKeyPredicate(p query.Predicate) (string, error) {
	patterns := make([]*string, 0, len(p.Strings))
	for _, s := range p.Strings {
		pattern, err := codec.KeyPattern(p.MapKey, *s)
		if err != nil {
			return "", err
		}
		patterns = append(patterns, &pattern)
	}
	return c.stringCond("t.custom_attributes", p.Op, patterns), nil
}

func (c *compiler) intPredicate(expr string, p query.Predicate) string {
	switch p.Op {
	case query.OpIn, query.OpNotIn:
		values := make([]int64, len(p.Ints))
		for i, v := range p.Ints {
			values[i] = int64(v)
		}
		cond := expr + " = ANY(" + c.arg(values) + ")"
		if p.Op == query.OpNotIn {
			return "(NOT (" + cond + "))"
		}
		return "(" + cond + ")"
	}

	ranges := make([]string, 0, len(p.IntRanges))
	for _, x := range p.IntRanges {
		var bounds []string
		if x.Begin != nil {
			bounds = append(bounds, expr+" >= "+c.arg(int64(*x.Begin)))
		}
		if x.End != nil {
			bounds = append(bounds, expr+" <= "+c.arg(int64(*x.End)))
		}
		ranges = append(ranges, "("+strings.Join(bounds, " AND ")+")")
	}
	within := "(" + strings.Join(ranges, " OR ") + ")"
	if p.Op == query.OpNotWithin {
		return "(NOT " + within + ")"
	}
	return within
}

func (c *compiler) timePredicate(expr string, p query.Predicate) string {
	ranges := make([]string, 0, len(p.Times))
	for _, x := range p.Times {
		var bounds []string
		if x.Begin != nil {
			bounds = append(bounds, expr+" >= "+c.arg(*x.Begin))
		}
		if x.End != nil {
			bounds = append(bounds, expr+" < "+c.arg(*x.End))
		}
		ranges = append(ranges, "("+strings.Join(bounds, " AND ")+")")
	}
	within := "(" + strings.Join(ranges, " OR ") + ")"
	if p.Op == query.OpNotWithin {
		return "(" + expr + " IS NOT NULL AND NOT " + within + ")"
	}
	return within
}

func (c *compiler) referenceMatch(alias string, fields []string, refs []model.ObjectReference) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		values := []string{ref.Company, ref.System, ref.SystemInstance, ref.Type, ref.Value}
		eqs := make([]string, len(fields))
		for i, f := range fields {
			eqs[i] = "COALESCE(" + alias + "." + f + ", '') = " + c.arg(values[i])
		}
		parts = append(parts, "("+strings.Join(eqs, " AND ")+")")
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (c *compiler) predicate(p query.Predicate) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	if p.Op == query.OpPermitted {
		perms := make([]string, len(p.Permissions))
		for i, perm := range p.Permissions {
			perms[i] = perm.String()
		}
		// one access item must hold every required permission
		return "t.workbasket_id IN (SELECT wa.workbasket_id FROM workbasket_access wa WHERE wa.access_id = ANY(" +
			c.arg(p.AccessIDs) + ") AND wa.permissions @> " + c.arg(perms) + ")", nil
	}

	col := p.Column()
	switch col.Kind() {
	case query.KindString:
		return c.stringPredicate(p)
	case query.KindBlob:
		return c.mapKeyPredicate(p)
	case query.KindReference:
		if col == query.ColumnPrimaryObjectReference {
			return c.referenceMatch("t", []string{"por_company", "por_system", "por_instance", "por_type", "por_value"}, p.References), nil
		}
		return "EXISTS (SELECT 1 FROM object_references r WHERE r.task_id = t.id AND " +
			c.referenceMatch("r", referenceFields, p.References) + ")", nil
	}

	expr, ok := singleColumn(col)
	if !ok {
		return "", unsupportedColumn(col)
	}
	switch col.Kind() {
	case query.KindInt:
		return c.intPredicate(expr, p), nil
	case query.KindTime:
		return c.timePredicate(expr, p), nil
	case query.KindBool:
		return "(" + expr + " = ANY(" + c.arg(p.Bools) + "))", nil
	}
	return "", unsupportedColumn(col)
}

func (c *compiler) where(preds []query.Predicate, extra ...string) (string, error) {
	conds := make([]string, 0, len(preds)+len(extra))
	for _, p := range preds {
		cond, err := c.predicate(p)
		if err != nil {
			return "", err
		}
		conds = append(conds, cond)
	}
	conds = append(conds, extra...)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), nil
}

func joinClause(joins []query.Join) string {
	var b strings.Builder
	for _, j := range joins {
		switch j {
		case query.JoinClassification:
			b.WriteString(" LEFT JOIN classifications c ON c.id = t.classification_id")
		case query.JoinOwner:
			b.WriteString(" LEFT JOIN users u ON u.id = t.owner")
		}
	}
	return b.String()
}

// sortExpr orders text byte-wise so every backend agrees; multi valued
// columns sort by their smallest value
func sortExpr(col query.Column) (string, error) {
	if expr, ok := singleColumn(col); ok {
		if col.Kind() == query.KindString {
			return expr + ` COLLATE "C"`, nil
		}
		return expr, nil
	}
	if child, ok := childColumns[col]; ok {
		return "(SELECT MIN(" + child.alias + "." + child.field + ` COLLATE "C") FROM ` + child.table + " " + child.alias +
			" WHERE " + child.alias + ".task_id = t.id)", nil
	}
	return "", unsupportedColumn(col)
}

func orderClause(sorts []query.SortKey) (string, error) {
	keys := make([]string, 0, len(sorts)+1)
	for _, s := range sorts {
		expr, err := sortExpr(s.Column)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if s.Direction == types.SortDescending {
			dir = "DESC"
		}
		keys = append(keys, expr+" "+dir)
	}
	keys = append(keys, `t.id COLLATE "C" ASC`)
	return " ORDER BY " + strings.Join(keys, ", "), nil
}

func (c *compiler) window(offset, limit int) string {
	var s string
	if limit > 0 {
		s += " LIMIT " + c.arg(int64(limit))
	}
	if offset > 0 {
		s += " OFFSET " + c.arg(int64(offset))
	}
	return s
}

func (c *compiler) groupKey(group *query.GroupKey) (string, error) {
	switch group.Kind {
	case query.GroupByPOR:
		return "COALESCE(t.por_company, ''), COALESCE(t.por_system, ''), COALESCE(t.por_instance, ''), " +
			"COALESCE(t.por_type, ''), COALESCE(t.por_value, '')", nil
	case query.GroupBySOR:
		return `(SELECT MIN(COALESCE(gr.value, '') COLLATE "C") FROM object_references gr WHERE gr.task_id = t.id AND gr.type = ` +
			c.arg(group.SorType) + ")", nil
	}
	return "", goerr.Wrap(model.ErrInvalidArgument, "unknown group kind", goerr.V("kind", group.Kind))
}

// grouped returns a sub-select of the representative (lowest id) of every
// group with the group size
func (c *compiler) grouped(req *query.Request, joins string) (string, error) {
	key, err := c.groupKey(req.Group)
	if err != nil {
		return "", err
	}
	where, err := c.where(req.Predicates)
	if err != nil {
		return "", err
	}
	return "(SELECT t.id AS gid, COUNT(*) OVER (PARTITION BY " + key + ") AS cnt, " +
		`ROW_NUMBER() OVER (PARTITION BY ` + key + ` ORDER BY t.id COLLATE "C") AS rn FROM tasks t` +
		joins + where + ") g", nil
}

func compileSelect(req *query.Request) (*statement, error) {
	c := &compiler{}
	joins := joinClause(req.Joins())
	order, err := orderClause(req.Sorts)
	if err != nil {
		return nil, err
	}

	var sql string
	if req.Group != nil {
		sub, err := c.grouped(req, joins)
		if err != nil {
			return nil, err
		}
		sql = "SELECT " + taskColumns + ", g.cnt FROM " + sub + " JOIN tasks t ON t.id = g.gid" + joins +
			" WHERE g.rn = 1" + order
	} else {
		where, err := c.where(req.Predicates)
		if err != nil {
			return nil, err
		}
		sql = "SELECT " + taskColumns + ", 0 FROM tasks t" + joins + where + order
	}
	sql += c.window(req.Offset, req.Limit)
	return &statement{sql: sql, args: c.args}, nil
}

func compileCount(req *query.Request) (*statement, error) {
	c := &compiler{}
	joins := joinClause(req.Joins())

	if req.Group != nil {
		sub, err := c.grouped(req, joins)
		if err != nil {
			return nil, err
		}
		return &statement{sql: "SELECT COUNT(*) FROM " + sub + " WHERE g.rn = 1", args: c.args}, nil
	}

	where, err := c.where(req.Predicates)
	if err != nil {
		return nil, err
	}
	return &statement{sql: "SELECT COUNT(*) FROM tasks t" + joins + where, args: c.args}, nil
}

func compileValues(req *query.Request, col query.Column, dir types.SortDirection) (*statement, error) {
	if col.Kind() != query.KindString {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "values are available for text columns only", goerr.V(model.ColumnKey, col))
	}
	order := " ORDER BY v ASC"
	if dir.Normalize() == types.SortDescending {
		order = " ORDER BY v DESC"
	}

	c := &compiler{}
	joins := req.Joins()
	if j := col.Join(); j != query.JoinNone {
		joins = append(joins, j)
	}

	var field, from string
	if expr, ok := singleColumn(col); ok {
		field = expr
		from = "tasks t" + joinClause(joins)
	} else if child, ok := childColumns[col]; ok {
		field = "vx." + child.field
		from = "tasks t JOIN " + child.table + " vx ON vx.task_id = t.id" + joinClause(joins)
	} else {
		return nil, unsupportedColumn(col)
	}

	where, err := c.where(req.Predicates, field+" IS NOT NULL")
	if err != nil {
		return nil, err
	}
	return &statement{
		sql:  "SELECT DISTINCT " + field + ` COLLATE "C" AS v FROM ` + from + where + order,
		args: c.args,
	}, nil
}
