package cli

import (
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
)

func parseColumn(s string) (query.Column, error) {
	col := query.Column(strings.ToUpper(strings.TrimSpace(s)))
	if !col.IsValid() {
		return "", goerr.Wrap(model.ErrInvalidArgument, "unknown column", goerr.V(model.ColumnKey, s))
	}
	return col, nil
}

// parseSort reads COLUMN or COLUMN:ASC|DESC
func parseSort(s string) (query.Filter, error) {
	name, dir, _ := strings.Cut(s, ":")
	col, err := parseColumn(name)
	if err != nil {
		return nil, err
	}
	d := types.SortDirection(strings.ToUpper(dir)).Normalize()
	if !d.IsValid() {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "invalid sort direction", goerr.V("direction", dir))
	}
	return query.OrderBy(col, d), nil
}

// parseCustom reads SLOT=VALUE for equality, SLOT= for the empty string
// and a bare SLOT for NULL
func parseCustom(s string) (query.Filter, error) {
	slot, value, hasValue := strings.Cut(s, "=")
	n, err := strconv.Atoi(strings.TrimSpace(slot))
	if err != nil {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "custom slot must be a number", goerr.V("slot", slot))
	}
	if !hasValue {
		return query.CustomIn(query.Slot(n), nil), nil
	}
	return query.CustomIn(query.Slot(n), query.Str(value)), nil
}

// parseCustomAttribute reads KEY=PATTERN, a LIKE pattern on one map key
func parseCustomAttribute(s string) (query.Filter, error) {
	key, pattern, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "custom attribute filter must be KEY=PATTERN", goerr.V("filter", s))
	}
	return query.CustomAttributeLike(key, pattern), nil
}

func parseStates(values []string) ([]types.TaskState, error) {
	states := make([]types.TaskState, 0, len(values))
	for _, v := range values {
		st, err := types.ParseTaskState(strings.ToUpper(v))
		if err != nil {
			return nil, goerr.Wrap(model.ErrInvalidArgument, "invalid task state", goerr.V("state", v))
		}
		states = append(states, st)
	}
	return states, nil
}

func parsePermissions(values []string) ([]types.Permission, error) {
	perms := make([]types.Permission, 0, len(values))
	for _, v := range values {
		p, err := types.ParsePermission(strings.ToUpper(v))
		if err != nil {
			return nil, goerr.Wrap(model.ErrInvalidArgument, "invalid permission", goerr.V(model.PermissionKey, v))
		}
		perms = append(perms, p)
	}
	return perms, nil
}
