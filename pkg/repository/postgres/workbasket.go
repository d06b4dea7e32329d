package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

// uniqueViolation is the SQLSTATE of a unique constraint violation
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type workbasketRepository struct {
	pool *pgxpool.Pool
}

const workbasketColumns = "id, key, domain, name, description, owner, created, modified"

func scanWorkbasket(row pgx.Row) (*model.Workbasket, error) {
	var wb model.Workbasket
	if err := row.Scan(&wb.ID, &wb.Key, &wb.Domain, &wb.Name, &wb.Description, &wb.Owner, &wb.Created, &wb.Modified); err != nil {
		return nil, err
	}
	return &wb, nil
}

func (r *workbasketRepository) Create(ctx context.Context, wb *model.Workbasket) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO workbaskets ("+workbasketColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		wb.ID, wb.Key, wb.Domain, wb.Name, wb.Description, wb.Owner, wb.Created, wb.Modified)
	if isUniqueViolation(err) {
		return goerr.Wrap(model.ErrInvalidArgument, "workbasket already exists",
			goerr.V(model.WorkbasketIDKey, wb.ID), goerr.V("key", wb.Key), goerr.V("domain", wb.Domain))
	}
	if err != nil {
		return model.WrapStorage(err, "failed to create workbasket", goerr.V(model.WorkbasketIDKey, wb.ID))
	}
	return nil
}

func (r *workbasketRepository) Get(ctx context.Context, id string) (*model.Workbasket, error) {
	wb, err := scanWorkbasket(r.pool.QueryRow(ctx, "SELECT "+workbasketColumns+" FROM workbaskets WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "workbasket not found", goerr.V(model.WorkbasketIDKey, id))
	}
	if err != nil {
		return nil, model.WrapStorage(err, "failed to get workbasket", goerr.V(model.WorkbasketIDKey, id))
	}
	return wb, nil
}

func (r *workbasketRepository) GetByKey(ctx context.Context, key, domain string) (*model.Workbasket, error) {
	wb, err := scanWorkbasket(r.pool.QueryRow(ctx,
		"SELECT "+workbasketColumns+" FROM workbaskets WHERE key = $1 AND domain = $2", key, domain))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "workbasket not found", goerr.V("key", key), goerr.V("domain", domain))
	}
	if err != nil {
		return nil, model.WrapStorage(err, "failed to get workbasket", goerr.V("key", key), goerr.V("domain", domain))
	}
	return wb, nil
}

func (r *workbasketRepository) List(ctx context.Context) ([]*model.Workbasket, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+workbasketColumns+` FROM workbaskets ORDER BY id COLLATE "C"`)
	if err != nil {
		return nil, model.WrapStorage(err, "failed to list workbaskets")
	}
	defer rows.Close()

	var out []*model.Workbasket
	for rows.Next() {
		wb, err := scanWorkbasket(rows)
		if err != nil {
			return nil, model.WrapStorage(err, "failed to scan workbasket")
		}
		out = append(out, wb)
	}
	if err := rows.Err(); err != nil {
		return nil, model.WrapStorage(err, "failed to list workbaskets")
	}
	return out, nil
}

func permissionStrings(set types.PermissionSet) []string {
	perms := set.Slice()
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = p.String()
	}
	return out
}

func toPermissionSet(values []string) types.PermissionSet {
	set := types.NewPermissionSet()
	for _, v := range values {
		set[types.Permission(v)] = struct{}{}
	}
	return set
}

func (r *workbasketRepository) PutAccessItem(ctx context.Context, item *model.WorkbasketAccessItem) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM workbaskets WHERE id = $1)", item.WorkbasketID).Scan(&exists); err != nil {
		return model.WrapStorage(err, "failed to check workbasket", goerr.V(model.WorkbasketIDKey, item.WorkbasketID))
	}
	if !exists {
		return goerr.Wrap(model.ErrNotFound, "workbasket not found", goerr.V(model.WorkbasketIDKey, item.WorkbasketID))
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO workbasket_access (workbasket_id, access_id, access_name, permissions)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workbasket_id, access_id)
		DO UPDATE SET access_name = EXCLUDED.access_name, permissions = EXCLUDED.permissions`,
		item.WorkbasketID, item.AccessID, item.AccessName, permissionStrings(item.Permissions))
	if err != nil {
		return model.WrapStorage(err, "failed to put access item",
			goerr.V(model.WorkbasketIDKey, item.WorkbasketID), goerr.V(model.AccessIDKey, item.AccessID))
	}
	return nil
}

func (r *workbasketRepository) DeleteAccessItem(ctx context.Context, workbasketID, accessID string) error {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM workbasket_access WHERE workbasket_id = $1 AND access_id = $2", workbasketID, accessID)
	if err != nil {
		return model.WrapStorage(err, "failed to delete access item",
			goerr.V(model.WorkbasketIDKey, workbasketID), goerr.V(model.AccessIDKey, accessID))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(model.ErrNotFound, "access item not found",
			goerr.V(model.WorkbasketIDKey, workbasketID), goerr.V(model.AccessIDKey, accessID))
	}
	return nil
}

func (r *workbasketRepository) queryAccessItems(ctx context.Context, sql string, args ...any) ([]*model.WorkbasketAccessItem, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, model.WrapStorage(err, "failed to query access items")
	}
	defer rows.Close()

	var out []*model.WorkbasketAccessItem
	for rows.Next() {
		var item model.WorkbasketAccessItem
		var perms []string
		if err := rows.Scan(&item.WorkbasketID, &item.AccessID, &item.AccessName, &perms); err != nil {
			return nil, model.WrapStorage(err, "failed to scan access item")
		}
		item.Permissions = toPermissionSet(perms)
		out = append(out, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, model.WrapStorage(err, "failed to read access items")
	}
	return out, nil
}

func (r *workbasketRepository) ListAccessItems(ctx context.Context, workbasketID string) ([]*model.WorkbasketAccessItem, error) {
	items, err := r.queryAccessItems(ctx,
		`SELECT workbasket_id, access_id, access_name, permissions FROM workbasket_access
		WHERE workbasket_id = $1 ORDER BY access_id COLLATE "C"`, workbasketID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list access items", goerr.V(model.WorkbasketIDKey, workbasketID))
	}
	return items, nil
}

func (r *workbasketRepository) PermissionsFor(ctx context.Context, accessIDs []string, workbasketID string) (types.PermissionSet, error) {
	items, err := r.queryAccessItems(ctx,
		`SELECT workbasket_id, access_id, access_name, permissions FROM workbasket_access
		WHERE workbasket_id = $1 AND access_id = ANY($2)`, workbasketID, accessIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve permissions", goerr.V(model.WorkbasketIDKey, workbasketID))
	}

	set := types.NewPermissionSet()
	for _, item := range items {
		for p := range item.Permissions {
			set[p] = struct{}{}
		}
	}
	return set, nil
}

func (r *workbasketRepository) PermittedWorkbaskets(ctx context.Context, accessIDs []string, perms []types.Permission) (map[string]struct{}, error) {
	required := make([]string, len(perms))
	for i, p := range perms {
		required[i] = p.String()
	}

	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT workbasket_id FROM workbasket_access WHERE access_id = ANY($1) AND permissions @> $2`,
		accessIDs, required)
	if err != nil {
		return nil, model.WrapStorage(err, "failed to resolve permitted workbaskets")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, model.WrapStorage(err, "failed to read permitted workbaskets")
	}

	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *workbasketRepository) AccessItemsWithPermission(ctx context.Context, perm types.Permission, accessIDs []string) ([]*model.WorkbasketAccessItem, error) {
	items, err := r.queryAccessItems(ctx,
		`SELECT workbasket_id, access_id, access_name, permissions FROM workbasket_access
		WHERE access_id = ANY($1) AND $2 = ANY(permissions)
		ORDER BY workbasket_id COLLATE "C", access_id COLLATE "C"`, accessIDs, perm.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list access items", goerr.V(model.PermissionKey, perm))
	}
	return items, nil
}
