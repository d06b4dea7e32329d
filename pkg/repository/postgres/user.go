package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// Put stores the user together with its display name so owner long name
// filters and sorts can run in SQL
func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, first_name, last_name, long_name, display_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			long_name = EXCLUDED.long_name, display_name = EXCLUDED.display_name`,
		user.ID, user.FirstName, user.LastName, user.LongName, user.DisplayName())
	if err != nil {
		return model.WrapStorage(err, "failed to put user", goerr.V("user_id", user.ID))
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, "SELECT id, first_name, last_name, long_name FROM users WHERE id = $1", id).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.LongName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "user not found", goerr.V("user_id", id))
	}
	if err != nil {
		return nil, model.WrapStorage(err, "failed to get user", goerr.V("user_id", id))
	}
	return &u, nil
}

func (r *userRepository) ResolveLongName(ctx context.Context, userID string) (string, error) {
	u, err := r.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.DisplayName(), nil
}

func (r *userRepository) ResolveLongNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, "SELECT id, display_name FROM users WHERE id = ANY($1)", userIDs)
	if err != nil {
		return nil, model.WrapStorage(err, "failed to resolve user names", goerr.V("count", len(userIDs)))
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, model.WrapStorage(err, "failed to scan user")
		}
		out[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, model.WrapStorage(err, "failed to read users")
	}
	return out, nil
}
