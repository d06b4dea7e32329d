package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
)

type classificationRepository struct {
	pool *pgxpool.Pool
}

const classificationColumns = "id, key, parent_id, category, type, domain, name, priority, customs"

func scanClassification(row pgx.Row) (*model.Classification, error) {
	var c model.Classification
	var customs []string
	if err := row.Scan(&c.ID, &c.Key, &c.ParentID, &c.Category, &c.Type, &c.Domain, &c.Name, &c.Priority, &customs); err != nil {
		return nil, err
	}
	copy(c.Customs[:], customs)
	return &c, nil
}

func (r *classificationRepository) Create(ctx context.Context, c *model.Classification) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO classifications ("+classificationColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		c.ID, c.Key, c.ParentID, c.Category, c.Type, c.Domain, c.Name, c.Priority, c.Customs[:])
	if isUniqueViolation(err) {
		return goerr.Wrap(model.ErrInvalidArgument, "classification already exists",
			goerr.V("classification_id", c.ID), goerr.V("key", c.Key), goerr.V("domain", c.Domain))
	}
	if err != nil {
		return model.WrapStorage(err, "failed to create classification", goerr.V("classification_id", c.ID))
	}
	return nil
}

func (r *classificationRepository) Get(ctx context.Context, id string) (*model.Classification, error) {
	c, err := scanClassification(r.pool.QueryRow(ctx, "SELECT "+classificationColumns+" FROM classifications WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "classification not found", goerr.V("classification_id", id))
	}
	if err != nil {
		return nil, model.WrapStorage(err, "failed to get classification", goerr.V("classification_id", id))
	}
	return c, nil
}

func (r *classificationRepository) GetByKey(ctx context.Context, key, domain string) (*model.Classification, error) {
	c, err := scanClassification(r.pool.QueryRow(ctx,
		"SELECT "+classificationColumns+" FROM classifications WHERE key = $1 AND domain = $2", key, domain))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "classification not found", goerr.V("key", key), goerr.V("domain", domain))
	}
	if err != nil {
		return nil, model.WrapStorage(err, "failed to get classification", goerr.V("key", key), goerr.V("domain", domain))
	}
	return c, nil
}

func (r *classificationRepository) List(ctx context.Context) ([]*model.Classification, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+classificationColumns+` FROM classifications ORDER BY id COLLATE "C"`)
	if err != nil {
		return nil, model.WrapStorage(err, "failed to list classifications")
	}
	defer rows.Close()

	var out []*model.Classification
	for rows.Next() {
		c, err := scanClassification(rows)
		if err != nil {
			return nil, model.WrapStorage(err, "failed to scan classification")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, model.WrapStorage(err, "failed to list classifications")
	}
	return out, nil
}
