package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
)

type Postgres struct {
	pool           *pgxpool.Pool
	task           *taskRepository
	workbasket     *workbasketRepository
	user           *userRepository
	classification *classificationRepository
}

var _ interfaces.Repository = &Postgres{}

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// New connects to PostgreSQL and creates the schema when it is missing
func New(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create postgres pool")
	}

	p := &Postgres{
		pool:           pool,
		task:           &taskRepository{pool: pool},
		workbasket:     &workbasketRepository{pool: pool},
		user:           &userRepository{pool: pool},
		classification: &classificationRepository{pool: pool},
	}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS classifications (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL,
		parent_id TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		domain TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 0,
		customs TEXT[] NOT NULL DEFAULT '{}',
		UNIQUE (key, domain)
	)`,
	`CREATE TABLE IF NOT EXISTS workbaskets (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL,
		domain TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL DEFAULT '',
		created TIMESTAMPTZ NOT NULL,
		modified TIMESTAMPTZ NOT NULL,
		UNIQUE (key, domain)
	)`,
	`CREATE TABLE IF NOT EXISTS workbasket_access (
		workbasket_id TEXT NOT NULL REFERENCES workbaskets(id) ON DELETE CASCADE,
		access_id TEXT NOT NULL,
		access_name TEXT NOT NULL DEFAULT '',
		permissions TEXT[] NOT NULL DEFAULT '{}',
		PRIMARY KEY (workbasket_id, access_id)
	)`,
	`CREATE INDEX IF NOT EXISTS workbasket_access_access_id ON workbasket_access (access_id)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		long_name TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		created TIMESTAMPTZ NOT NULL,
		modified TIMESTAMPTZ NOT NULL,
		claimed TIMESTAMPTZ,
		completed TIMESTAMPTZ,
		planned TIMESTAMPTZ,
		due TIMESTAMPTZ,
		received TIMESTAMPTZ,
		name TEXT,
		description TEXT,
		note TEXT,
		creator TEXT,
		business_process_id TEXT,
		classification_id TEXT,
		classification_key TEXT,
		classification_category TEXT,
		classification_priority INTEGER NOT NULL DEFAULT 0,
		workbasket_id TEXT,
		workbasket_key TEXT,
		domain TEXT,
		owner TEXT,
		state TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		manual_priority INTEGER NOT NULL DEFAULT -1,
		por_company TEXT,
		por_system TEXT,
		por_instance TEXT,
		por_type TEXT,
		por_value TEXT,
		custom_1 TEXT, custom_2 TEXT, custom_3 TEXT, custom_4 TEXT,
		custom_5 TEXT, custom_6 TEXT, custom_7 TEXT, custom_8 TEXT,
		custom_9 TEXT, custom_10 TEXT, custom_11 TEXT, custom_12 TEXT,
		custom_13 TEXT, custom_14 TEXT, custom_15 TEXT, custom_16 TEXT,
		custom_attributes TEXT,
		callback_info TEXT,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		is_transferred BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_workbasket_id ON tasks (workbasket_id)`,
	`CREATE INDEX IF NOT EXISTS tasks_owner ON tasks (owner)`,
	`CREATE TABLE IF NOT EXISTS object_references (
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		company TEXT,
		system TEXT,
		system_instance TEXT,
		type TEXT,
		value TEXT,
		PRIMARY KEY (task_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS attachments (
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		classification_id TEXT,
		classification_key TEXT,
		classification_category TEXT,
		classification_priority INTEGER NOT NULL DEFAULT 0,
		ref_company TEXT,
		ref_system TEXT,
		ref_system_instance TEXT,
		ref_type TEXT,
		ref_value TEXT,
		channel TEXT,
		received TIMESTAMPTZ,
		PRIMARY KEY (task_id, position)
	)`,
}

// EnsureSchema creates the tables and indexes the repository uses
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return model.WrapStorage(err, "failed to ensure postgres schema")
		}
	}
	return nil
}

func (p *Postgres) Task() interfaces.TaskRepository {
	return p.task
}

func (p *Postgres) Workbasket() interfaces.WorkbasketRepository {
	return p.workbasket
}

func (p *Postgres) User() interfaces.UserRepository {
	return p.user
}

func (p *Postgres) Classification() interfaces.ClassificationRepository {
	return p.classification
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// nullString maps the empty string to NULL
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNull(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
