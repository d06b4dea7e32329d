package usecase

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/query"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	// ownerChunkSize bounds the owner ids resolved per directory call
	ownerChunkSize = 32000
	// ownerChunkConcurrency bounds the directory calls in flight
	ownerChunkConcurrency = 4
)

// QueryUseCase executes task queries on behalf of the caller in ctx
type QueryUseCase struct {
	repo   interfaces.Repository
	users  interfaces.UserDirectory
	tracer trace.Tracer
}

func NewQueryUseCase(repo interfaces.Repository, users interfaces.UserDirectory) *QueryUseCase {
	return &QueryUseCase{
		repo:   repo,
		users:  users,
		tracer: otel.Tracer("github.com/secmon-lab/taskbasket/pkg/usecase"),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// request merges the permission predicate of the caller into q
func (uc *QueryUseCase) request(ctx context.Context, q *query.Query, offset, limit int) (*query.Request, error) {
	if q == nil {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "query is not given")
	}
	caller, err := callerOf(ctx)
	if err != nil {
		return nil, err
	}
	permitted := PermissionPredicate(caller.AccessIDs(), q.RequiredPermissions()...)
	return q.Request([]query.Predicate{permitted}, offset, limit)
}

// List returns every task matching q
func (uc *QueryUseCase) List(ctx context.Context, q *query.Query) ([]*model.TaskSummary, error) {
	return uc.ListRange(ctx, q, 0, 0)
}

// ListRange returns the window [offset, offset+limit) of the ordered result.
// A limit of zero means no limit.
func (uc *QueryUseCase) ListRange(ctx context.Context, q *query.Query, offset, limit int) (tasks []*model.TaskSummary, err error) {
	ctx, span := uc.tracer.Start(ctx, "QueryUseCase.List")
	defer func() { endSpan(span, err) }()

	req, err := uc.request(ctx, q, offset, limit)
	if err != nil {
		return nil, err
	}

	tasks, err = uc.repo.Task().Fetch(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch tasks")
	}
	if req.Group == nil {
		if err := uc.hydrateOwners(ctx, tasks); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(
		attribute.Int("rows", len(tasks)),
		attribute.Bool("grouped", req.Group != nil),
		attribute.Int("predicates", len(req.Predicates)),
	)
	logging.From(ctx).Debug("tasks listed",
		slog.Int("rows", len(tasks)),
		slog.Int("offset", req.Offset),
		slog.Int("limit", req.Limit),
		slog.Bool("grouped", req.Group != nil),
	)
	return tasks, nil
}

// ListPage returns the 1-indexed page of the given size
func (uc *QueryUseCase) ListPage(ctx context.Context, q *query.Query, page, size int) ([]*model.TaskSummary, error) {
	if size <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "page size must be positive", goerr.V("size", size))
	}
	if page < 1 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "page number must be at least 1", goerr.V("page", page))
	}
	return uc.ListRange(ctx, q, (page-1)*size, size)
}

// Count returns the number of rows List would return. Grouped queries
// count groups.
func (uc *QueryUseCase) Count(ctx context.Context, q *query.Query) (n int64, err error) {
	ctx, span := uc.tracer.Start(ctx, "QueryUseCase.Count")
	defer func() { endSpan(span, err) }()

	req, err := uc.request(ctx, q, 0, 0)
	if err != nil {
		return 0, err
	}
	n, err = uc.repo.Task().Count(ctx, req)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count tasks")
	}
	span.SetAttributes(attribute.Int64("count", n), attribute.Bool("grouped", req.Group != nil))
	return n, nil
}

// Single returns the only task matching q
func (uc *QueryUseCase) Single(ctx context.Context, q *query.Query) (task *model.TaskSummary, err error) {
	ctx, span := uc.tracer.Start(ctx, "QueryUseCase.Single")
	defer func() { endSpan(span, err) }()

	req, err := uc.request(ctx, q, 0, 2)
	if err != nil {
		return nil, err
	}
	tasks, err := uc.repo.Task().Fetch(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch task")
	}

	switch len(tasks) {
	case 0:
		return nil, goerr.Wrap(model.ErrNotFound, "no task matches the query")
	case 1:
	default:
		return nil, goerr.Wrap(model.ErrTooManyResults, "more than one task matches the query")
	}

	if req.Group == nil {
		if err := uc.hydrateOwners(ctx, tasks); err != nil {
			return nil, err
		}
	}
	return tasks[0], nil
}

// ListValues returns the distinct non-NULL values of a text column over the
// rows matching q
func (uc *QueryUseCase) ListValues(ctx context.Context, q *query.Query, col query.Column, dir types.SortDirection) (values []string, err error) {
	ctx, span := uc.tracer.Start(ctx, "QueryUseCase.ListValues")
	defer func() { endSpan(span, err) }()

	if !col.IsValid() {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "unknown column", goerr.V(model.ColumnKey, col))
	}
	if !dir.Normalize().IsValid() {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "invalid sort direction", goerr.V("direction", dir))
	}

	req, err := uc.request(ctx, q, 0, 0)
	if err != nil {
		return nil, err
	}
	values, err = uc.repo.Task().Values(ctx, req, col, dir.Normalize())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list values", goerr.V(model.ColumnKey, col))
	}
	span.SetAttributes(attribute.Int("values", len(values)), attribute.String("column", col.String()))
	return values, nil
}

// hydrateOwners fills OwnerLongName. Distinct owners are resolved in chunks
// of at most ownerChunkSize ids; unknown owners keep an empty name.
func (uc *QueryUseCase) hydrateOwners(ctx context.Context, tasks []*model.TaskSummary) error {
	seen := make(map[string]struct{})
	var owners []string
	for _, t := range tasks {
		if t.Owner == "" {
			continue
		}
		if _, ok := seen[t.Owner]; !ok {
			seen[t.Owner] = struct{}{}
			owners = append(owners, t.Owner)
		}
	}
	if len(owners) == 0 {
		return nil
	}

	var chunks [][]string
	for len(owners) > 0 {
		n := min(ownerChunkSize, len(owners))
		chunks = append(chunks, owners[:n])
		owners = owners[n:]
	}

	results := make([]map[string]string, len(chunks))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(ownerChunkConcurrency)
	for i, chunk := range chunks {
		eg.Go(func() error {
			names, err := uc.users.ResolveLongNames(egCtx, chunk)
			if err != nil {
				return goerr.Wrap(err, "failed to resolve owner names", goerr.V("chunk", i), goerr.V("size", len(chunk)))
			}
			results[i] = names
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	names := make(map[string]string, len(seen))
	for _, r := range results {
		for id, name := range r {
			names[id] = name
		}
	}
	for _, t := range tasks {
		t.OwnerLongName = names[t.Owner]
	}

	logging.From(ctx).Debug("owner names resolved", slog.Int("owners", len(seen)), slog.Int("chunks", len(chunks)))
	return nil
}
