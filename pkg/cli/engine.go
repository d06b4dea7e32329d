package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/cli/config"
	"github.com/secmon-lab/taskbasket/pkg/domain/model/auth"
	"github.com/secmon-lab/taskbasket/pkg/usecase"
	"github.com/secmon-lab/taskbasket/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// engineConfig gathers what every command needs to run use cases on
// behalf of a caller
type engineConfig struct {
	repoCfg  config.Repository
	cacheCfg config.Cache
	seedCfg  config.Seed

	user   string
	groups []string
	admin  bool
}

func (e *engineConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, e.repoCfg.Flags()...)
	flags = append(flags, e.cacheCfg.Flags()...)
	flags = append(flags, e.seedCfg.Flags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User id the command runs as",
			Required:    true,
			Sources:     cli.EnvVars("TASKBASKET_USER"),
			Destination: &e.user,
		},
		&cli.StringSliceFlag{
			Name:        "access-id",
			Usage:       "Additional access id (group) of the user; repeatable",
			Sources:     cli.EnvVars("TASKBASKET_ACCESS_IDS"),
			Destination: &e.groups,
		},
		&cli.BoolFlag{
			Name:        "admin",
			Usage:       "Run with the administrative role",
			Destination: &e.admin,
		},
	)
	return flags
}

// open builds the use cases and returns ctx carrying the caller. The
// returned function releases the backend and the cache.
func (e *engineConfig) open(ctx context.Context) (*usecase.UseCases, context.Context, func(), error) {
	repo, err := e.repoCfg.Configure(ctx)
	if err != nil {
		return nil, nil, nil, goerr.Wrap(err, "failed to initialize repository")
	}
	closeRepo := func() { safe.Close(ctx, repo) }

	if err := e.seedCfg.Configure(ctx, repo); err != nil {
		closeRepo()
		return nil, nil, nil, err
	}

	users, closeCache, err := e.cacheCfg.Configure(ctx, repo.User())
	if err != nil {
		closeRepo()
		return nil, nil, nil, goerr.Wrap(err, "failed to configure user cache")
	}

	uc := usecase.New(repo, usecase.WithUserDirectory(users))
	ctx = auth.WithCaller(ctx, &auth.Caller{
		UserID: e.user,
		Groups: e.groups,
		Admin:  e.admin,
	})
	return uc, ctx, func() {
		closeCache()
		closeRepo()
	}, nil
}
