package cli

import (
	"context"

	"github.com/secmon-lab/taskbasket/pkg/cli/config"
	"github.com/secmon-lab/taskbasket/pkg/utils/errutil"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	flags := append(loggerCfg.Flags(), sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    "taskbasket",
		Usage:   "Permission scoped task queries and task lifecycle operations",
		Version: version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			closeLog, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, closeLog)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, err
			}
			closers = append(closers, flush)

			logging.Default().Debug("Starting taskbasket", "logger", loggerCfg)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdQuery(),
			cmdTask(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		errutil.Handle(ctx, err, "failed to run app")
		return err
	}

	return nil
}
