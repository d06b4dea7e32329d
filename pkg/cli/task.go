package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdTask() *cli.Command {
	return &cli.Command{
		Name:    "task",
		Aliases: []string{"t"},
		Usage:   "Run lifecycle operations on tasks",
		Commands: []*cli.Command{
			cmdTaskClaim(),
			cmdTaskCancelClaim(),
			cmdTaskComplete(),
			cmdTaskTransfer(),
		},
	}
}

// taskCommand wires the shared flags of single task operations
func taskCommand(name, usage string, extra []cli.Flag, run func(ctx context.Context, uc *usecase.UseCases, id string) (*model.Task, error)) *cli.Command {
	var engine engineConfig
	var id string

	flags := append(engine.Flags(), &cli.StringFlag{
		Name:        "id",
		Usage:       "Task id",
		Required:    true,
		Destination: &id,
	})

	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: append(flags, extra...),
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, ctx, closer, err := engine.open(ctx)
			if err != nil {
				return err
			}
			defer closer()

			task, err := run(ctx, uc, id)
			if err != nil {
				return goerr.Wrap(err, "failed to "+name+" task", goerr.V(model.TaskIDKey, id))
			}
			return printTask(c.Root().Writer, task)
		},
	}
}

func cmdTaskClaim() *cli.Command {
	var force bool
	return taskCommand("claim", "Claim a task for the user",
		[]cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Take the task over from its current owner", Destination: &force},
		},
		func(ctx context.Context, uc *usecase.UseCases, id string) (*model.Task, error) {
			if force {
				return uc.Task.ForceClaim(ctx, id)
			}
			return uc.Task.Claim(ctx, id)
		})
}

func cmdTaskCancelClaim() *cli.Command {
	var force, keepOwner bool
	return taskCommand("cancel-claim", "Return a claimed task to its queue",
		[]cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Cancel the claim of another user", Destination: &force},
			&cli.BoolFlag{Name: "keep-owner", Usage: "Keep the owner assigned", Destination: &keepOwner},
		},
		func(ctx context.Context, uc *usecase.UseCases, id string) (*model.Task, error) {
			if force {
				return uc.Task.ForceCancelClaim(ctx, id, keepOwner)
			}
			return uc.Task.CancelClaim(ctx, id, keepOwner)
		})
}

// bulkCommand runs an operation over several task ids
func bulkCommand(name, usage string, extra []cli.Flag, run func(ctx context.Context, uc *usecase.UseCases, ids []string) (*model.BulkResult, error)) *cli.Command {
	var engine engineConfig
	var ids []string

	flags := append(engine.Flags(), &cli.StringSliceFlag{
		Name:        "id",
		Usage:       "Task id; repeatable",
		Required:    true,
		Destination: &ids,
	})

	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: append(flags, extra...),
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, ctx, closer, err := engine.open(ctx)
			if err != nil {
				return err
			}
			defer closer()

			result, err := run(ctx, uc, ids)
			if err != nil {
				return goerr.Wrap(err, "failed to "+name+" tasks")
			}
			if err := printBulk(c.Root().Writer, ids, result); err != nil {
				return err
			}
			if result.ContainsErrors() {
				return goerr.New("some tasks failed", goerr.V("failed", result.FailedIDs()))
			}
			return nil
		},
	}
}

func cmdTaskComplete() *cli.Command {
	var force bool
	return bulkCommand("complete", "Complete tasks",
		[]cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Complete tasks owned by others or unclaimed", Destination: &force},
		},
		func(ctx context.Context, uc *usecase.UseCases, ids []string) (*model.BulkResult, error) {
			if force {
				return uc.Task.ForceCompleteBulk(ctx, ids)
			}
			return uc.Task.CompleteBulk(ctx, ids)
		})
}

func cmdTaskTransfer() *cli.Command {
	var target, owner string
	var keepFlag bool
	return bulkCommand("transfer", "Transfer tasks into another workbasket",
		[]cli.Flag{
			&cli.StringFlag{Name: "target", Usage: "Target workbasket id", Required: true, Destination: &target},
			&cli.StringFlag{Name: "new-owner", Usage: "Assign the tasks to this user", Destination: &owner},
			&cli.BoolFlag{Name: "not-transferred", Usage: "Do not mark the tasks as transferred", Destination: &keepFlag},
		},
		func(ctx context.Context, uc *usecase.UseCases, ids []string) (*model.BulkResult, error) {
			opts := []usecase.TransferOption{usecase.WithTransferredFlag(!keepFlag)}
			if owner != "" {
				opts = append(opts, usecase.WithNewOwner(owner))
			}
			return uc.Task.TransferBulk(ctx, target, ids, opts...)
		})
}
