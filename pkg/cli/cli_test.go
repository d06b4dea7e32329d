package cli_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/cli"
)

const seedPath = "config/testdata/seed.toml"

func run(args ...string) error {
	return cli.Run(context.Background(), append([]string{"taskbasket", "--log-level", "error"}, args...), "test")
}

func TestRun_Query(t *testing.T) {
	gt.NoError(t, run("query", "--seed", seedPath, "--user", "teamlead-1"))
	gt.NoError(t, run("query", "--seed", seedPath, "--user", "teamlead-1", "--count", "--state", "ready"))
	gt.NoError(t, run("query", "--seed", seedPath, "--user", "user-1-1", "--access-id", "group-1",
		"--group-by-por", "--sort", "NAME:DESC", "--page", "1", "--page-size", "10"))
	gt.NoError(t, run("query", "--seed", seedPath, "--user", "teamlead-1", "--values", "por_value"))

	t.Run("invalid flags fail", func(t *testing.T) {
		gt.Error(t, run("query", "--seed", seedPath, "--user", "teamlead-1", "--state", "sleeping"))
		gt.Error(t, run("query", "--seed", seedPath, "--user", "teamlead-1", "--sort", "NOPE"))
		gt.Error(t, run("query", "--seed", seedPath, "--user", "teamlead-1", "--page", "0", "--page-size", "2"))
	})
}

func TestRun_Task(t *testing.T) {
	gt.NoError(t, run("task", "claim", "--seed", seedPath, "--user", "teamlead-1", "--id", "TKI:001"))
	gt.NoError(t, run("task", "complete", "--seed", seedPath, "--user", "teamlead-1", "--force", "--id", "TKI:001", "--id", "TKI:002"))
	gt.NoError(t, run("task", "cancel-claim", "--seed", seedPath, "--user", "teamlead-1", "--force", "--id", "TKI:002"))

	t.Run("someone else's claim cannot be cancelled", func(t *testing.T) {
		gt.Error(t, run("task", "cancel-claim", "--seed", seedPath, "--user", "teamlead-1", "--id", "TKI:002"))
	})

	t.Run("bulk failures fail the command", func(t *testing.T) {
		gt.Error(t, run("task", "transfer", "--seed", seedPath, "--user", "teamlead-1", "--target", "WBI:1", "--id", "TKI:none"))
	})

	t.Run("stranger cannot see tasks", func(t *testing.T) {
		gt.Error(t, run("task", "claim", "--seed", seedPath, "--user", "stranger", "--id", "TKI:001"))
	})
}
