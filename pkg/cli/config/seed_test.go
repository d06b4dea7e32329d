package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/cli/config"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/repository/memory"
)

func TestLoadSeed(t *testing.T) {
	data, err := config.LoadSeed("testdata/seed.toml")
	gt.NoError(t, err).Required()
	gt.A(t, data.Classifications).Length(2)
	gt.A(t, data.Workbaskets).Length(2)
	gt.A(t, data.Workbaskets[0].Access).Length(2)
	gt.A(t, data.Users).Length(2)
	gt.A(t, data.Tasks).Length(2)
	gt.V(t, data.Tasks[0].Custom["1"]).Equal("alpha")
	gt.V(t, data.Tasks[0].CustomAttributes["region"]).Equal("emea")
	gt.V(t, data.Tasks[0].PrimaryReference.Value).Equal("MyValue1")
	gt.A(t, data.Tasks[0].SecondaryReferences).Length(1)
	gt.V(t, data.Tasks[0].Attachments[0].Reference.Type).Equal("doc")
}

func TestLoadSeed_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "unknown workbasket",
			content: `
[[classification]]
key = "L1"
domain = "D"

[[task]]
workbasket_key = "NOPE"
classification_key = "L1"
`,
		},
		{
			name: "classification of another domain",
			content: `
[[classification]]
key = "L1"
domain = "OTHER"

[[workbasket]]
key = "WB"
domain = "D"

[[task]]
workbasket_key = "WB"
classification_key = "L1"
`,
		},
		{
			name: "invalid permission",
			content: `
[[workbasket]]
key = "WB"
domain = "D"

  [[workbasket.access]]
  access_id = "u1"
  permissions = ["FLY"]
`,
		},
		{
			name: "invalid state",
			content: `
[[classification]]
key = "L1"
domain = "D"

[[workbasket]]
key = "WB"
domain = "D"

[[task]]
workbasket_key = "WB"
classification_key = "L1"
state = "SLEEPING"
`,
		},
		{
			name: "custom slot out of range",
			content: `
[[classification]]
key = "L1"
domain = "D"

[[workbasket]]
key = "WB"
domain = "D"

[[task]]
workbasket_key = "WB"
classification_key = "L1"

  [task.custom]
  "17" = "x"
`,
		},
		{
			name: "duplicate workbasket key",
			content: `
[[workbasket]]
key = "WB"
domain = "D"

[[workbasket]]
key = "WB"
domain = "D"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "seed.toml")
			gt.NoError(t, os.WriteFile(path, []byte(tt.content), 0600)).Required()

			_, err := config.LoadSeed(path)
			gt.Error(t, err).Is(config.ErrInvalidSeed)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadSeed(filepath.Join(t.TempDir(), "none.toml"))
		gt.Error(t, err)
	})
}

func TestSeedData_Apply(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	data, err := config.LoadSeed("testdata/seed.toml")
	gt.NoError(t, err).Required()
	gt.NoError(t, data.Apply(ctx, repo, now)).Required()

	wb, err := repo.Workbasket().GetByKey(ctx, "GPK_KSC", "DOMAIN_A")
	gt.NoError(t, err).Required()
	gt.V(t, wb.ID).Equal("WBI:1")

	perms, err := repo.Workbasket().PermissionsFor(ctx, []string{"teamlead-1"}, wb.ID)
	gt.NoError(t, err).Required()
	gt.B(t, perms.HasAll(types.PermissionRead, types.PermissionAppend, types.PermissionTransfer)).True()

	name, err := repo.User().ResolveLongName(ctx, "user-1-1")
	gt.NoError(t, err).Required()
	gt.V(t, name).Equal("Mustermann, Max")

	t1, err := repo.Task().Get(ctx, "TKI:001")
	gt.NoError(t, err).Required()
	gt.V(t, t1.Name).Equal("Incoming mail")
	gt.V(t, t1.State).Equal(types.TaskStateReady)
	gt.N(t, t1.Priority).Equal(2)
	gt.V(t, t1.Created).Equal(time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC))
	slot1, ok := t1.Custom(1)
	gt.B(t, ok).True()
	gt.V(t, slot1).Equal("alpha")
	slot16, ok := t1.Custom(16)
	gt.B(t, ok).True()
	gt.V(t, slot16).Equal("")
	_, ok = t1.Custom(2)
	gt.B(t, ok).False()
	gt.A(t, t1.Attachments).Length(1)
	gt.V(t, t1.Attachments[0].Classification.Key).Equal("DOC")

	t2, err := repo.Task().Get(ctx, "TKI:002")
	gt.NoError(t, err).Required()
	gt.V(t, t2.State).Equal(types.TaskStateClaimed)
	gt.V(t, t2.Owner).Equal("user-1-1")
	gt.N(t, t2.Priority).Equal(9)
	gt.V(t, t2.Created).Equal(now)
	gt.V(t, t2.Claimed).NotNil()
}

func TestSeed_Configure(t *testing.T) {
	repo := memory.New()
	gt.NoError(t, config.NewSeedForTest("").Configure(context.Background(), repo))
	gt.NoError(t, config.NewSeedForTest("testdata/seed.toml").Configure(context.Background(), repo))

	classes, err := repo.Classification().List(context.Background())
	gt.NoError(t, err).Required()
	gt.A(t, classes).Length(2)
}
