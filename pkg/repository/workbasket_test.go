package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
)

func runWorkbasketRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("Create and lookup by key", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		wb := createWorkbasket(t, repo, "lookup")

		got, err := repo.Workbasket().Get(ctx, wb.ID)
		gt.NoError(t, err).Required()
		gt.V(t, got.Key).Equal(wb.Key)
		gt.V(t, got.Name).Equal("lookup")

		byKey, err := repo.Workbasket().GetByKey(ctx, wb.Key, wb.Domain)
		gt.NoError(t, err).Required()
		gt.V(t, byKey.ID).Equal(wb.ID)

		_, err = repo.Workbasket().GetByKey(ctx, wb.Key, "OTHER_DOMAIN")
		gt.Error(t, err).Is(model.ErrNotFound)
		_, err = repo.Workbasket().Get(ctx, newID("WBI"))
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("Create rejects a duplicate key in the same domain", func(t *testing.T) {
		repo := newRepo(t)
		wb := createWorkbasket(t, repo, "unique")

		dup := *wb
		dup.ID = newID("WBI")
		gt.Error(t, repo.Workbasket().Create(context.Background(), &dup)).Is(model.ErrInvalidArgument)
	})

	t.Run("access items are upserted per access id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		wb := createWorkbasket(t, repo, "acl")

		grant(t, repo, wb, "alice", types.PermissionRead)
		grant(t, repo, wb, "alice", types.PermissionRead, types.PermissionOpen)
		grant(t, repo, wb, "team", types.PermissionTransfer)

		items, err := repo.Workbasket().ListAccessItems(ctx, wb.ID)
		gt.NoError(t, err).Required()
		gt.A(t, items).Length(2)
		gt.V(t, items[0].AccessID).Equal("alice")
		gt.B(t, items[0].Permissions.HasAll(types.PermissionRead, types.PermissionOpen)).True()

		perms, err := repo.Workbasket().PermissionsFor(ctx, []string{"alice", "team"}, wb.ID)
		gt.NoError(t, err).Required()
		gt.B(t, perms.HasAll(types.PermissionRead, types.PermissionOpen, types.PermissionTransfer)).True()
		gt.B(t, perms.Has(types.PermissionAppend)).False()

		gt.NoError(t, repo.Workbasket().DeleteAccessItem(ctx, wb.ID, "team")).Required()
		gt.Error(t, repo.Workbasket().DeleteAccessItem(ctx, wb.ID, "team")).Is(model.ErrNotFound)

		perms, err = repo.Workbasket().PermissionsFor(ctx, []string{"team"}, wb.ID)
		gt.NoError(t, err).Required()
		gt.N(t, len(perms)).Equal(0)
	})

	t.Run("PutAccessItem requires the workbasket", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Workbasket().PutAccessItem(context.Background(), &model.WorkbasketAccessItem{
			WorkbasketID: newID("WBI"),
			AccessID:     "alice",
			Permissions:  types.NewPermissionSet(types.PermissionRead),
		})
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("PermittedWorkbaskets needs one access id holding every permission", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		wbA := createWorkbasket(t, repo, "permitted-a")
		wbB := createWorkbasket(t, repo, "permitted-b")
		alice := newID("alice")
		team := newID("team")

		grant(t, repo, wbA, alice, types.PermissionRead)
		grant(t, repo, wbA, team, types.PermissionCustom2)
		grant(t, repo, wbB, team, types.PermissionRead, types.PermissionCustom2)

		ids, err := repo.Workbasket().PermittedWorkbaskets(ctx, []string{alice, team}, []types.Permission{types.PermissionRead})
		gt.NoError(t, err).Required()
		gt.Map(t, ids).HasKey(wbA.ID)
		gt.Map(t, ids).HasKey(wbB.ID)
		gt.N(t, len(ids)).Equal(2)

		ids, err = repo.Workbasket().PermittedWorkbaskets(ctx, []string{alice, team},
			[]types.Permission{types.PermissionRead, types.PermissionCustom2})
		gt.NoError(t, err).Required()
		gt.N(t, len(ids)).Equal(1)
		gt.Map(t, ids).HasKey(wbB.ID)

		items, err := repo.Workbasket().AccessItemsWithPermission(ctx, types.PermissionCustom2, []string{team})
		gt.NoError(t, err).Required()
		gt.A(t, items).Length(2)
	})
}

func TestWorkbasketRepository_Memory(t *testing.T) {
	runWorkbasketRepositoryTest(t, newMemoryRepo)
}

func TestWorkbasketRepository_Firestore(t *testing.T) {
	runWorkbasketRepositoryTest(t, firestoreFactory(t))
}

func TestWorkbasketRepository_Postgres(t *testing.T) {
	runWorkbasketRepositoryTest(t, postgresFactory(t))
}
