package usecase_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/usecase"
)

func TestWorkbasketUseCase(t *testing.T) {
	f := newFixture(t)

	created, err := f.uc.Workbasket.CreateWorkbasket(asAdmin("admin"), &model.Workbasket{
		Key:    "GPK",
		Domain: testDomain,
		Name:   "General",
	})
	gt.NoError(t, err).Required()
	gt.B(t, strings.HasPrefix(created.ID, usecase.WorkbasketIDPrefix)).True()
	gt.V(t, created.Created).Equal(testNow)

	t.Run("lookup by id and key", func(t *testing.T) {
		got, err := f.uc.Workbasket.GetWorkbasket(as("u1"), created.ID)
		gt.NoError(t, err).Required()
		gt.V(t, got.Key).Equal("GPK")

		byKey, err := f.uc.Workbasket.GetWorkbasketByKey(as("u1"), "GPK", testDomain)
		gt.NoError(t, err).Required()
		gt.V(t, byKey.ID).Equal(created.ID)
	})

	t.Run("changes need the administrative role", func(t *testing.T) {
		_, err := f.uc.Workbasket.CreateWorkbasket(as("u1"), &model.Workbasket{Key: "X", Domain: testDomain})
		gt.Error(t, err).Is(model.ErrNotAuthorized)
		err = f.uc.Workbasket.SetAccessItem(as("u1"), created.ID, "u1", "User 1", types.PermissionRead)
		gt.Error(t, err).Is(model.ErrNotAuthorized)
	})

	t.Run("missing key is invalid", func(t *testing.T) {
		_, err := f.uc.Workbasket.CreateWorkbasket(asAdmin("admin"), &model.Workbasket{Domain: testDomain})
		gt.Error(t, err).Is(model.ErrInvalidArgument)
	})

	t.Run("access items replace previous permissions", func(t *testing.T) {
		gt.NoError(t, f.uc.Workbasket.SetAccessItem(asAdmin("admin"), created.ID, "u1", "User 1",
			types.PermissionRead, types.PermissionAppend)).Required()
		gt.NoError(t, f.uc.Workbasket.SetAccessItem(asAdmin("admin"), created.ID, "u1", "User 1",
			types.PermissionRead)).Required()

		perms, err := f.repo.Workbasket().PermissionsFor(t.Context(), []string{"u1"}, created.ID)
		gt.NoError(t, err).Required()
		gt.B(t, perms.Has(types.PermissionRead)).True()
		gt.B(t, perms.Has(types.PermissionAppend)).False()

		err = f.uc.Workbasket.SetAccessItem(asAdmin("admin"), created.ID, "u1", "User 1", types.Permission("FLY"))
		gt.Error(t, err).Is(model.ErrInvalidArgument)
	})
}

func TestAuthorizationUseCase_AccessIDsHavePermission(t *testing.T) {
	f := newFixture(t)
	wb1 := f.workbasket(t, "WB1")
	wb2 := f.workbasket(t, "WB2")
	f.grant(t, wb1, "team", types.PermissionRead, types.PermissionTransfer)
	f.grant(t, wb2, "team", types.PermissionRead)
	f.grant(t, wb2, "u1", types.PermissionTransfer)

	t.Run("lists items holding the permission", func(t *testing.T) {
		items, err := f.uc.Authorization.AccessIDsHavePermission(asAdmin("admin"), types.PermissionTransfer, []string{"team", "u1"})
		gt.NoError(t, err).Required()
		gt.A(t, items).Length(2)
		gt.V(t, items[0].WorkbasketID).Equal(wb1.ID)
		gt.V(t, items[1].AccessID).Equal("u1")
	})

	t.Run("administrators only", func(t *testing.T) {
		_, err := f.uc.Authorization.AccessIDsHavePermission(as("u1"), types.PermissionRead, []string{"u1"})
		gt.Error(t, err).Is(model.ErrNotAuthorized)
	})

	t.Run("arguments are required", func(t *testing.T) {
		_, err := f.uc.Authorization.AccessIDsHavePermission(asAdmin("admin"), "", []string{"u1"})
		gt.Error(t, err).Is(model.ErrInvalidArgument)
		_, err = f.uc.Authorization.AccessIDsHavePermission(asAdmin("admin"), types.PermissionRead, nil)
		gt.Error(t, err).Is(model.ErrInvalidArgument)
	})
}
