package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
)

func runDirectoryRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("users resolve to display names", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		withLongName := newID("user")
		withParts := newID("user")

		gt.NoError(t, repo.User().Put(ctx, &model.User{ID: withLongName, LongName: "Doe, Jane - (jdoe)"})).Required()
		gt.NoError(t, repo.User().Put(ctx, &model.User{ID: withParts, FirstName: "Max", LastName: "Mustermann"})).Required()

		name, err := repo.User().ResolveLongName(ctx, withParts)
		gt.NoError(t, err).Required()
		gt.V(t, name).Equal("Mustermann, Max")

		names, err := repo.User().ResolveLongNames(ctx, []string{withLongName, withParts, newID("unknown")})
		gt.NoError(t, err).Required()
		gt.N(t, len(names)).Equal(2)
		gt.V(t, names[withLongName]).Equal("Doe, Jane - (jdoe)")

		_, err = repo.User().Get(ctx, newID("unknown"))
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("classifications", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		c := &model.Classification{
			ID:       newID("CLI"),
			Key:      newID("T2100"),
			Category: "MANUAL",
			Type:     "TASK",
			Domain:   "DOMAIN_A",
			Name:     "Review",
			Priority: 3,
		}
		c.Customs[0] = "c1"
		gt.NoError(t, repo.Classification().Create(ctx, c)).Required()
		gt.Error(t, repo.Classification().Create(ctx, c)).Is(model.ErrInvalidArgument)

		got, err := repo.Classification().Get(ctx, c.ID)
		gt.NoError(t, err).Required()
		gt.V(t, *got).Equal(*c)

		byKey, err := repo.Classification().GetByKey(ctx, c.Key, c.Domain)
		gt.NoError(t, err).Required()
		gt.V(t, byKey.ID).Equal(c.ID)
	})
}

func TestDirectoryRepository_Memory(t *testing.T) {
	runDirectoryRepositoryTest(t, newMemoryRepo)
}

func TestDirectoryRepository_Firestore(t *testing.T) {
	runDirectoryRepositoryTest(t, firestoreFactory(t))
}

func TestDirectoryRepository_Postgres(t *testing.T) {
	runDirectoryRepositoryTest(t, postgresFactory(t))
}
