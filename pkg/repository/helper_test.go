package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/repository/firestore"
	"github.com/secmon-lab/taskbasket/pkg/repository/memory"
	"github.com/secmon-lab/taskbasket/pkg/repository/postgres"
)

type repoFactory func(t *testing.T) interfaces.Repository

func newMemoryRepo(t *testing.T) interfaces.Repository {
	return memory.New()
}

// firestoreFactory skips the test unless a Firestore project is configured
func firestoreFactory(t *testing.T) repoFactory {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}
	return func(t *testing.T) interfaces.Repository {
		repo, err := firestore.New(context.Background(), projectID, os.Getenv("TEST_FIRESTORE_DATABASE_ID"),
			firestore.WithCollectionPrefix("test_"+uuid.NewString()[:8]))
		gt.NoError(t, err).Required()
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	}
}

func postgresFactory(t *testing.T) repoFactory {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	return func(t *testing.T) interfaces.Repository {
		repo, err := postgres.New(context.Background(), dsn)
		gt.NoError(t, err).Required()
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	}
}

// newID returns an id unique across test runs sharing one database
func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// baseTime is truncated to microseconds, the precision every backend keeps
var baseTime = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func at(hours int) *time.Time {
	v := baseTime.Add(time.Duration(hours) * time.Hour)
	return &v
}

func newTask(wb *model.Workbasket, name string) *model.Task {
	return &model.Task{
		ID:             newID("TKI"),
		Created:        baseTime,
		Modified:       baseTime,
		Name:           name,
		Creator:        "creator",
		Workbasket:     wb.Summary(),
		State:          types.TaskStateReady,
		Priority:       1,
		ManualPriority: model.NoManualPriority,
		Classification: model.ClassificationSummary{ID: "CLI-1", Key: "L10000", Category: "EXTERNAL", Priority: 1},
	}
}

func createWorkbasket(t *testing.T, repo interfaces.Repository, key string) *model.Workbasket {
	t.Helper()
	wb := &model.Workbasket{
		ID:       newID("WBI"),
		Key:      key + "-" + uuid.NewString()[:8],
		Domain:   "DOMAIN_A",
		Name:     key,
		Created:  baseTime,
		Modified: baseTime,
	}
	gt.NoError(t, repo.Workbasket().Create(context.Background(), wb)).Required()
	return wb
}

func grant(t *testing.T, repo interfaces.Repository, wb *model.Workbasket, accessID string, perms ...types.Permission) {
	t.Helper()
	gt.NoError(t, repo.Workbasket().PutAccessItem(context.Background(), &model.WorkbasketAccessItem{
		WorkbasketID: wb.ID,
		AccessID:     accessID,
		AccessName:   accessID,
		Permissions:  types.NewPermissionSet(perms...),
	})).Required()
}

func taskIDs(summaries []*model.TaskSummary) []string {
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
	}
	return ids
}
