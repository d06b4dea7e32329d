package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
		"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/domain/model/auth"
	"github.com/secmon-lab/taskbasket/pkg/domain/types"
	"github.com/secmon-lab/taskbasket/pkg/repository/memory"
	"github.com/secmon-lab/taskbasket/pkg/usecase"
)

const testDomain = "DOMAIN_A"

var testNow = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

// fixture is a memory repository with one classification and the use cases
// running on a fixed clock
type fixture struct {
	repo *memory.Memory
	uc   *usecase.UseCases
}

func newFixture(t *testing.T, opts ...usecase.Option) *fixture {
	t.Helper()
	repo := memory.New()
	gt.NoError(t, repo.Classification().Create(context.Background(), &model.Classification{
		ID:       "CLI:1",
		Key:      "L10000",
		Category: "EXTERNAL",
		Domain:   testDomain,
		Name:     "Incoming mail",
		Priority: 2,
	})).Required()

	opts = append([]usecase.Option{usecase.WithClock(func() time.Time { return testNow })}, opts...)
	return &fixture{repo: repo, uc: usecase.New(repo, opts...)}
}

func (f *fixture) workbasket(t *testing.T, key string) *model.Workbasket {
	t.Helper()
	wb := &model.Workbasket{
		ID:     "WBI:" + key,
		Key:    key,
		Domain: testDomain,
		Name:   key,
	}
	gt.NoError(t, f.repo.Workbasket().Create(context.Background(), wb)).Required()
	return wb
}

func (f *fixture) grant(t *testing.T, wb *model.Workbasket, accessID string, perms ...types.Permission) {
	t.Helper()
	gt.NoError(t, f.repo.Workbasket().PutAccessItem(context.Background(), &model.WorkbasketAccessItem{
		WorkbasketID: wb.ID,
		AccessID:     accessID,
		AccessName:   accessID,
		Permissions:  types.NewPermissionSet(perms...),
	})).Required()
}

// createTask creates a READY task through the use case as a caller holding APPEND
func (f *fixture) createTask(t *testing.T, wb *model.Workbasket, name string) *model.Task {
	t.Helper()
	f.grant(t, wb, "creator", types.PermissionRead, types.PermissionAppend)
	task, err := f.uc.Task.CreateTask(as("creator"), usecase.NewTask{
		WorkbasketID:      wb.ID,
		ClassificationKey: "L10000",
		Name:              name,
		PrimaryObjectReference: model.ObjectReference{
			Company: "MyCompany",
			System:  "MySystem",
			Type:    "MyType",
			Value:   name,
		},
	})
	gt.NoError(t, err).Required()
	return task
}

func as(userID string, groups ...string) context.Context {
	return auth.WithCaller(context.Background(), &auth.Caller{UserID: userID, Groups: groups})
}

func asAdmin(userID string) context.Context {
	return auth.WithCaller(context.Background(), &auth.Caller{UserID: userID, Admin: true})
}

func summaryIDs(tasks []*model.TaskSummary) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

// recordingDirectory counts directory calls and the ids asked per call
type recordingDirectory struct {
	mu    sync.Mutex
	calls [][]string
	names map[string]string
}

func (d *recordingDirectory) ResolveLongName(ctx context.Context, userID string) (string, error) {
	if name, ok := d.names[userID]; ok {
		return name, nil
	}
	return "", model.ErrNotFound
}

func (d *recordingDirectory) ResolveLongNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	d.mu.Lock()
	d.calls = append(d.calls, append([]string(nil), userIDs...))
	d.mu.Unlock()
	out := make(map[string]string)
	for _, id := range userIDs {
		if name, ok := d.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}
