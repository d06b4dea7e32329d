package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
)

// inQueryLimit is the maximum number of values Firestore accepts in an
// "in" filter
const inQueryLimit = 30

type Firestore struct {
	client         *firestore.Client
	task           *taskRepository
	workbasket     *workbasketRepository
	user           *userRepository
	classification *classificationRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.task.collectionPrefix = prefix
		f.workbasket.collectionPrefix = prefix
		f.user.collectionPrefix = prefix
		f.classification.collectionPrefix = prefix
	}
}

// New connects to Firestore. An empty databaseID selects the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	wbRepo := newWorkbasketRepository(client)
	userRepo := newUserRepository(client)
	classRepo := newClassificationRepository(client)

	f := &Firestore{
		client:         client,
		task:           newTaskRepository(client, wbRepo, userRepo, classRepo),
		workbasket:     wbRepo,
		user:           userRepo,
		classification: classRepo,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Task() interfaces.TaskRepository {
	return f.task
}

func (f *Firestore) Workbasket() interfaces.WorkbasketRepository {
	return f.workbasket
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.user
}

func (f *Firestore) Classification() interfaces.ClassificationRepository {
	return f.classification
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func collectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

func chunkStrings(values []string, size int) [][]string {
	var chunks [][]string
	for len(values) > 0 {
		n := min(size, len(values))
		chunks = append(chunks, values[:n])
		values = values[n:]
	}
	return chunks
}
