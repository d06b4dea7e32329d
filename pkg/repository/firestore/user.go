package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// getAllLimit bounds the documents fetched by one GetAll call
const getAllLimit = 500

type userDoc struct {
	ID        string `firestore:"id"`
	FirstName string `firestore:"first_name"`
	LastName  string `firestore:"last_name"`
	LongName  string `firestore:"long_name"`
}

type userRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newUserRepository(client *firestore.Client) *userRepository {
	return &userRepository{client: client}
}

func (r *userRepository) usersCollection() string {
	return collectionName(r.collectionPrefix, "users")
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	doc := userDoc(*user)
	if _, err := r.client.Collection(r.usersCollection()).Doc(user.ID).Set(ctx, &doc); err != nil {
		return model.WrapStorage(err, "failed to put user", goerr.V("user_id", user.ID))
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	snap, err := r.client.Collection(r.usersCollection()).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "user not found", goerr.V("user_id", id))
		}
		return nil, model.WrapStorage(err, "failed to get user", goerr.V("user_id", id))
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, model.WrapStorage(err, "failed to decode user", goerr.V("user_id", id))
	}
	u := model.User(doc)
	return &u, nil
}

func (r *userRepository) ResolveLongName(ctx context.Context, userID string) (string, error) {
	u, err := r.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.DisplayName(), nil
}

func (r *userRepository) ResolveLongNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	for _, chunk := range chunkStrings(userIDs, getAllLimit) {
		refs := make([]*firestore.DocumentRef, len(chunk))
		for i, id := range chunk {
			refs[i] = r.client.Collection(r.usersCollection()).Doc(id)
		}

		snaps, err := r.client.GetAll(ctx, refs)
		if err != nil {
			return nil, model.WrapStorage(err, "failed to get users", goerr.V("count", len(refs)))
		}
		for _, snap := range snaps {
			if !snap.Exists() {
				continue
			}
			var doc userDoc
			if err := snap.DataTo(&doc); err != nil {
				return nil, model.WrapStorage(err, "failed to decode user", goerr.V("doc_id", snap.Ref.ID))
			}
			u := model.User(doc)
			out[u.ID] = u.DisplayName()
		}
	}
	return out, nil
}
