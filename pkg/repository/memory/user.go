package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

func newUserRepository() *userRepository {
	return &userRepository{users: make(map[string]*model.User)}
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *user
	r.users[user.ID] = &c
	return nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, exists := r.users[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "user not found", goerr.V("user_id", id))
	}
	c := *u
	return &c, nil
}

func (r *userRepository) ResolveLongName(ctx context.Context, userID string) (string, error) {
	u, err := r.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.DisplayName(), nil
}

func (r *userRepository) ResolveLongNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if u, ok := r.users[id]; ok {
			out[id] = u.DisplayName()
		}
	}
	return out, nil
}
