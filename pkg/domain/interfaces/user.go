package interfaces

import (
	"context"

	"github.com/secmon-lab/taskbasket/pkg/domain/model"
)

// UserDirectory resolves display names of users
type UserDirectory interface {
	// ResolveLongName returns the long name of one user, or model.ErrNotFound
	ResolveLongName(ctx context.Context, userID string) (string, error)

	// ResolveLongNames resolves many users in one round trip. Unknown users
	// are absent from the returned map.
	ResolveLongNames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// UserRepository stores users and serves as the default UserDirectory
type UserRepository interface {
	UserDirectory

	Put(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id string) (*model.User, error)
}
