package usecase

import (
	"time"

	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
)

type UseCases struct {
	repo  interfaces.Repository
	users interfaces.UserDirectory
	now   func() time.Time

	Authorization *AuthorizationUseCase
	Query         *QueryUseCase
	Task          *TaskUseCase
	Workbasket    *WorkbasketUseCase
}

type Option func(*UseCases)

// WithUserDirectory replaces the repository's user table as the source of
// owner long names, e.g. with a cache in front of it
func WithUserDirectory(users interfaces.UserDirectory) Option {
	return func(uc *UseCases) {
		uc.users = users
	}
}

// WithClock overrides the time source used for task timestamps
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:  repo,
		users: repo.User(),
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Authorization = NewAuthorizationUseCase(repo)
	uc.Query = NewQueryUseCase(repo, uc.users)
	uc.Task = NewTaskUseCase(repo, uc.Authorization, uc.users, uc.now)
	uc.Workbasket = NewWorkbasketUseCase(repo, uc.now)

	return uc
}
