package memory

import (
	"github.com/secmon-lab/taskbasket/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	task           *taskRepository
	workbasket     *workbasketRepository
	user           *userRepository
	classification *classificationRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	wbRepo := newWorkbasketRepository()
	userRepo := newUserRepository()
	classRepo := newClassificationRepository()

	return &Memory{
		task:           newTaskRepository(wbRepo, userRepo, classRepo),
		workbasket:     wbRepo,
		user:           userRepo,
		classification: classRepo,
	}
}

func (m *Memory) Task() interfaces.TaskRepository {
	return m.task
}

func (m *Memory) Workbasket() interfaces.WorkbasketRepository {
	return m.workbasket
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

func (m *Memory) Classification() interfaces.ClassificationRepository {
	return m.classification
}

func (m *Memory) Close() error {
	return nil
}
