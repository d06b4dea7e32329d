package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Task() TaskRepository
	Workbasket() WorkbasketRepository
	User() UserRepository
	Classification() ClassificationRepository

	// Close releases connections held by the backend
	Close() error
}
