package config

import "time"

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, postgresDSN, projectID string) *Repository {
	return &Repository{
		backend:     backend,
		postgresDSN: postgresDSN,
		projectID:   projectID,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

// NewCacheForTest creates a Cache config for testing purposes
func NewCacheForTest(addr string, ttl time.Duration) *Cache {
	return &Cache{addr: addr, ttl: ttl}
}

// NewSeedForTest creates a Seed config for testing purposes
func NewSeedForTest(path string) *Seed {
	return &Seed{path: path}
}
