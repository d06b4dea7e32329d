package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig = goerr.New("invalid configuration")
	ErrInvalidSeed   = goerr.New("invalid seed data")
)

// Context keys for error values
const (
	SeedPathKey = "seed_path"
	BackendKey  = "backend"
	IndexKey    = "index"
)
