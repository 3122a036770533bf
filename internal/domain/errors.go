package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("invalid input")
	ErrNoAgentsConfigured = errors.New("no agents configured")
	ErrProviderFailure    = errors.New("provider failure")
	ErrPersistence        = errors.New("persistence failure")
	ErrCancelled          = errors.New("generation cancelled")
)
