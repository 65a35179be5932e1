package config

import (
	"errors"
	"fmt"
)

// ErrNotConfigured matches every MissingKeyError via errors.Is.
var ErrNotConfigured = errors.New("not configured")

// MissingKeyError reports a credential that is required at request time but absent.
type MissingKeyError struct {
	Service string // human label, e.g. "Tavily" or "OpenAI"
	EnvVar  string // e.g. "SEARCH_API_KEY"
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s API key is not configured. Please add %s to your environment or .env.local file.", e.Service, e.EnvVar)
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrNotConfigured
}
