package schedule

import "errors"

var (
	// ErrProviderNotFound is returned when a provider id does not exist.
	ErrProviderNotFound = errors.New("schedule: provider not found")
)
