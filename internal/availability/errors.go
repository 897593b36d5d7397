package availability

import "errors"

var (
	// ErrInvalidInput is returned for a non-positive duration or a zero
	// date.
	ErrInvalidInput = errors.New("availability: invalid input")

	// ErrProviderNotFound is returned when the provider id does not
	// exist. An existing but ineligible provider is not an error; it
	// yields an empty slot set.
	ErrProviderNotFound = errors.New("availability: provider not found")

	// ErrDataSource wraps store failures. An unreachable store is never
	// reported as an empty slot list; that would make an outage look
	// like a fully booked day.
	ErrDataSource = errors.New("availability: schedule store failure")
)
