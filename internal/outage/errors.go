package outage

import "errors"

// Lifecycle errors.
var (
	// ErrTicketNotFound is returned when no version chain exists for a ticket.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrVersionNotFound is returned when the requested version does not exist.
	ErrVersionNotFound = errors.New("outage version not found")
	// ErrTicketExists is returned when creating a ticket that already has a version chain.
	ErrTicketExists = errors.New("ticket already exists")
	// ErrVersionConflict is returned by the store when a concurrent writer
	// already appended the same version number.
	ErrVersionConflict = errors.New("version conflict: a newer version was appended concurrently")
)
