package outage

import (
	"context"

	"github.com/nociq/nociq/internal/domain"
)

// Store is the narrow interface over the version document collection.
// Implementations must enforce uniqueness of (ticket_id, version): a
// second append of an already-taken version number fails with
// ErrVersionConflict. This compare-and-append contract is what closes
// the read-then-append race between concurrent updates.
type Store interface {
	// AppendVersion durably appends a new immutable version and returns
	// its storage-assigned document id.
	AppendVersion(ctx context.Context, v *domain.OutageVersion) (string, error)

	// LatestVersion returns the record with the maximum version for the
	// ticket, or ErrTicketNotFound when the ticket has no versions.
	LatestVersion(ctx context.Context, ticketID string) (*domain.OutageVersion, error)

	// Version returns the exact version of a ticket, ErrVersionNotFound
	// when that version is absent.
	Version(ctx context.Context, ticketID string, version int) (*domain.OutageVersion, error)

	// VersionsForTicket returns the full chain of a ticket, newest
	// version first, or ErrTicketNotFound when the ticket has no versions.
	VersionsForTicket(ctx context.Context, ticketID string) ([]*domain.OutageVersion, error)

	// AllVersions returns every record of every ticket. No ordering is
	// guaranteed; callers must not depend on the fetch order.
	AllVersions(ctx context.Context) ([]*domain.OutageVersion, error)
}
