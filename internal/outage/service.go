// Package outage implements the versioned outage record lifecycle: create
// first version, derive latest, apply partial updates as new versions.
package outage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nociq/nociq/internal/domain"
	"github.com/nociq/nociq/internal/pkg/ctxlog"
	"github.com/nociq/nociq/internal/pkg/metrics"
)

// maxAppendAttempts bounds how often an update is retried against the new
// latest version after losing a compare-and-append race.
const maxAppendAttempts = 3

// Geocoder resolves a free-text location into coordinates. A nil result
// with nil error means the location could not be resolved.
type Geocoder interface {
	Lookup(ctx context.Context, query string) (*Coordinates, error)
}

// Coordinates is a geocoding result.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// EventPublisher publishes outage lifecycle events. Implementations are
// best-effort and must never block or fail the calling operation.
type EventPublisher interface {
	PublishOutageEvent(ctx context.Context, event string, v *domain.OutageVersion)
}

// Lifecycle event names.
const (
	EventOutageCreated = "outage.created"
	EventOutageUpdated = "outage.updated"
)

// Service implements the outage lifecycle engine.
type Service struct {
	store     Store
	geocoder  Geocoder
	publisher EventPublisher
	now       func() time.Time
}

// NewService creates a new lifecycle service. geocoder and publisher
// may be nil when the respective collaborator is disabled.
func NewService(store Store, geocoder Geocoder, publisher EventPublisher) *Service {
	return &Service{
		store:     store,
		geocoder:  geocoder,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateInput holds data for creating the first version of an outage.
type CreateInput struct {
	TicketID        string
	AlarmName       string
	SiteID          string
	Severity        *domain.Severity
	Vendor          *string
	Supervisor      *string
	RCA             *string
	LocationName    *string
	Latitude        *float64
	Longitude       *float64
	OutageStartTime time.Time
	OutageEndTime   *time.Time
	OutageStatus    domain.OutageStatus
}

// Create appends version 1 of a new ticket. Coordinates are derived from
// the location name when absent; geocoding failure never blocks creation.
// A ticket that already has a version chain is rejected with ErrTicketExists.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.OutageVersion, error) {
	now := s.now().UTC()

	v := &domain.OutageVersion{
		TicketID:          input.TicketID,
		Version:           1,
		PreviousVersionID: nil,
		AlarmName:         input.AlarmName,
		SiteID:            input.SiteID,
		Severity:          input.Severity,
		Vendor:            input.Vendor,
		Supervisor:        input.Supervisor,
		RCA:               input.RCA,
		LocationName:      input.LocationName,
		Latitude:          input.Latitude,
		Longitude:         input.Longitude,
		OutageStartTime:   input.OutageStartTime,
		OutageEndTime:     input.OutageEndTime,
		OutageStatus:      input.OutageStatus,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if ferr := v.Validate(now); ferr != nil {
		return nil, ferr
	}

	s.resolveCoordinates(ctx, v)

	id, err := s.store.AppendVersion(ctx, v)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			// Version 1 is already taken: the ticket exists.
			return nil, ErrTicketExists
		}
		return nil, fmt.Errorf("append version: %w", err)
	}
	v.DocumentID = id
	metrics.OutageVersionsAppended.WithLabelValues("create").Inc()

	if s.publisher != nil {
		s.publisher.PublishOutageEvent(ctx, EventOutageCreated, v)
	}

	return v, nil
}

// GetLatest returns the current state of a ticket: the record with the
// maximum version in its chain.
func (s *Service) GetLatest(ctx context.Context, ticketID string) (*domain.OutageVersion, error) {
	return s.store.LatestVersion(ctx, ticketID)
}

// GetVersion returns one exact version of a ticket.
func (s *Service) GetVersion(ctx context.Context, ticketID string, version int) (*domain.OutageVersion, error) {
	return s.store.Version(ctx, ticketID, version)
}

// GetHistory returns every version of a ticket, newest first.
func (s *Service) GetHistory(ctx context.Context, ticketID string) ([]*domain.OutageVersion, error) {
	return s.store.VersionsForTicket(ctx, ticketID)
}

// Update supersedes the latest version of a ticket with a new one. The
// new record copies every field of the latest, overlays only the fields
// present in the patch, and is appended with version latest+1 and
// previous_version_id pointing at the superseded record. When a
// concurrent writer wins the append, the update is retried against the
// new latest, so at most one writer produces any given version number.
func (s *Service) Update(ctx context.Context, ticketID string, patch domain.OutagePatch) (*domain.OutageVersion, error) {
	var lastErr error

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		latest, err := s.store.LatestVersion(ctx, ticketID)
		if err != nil {
			return nil, err
		}

		next := *latest
		patch.Apply(&next)

		prevID := latest.DocumentID
		next.DocumentID = ""
		next.PreviousVersionID = &prevID
		next.Version = latest.Version + 1
		next.UpdatedAt = s.now().UTC()

		if ferr := next.Validate(s.now().UTC()); ferr != nil {
			return nil, ferr
		}

		id, err := s.store.AppendVersion(ctx, &next)
		if err != nil {
			if errors.Is(err, ErrVersionConflict) {
				metrics.VersionConflicts.Inc()
				ctxlog.FromContext(ctx).Warn("lost version race, retrying against new latest",
					"ticket_id", ticketID,
					"version", next.Version,
				)
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("append version: %w", err)
		}
		next.DocumentID = id
		metrics.OutageVersionsAppended.WithLabelValues("update").Inc()

		if s.publisher != nil {
			s.publisher.PublishOutageEvent(ctx, EventOutageUpdated, &next)
		}

		return &next, nil
	}

	return nil, lastErr
}

// resolveCoordinates fills latitude/longitude from the location name when
// both are absent. Best-effort: failures are logged and swallowed.
func (s *Service) resolveCoordinates(ctx context.Context, v *domain.OutageVersion) {
	if s.geocoder == nil || v.LocationName == nil || *v.LocationName == "" {
		return
	}
	if v.Latitude != nil && v.Longitude != nil {
		return
	}

	coords, err := s.geocoder.Lookup(ctx, *v.LocationName)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("geocoding failed, continuing without coordinates",
			"ticket_id", v.TicketID,
			"location", *v.LocationName,
			"error", err,
		)
		return
	}
	if coords == nil {
		return
	}

	v.Latitude = &coords.Latitude
	v.Longitude = &coords.Longitude
}
