// Package firestore provides the Cloud Firestore implementation of the
// outage version store.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/nociq/nociq/internal/domain"
	"github.com/nociq/nociq/internal/outage"
	"google.golang.org/api/iterator"
)

// DefaultCollection is the default document collection name.
const DefaultCollection = "outage_versions"

// Repository implements outage.Store using Cloud Firestore. The
// compare-and-append guarantee comes from running the duplicate-version
// check and the document create inside one Firestore transaction.
type Repository struct {
	client     *firestore.Client
	collection string
}

// NewRepository creates a new Firestore repository. An empty collection
// name selects DefaultCollection.
func NewRepository(client *firestore.Client, collection string) *Repository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Repository{client: client, collection: collection}
}

// versionDoc is the stored shape of an outage version.
type versionDoc struct {
	TicketID          string     `firestore:"ticket_id"`
	Version           int        `firestore:"version"`
	PreviousVersionID *string    `firestore:"previous_version_id"`
	AlarmName         string     `firestore:"alarm_name"`
	SiteID            string     `firestore:"site_id"`
	Severity          *string    `firestore:"severity"`
	Vendor            *string    `firestore:"vendor"`
	Supervisor        *string    `firestore:"supervisor"`
	RCA               *string    `firestore:"rca"`
	LocationName      *string    `firestore:"location_name"`
	Latitude          *float64   `firestore:"latitude"`
	Longitude         *float64   `firestore:"longitude"`
	OutageStartTime   time.Time  `firestore:"outage_start_time"`
	OutageEndTime     *time.Time `firestore:"outage_end_time"`
	OutageStatus      string     `firestore:"outage_status"`
	CreatedAt         time.Time  `firestore:"created_at"`
	UpdatedAt         time.Time  `firestore:"updated_at"`
}

func toDoc(v *domain.OutageVersion) *versionDoc {
	var severity *string
	if v.Severity != nil {
		s := string(*v.Severity)
		severity = &s
	}
	return &versionDoc{
		TicketID:          v.TicketID,
		Version:           v.Version,
		PreviousVersionID: v.PreviousVersionID,
		AlarmName:         v.AlarmName,
		SiteID:            v.SiteID,
		Severity:          severity,
		Vendor:            v.Vendor,
		Supervisor:        v.Supervisor,
		RCA:               v.RCA,
		LocationName:      v.LocationName,
		Latitude:          v.Latitude,
		Longitude:         v.Longitude,
		OutageStartTime:   v.OutageStartTime,
		OutageEndTime:     v.OutageEndTime,
		OutageStatus:      string(v.OutageStatus),
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
}

func (d *versionDoc) toDomain(documentID string) *domain.OutageVersion {
	var severity *domain.Severity
	if d.Severity != nil {
		s := domain.Severity(*d.Severity)
		severity = &s
	}
	return &domain.OutageVersion{
		DocumentID:        documentID,
		TicketID:          d.TicketID,
		Version:           d.Version,
		PreviousVersionID: d.PreviousVersionID,
		AlarmName:         d.AlarmName,
		SiteID:            d.SiteID,
		Severity:          severity,
		Vendor:            d.Vendor,
		Supervisor:        d.Supervisor,
		RCA:               d.RCA,
		LocationName:      d.LocationName,
		Latitude:          d.Latitude,
		Longitude:         d.Longitude,
		OutageStartTime:   d.OutageStartTime,
		OutageEndTime:     d.OutageEndTime,
		OutageStatus:      domain.OutageStatus(d.OutageStatus),
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// AppendVersion appends a new immutable version record. The duplicate
// check and the write run in one transaction; a concurrent writer that
// already took the version number causes outage.ErrVersionConflict.
func (r *Repository) AppendVersion(ctx context.Context, v *domain.OutageVersion) (string, error) {
	col := r.client.Collection(r.collection)
	docRef := col.NewDoc()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		q := col.
			Where("ticket_id", "==", v.TicketID).
			Where("version", "==", v.Version).
			Limit(1)

		iter := tx.Documents(q)
		defer iter.Stop()

		_, err := iter.Next()
		if err == nil {
			return outage.ErrVersionConflict
		}
		if err != iterator.Done {
			return fmt.Errorf("check existing version: %w", err)
		}

		return tx.Create(docRef, toDoc(v))
	})
	if err != nil {
		return "", err
	}

	return docRef.ID, nil
}

// LatestVersion returns the max-version record for the ticket.
func (r *Repository) LatestVersion(ctx context.Context, ticketID string) (*domain.OutageVersion, error) {
	q := r.client.Collection(r.collection).
		Where("ticket_id", "==", ticketID).
		OrderBy("version", firestore.Desc).
		Limit(1)

	iter := q.Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, outage.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest version: %w", err)
	}

	return r.decode(snap)
}

// Version returns the exact version of a ticket.
func (r *Repository) Version(ctx context.Context, ticketID string, version int) (*domain.OutageVersion, error) {
	q := r.client.Collection(r.collection).
		Where("ticket_id", "==", ticketID).
		Where("version", "==", version).
		Limit(1)

	iter := q.Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, outage.ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}

	return r.decode(snap)
}

// VersionsForTicket returns the full chain of a ticket, newest first.
func (r *Repository) VersionsForTicket(ctx context.Context, ticketID string) ([]*domain.OutageVersion, error) {
	q := r.client.Collection(r.collection).
		Where("ticket_id", "==", ticketID).
		OrderBy("version", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var versions []*domain.OutageVersion
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list ticket versions: %w", err)
		}
		v, err := r.decode(snap)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return nil, outage.ErrTicketNotFound
	}
	return versions, nil
}

// AllVersions returns every record of every ticket.
func (r *Repository) AllVersions(ctx context.Context) ([]*domain.OutageVersion, error) {
	iter := r.client.Collection(r.collection).Documents(ctx)
	defer iter.Stop()

	var versions []*domain.OutageVersion
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list versions: %w", err)
		}
		v, err := r.decode(snap)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func (r *Repository) decode(snap *firestore.DocumentSnapshot) (*domain.OutageVersion, error) {
	var doc versionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode version document: %w", err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}
