// Package postgres provides the PostgreSQL implementation of the outage
// version store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nociq/nociq/internal/domain"
	"github.com/nociq/nociq/internal/outage"
)

const uniqueViolation = "23505"

// Repository implements outage.Store using PostgreSQL. The unique index
// on (ticket_id, version) provides the compare-and-append guarantee: the
// losing writer of a concurrent update gets a unique violation, surfaced
// as outage.ErrVersionConflict.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const versionColumns = `
	id, ticket_id, version, previous_version_id, alarm_name, site_id,
	severity, vendor, supervisor, rca, location_name, latitude, longitude,
	outage_start_time, outage_end_time, outage_status, created_at, updated_at
`

// AppendVersion appends a new immutable version record.
func (r *Repository) AppendVersion(ctx context.Context, v *domain.OutageVersion) (string, error) {
	query := `
		INSERT INTO outage_versions (
			ticket_id, version, previous_version_id, alarm_name, site_id,
			severity, vendor, supervisor, rca, location_name, latitude, longitude,
			outage_start_time, outage_end_time, outage_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`
	var id string
	err := r.db.QueryRow(ctx, query,
		v.TicketID,
		v.Version,
		v.PreviousVersionID,
		v.AlarmName,
		v.SiteID,
		v.Severity,
		v.Vendor,
		v.Supervisor,
		v.RCA,
		v.LocationName,
		v.Latitude,
		v.Longitude,
		v.OutageStartTime,
		v.OutageEndTime,
		v.OutageStatus,
		v.CreatedAt,
		v.UpdatedAt,
	).Scan(&id)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", outage.ErrVersionConflict
		}
		return "", fmt.Errorf("append version: %w", err)
	}
	return id, nil
}

// LatestVersion returns the max-version record for the ticket.
func (r *Repository) LatestVersion(ctx context.Context, ticketID string) (*domain.OutageVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM outage_versions
		WHERE ticket_id = $1
		ORDER BY version DESC
		LIMIT 1
	`
	v, err := r.scanVersion(r.db.QueryRow(ctx, query, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, outage.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get latest version: %w", err)
	}
	return v, nil
}

// Version returns the exact version of a ticket.
func (r *Repository) Version(ctx context.Context, ticketID string, version int) (*domain.OutageVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM outage_versions
		WHERE ticket_id = $1 AND version = $2
	`
	v, err := r.scanVersion(r.db.QueryRow(ctx, query, ticketID, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, outage.ErrVersionNotFound
		}
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// VersionsForTicket returns the full chain of a ticket, newest first.
func (r *Repository) VersionsForTicket(ctx context.Context, ticketID string) ([]*domain.OutageVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM outage_versions
		WHERE ticket_id = $1
		ORDER BY version DESC
	`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list ticket versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.OutageVersion
	for rows.Next() {
		v, err := r.scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ticket versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, outage.ErrTicketNotFound
	}
	return versions, nil
}

// AllVersions returns every record of every ticket.
func (r *Repository) AllVersions(ctx context.Context) ([]*domain.OutageVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM outage_versions`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.OutageVersion
	for rows.Next() {
		v, err := r.scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

func (r *Repository) scanVersion(row pgx.Row) (*domain.OutageVersion, error) {
	var v domain.OutageVersion
	err := row.Scan(
		&v.DocumentID,
		&v.TicketID,
		&v.Version,
		&v.PreviousVersionID,
		&v.AlarmName,
		&v.SiteID,
		&v.Severity,
		&v.Vendor,
		&v.Supervisor,
		&v.RCA,
		&v.LocationName,
		&v.Latitude,
		&v.Longitude,
		&v.OutageStartTime,
		&v.OutageEndTime,
		&v.OutageStatus,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
