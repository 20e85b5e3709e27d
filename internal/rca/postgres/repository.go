package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nociq/nociq/internal/domain"
	"github.com/nociq/nociq/internal/rca"
)

// Repository provides PostgreSQL-backed storage for RCA reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new RCA repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, report *domain.RCAReport) error {
	timeline, err := json.Marshal(report.Timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}

	query := `
		INSERT INTO rca_reports (ticket_id, author, summary, timeline, root_cause, resolution, corrective_actions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.pool.Exec(ctx, query,
		report.TicketID, report.Author, report.Summary, timeline,
		report.RootCause, report.Resolution, report.CorrectiveActions,
		report.CreatedAt, report.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return rca.ErrRCAExists
		}
		return fmt.Errorf("insert rca report: %w", err)
	}

	return nil
}

func (r *Repository) GetByTicket(ctx context.Context, ticketID string) (*domain.RCAReport, error) {
	query := `
		SELECT ticket_id, author, summary, timeline, root_cause, resolution, corrective_actions, created_at, updated_at
		FROM rca_reports
		WHERE ticket_id = $1`

	var report domain.RCAReport
	var timeline []byte

	err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&report.TicketID, &report.Author, &report.Summary, &timeline,
		&report.RootCause, &report.Resolution, &report.CorrectiveActions,
		&report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rca.ErrRCANotFound
		}
		return nil, fmt.Errorf("get rca report: %w", err)
	}

	if err := json.Unmarshal(timeline, &report.Timeline); err != nil {
		return nil, fmt.Errorf("unmarshal timeline: %w", err)
	}

	return &report, nil
}

func (r *Repository) Update(ctx context.Context, report *domain.RCAReport) error {
	timeline, err := json.Marshal(report.Timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}

	query := `
		UPDATE rca_reports
		SET author = $2, summary = $3, timeline = $4, root_cause = $5, resolution = $6, corrective_actions = $7, updated_at = $8
		WHERE ticket_id = $1
		RETURNING created_at`

	err = r.pool.QueryRow(ctx, query,
		report.TicketID, report.Author, report.Summary, timeline,
		report.RootCause, report.Resolution, report.CorrectiveActions,
		report.UpdatedAt).Scan(&report.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rca.ErrRCANotFound
		}
		return fmt.Errorf("update rca report: %w", err)
	}

	return nil
}
