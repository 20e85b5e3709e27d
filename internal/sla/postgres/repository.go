// Package postgres provides the PostgreSQL implementation of the payment
// repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nociq/nociq/internal/domain"
	"github.com/nociq/nociq/internal/sla"
)

const uniqueViolation = "23505"

// Repository implements sla.Repository using PostgreSQL. The unique
// constraint on ticket_id makes payment generation idempotent.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreatePayment inserts a payment record; a second insert for the same
// ticket fails with sla.ErrPaymentExists.
func (r *Repository) CreatePayment(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, ticket_id, severity, breach_minutes, amount, currency, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.TicketID,
		p.Severity,
		p.BreachMinutes,
		p.Amount,
		p.Currency,
		p.Status,
		p.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sla.ErrPaymentExists
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// GetPaymentByTicket returns the payment record for a ticket.
func (r *Repository) GetPaymentByTicket(ctx context.Context, ticketID string) (*domain.Payment, error) {
	query := `
		SELECT id, ticket_id, severity, breach_minutes, amount, currency, status, created_at
		FROM payments
		WHERE ticket_id = $1
	`
	var p domain.Payment
	err := r.db.QueryRow(ctx, query, ticketID).Scan(
		&p.ID,
		&p.TicketID,
		&p.Severity,
		&p.BreachMinutes,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sla.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}
