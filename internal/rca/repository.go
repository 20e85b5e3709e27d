// Package rca stores root cause analysis reports: one mutable record per
// ticket, no versioning.
package rca

import (
	"context"

	"github.com/nociq/nociq/internal/domain"
)

// Repository defines the interface for RCA report storage.
type Repository interface {
	// Create inserts a report; ErrRCAExists when the ticket already has one.
	Create(ctx context.Context, report *domain.RCAReport) error
	// GetByTicket returns the report; ErrRCANotFound when absent.
	GetByTicket(ctx context.Context, ticketID string) (*domain.RCAReport, error)
	// Update replaces the report; ErrRCANotFound when absent.
	Update(ctx context.Context, report *domain.RCAReport) error
}
