package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/nociq/nociq/internal/domain"
	"github.com/nociq/nociq/internal/rca"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Repository provides Firestore-backed storage for RCA reports. Documents
// are keyed by ticket id so at most one report exists per ticket.
type Repository struct {
	client     *firestore.Client
	collection string
}

// NewRepository creates a new RCA repository.
func NewRepository(client *firestore.Client, collection string) *Repository {
	return &Repository{client: client, collection: collection}
}

type rcaDoc struct {
	TicketID          string                 `firestore:"ticket_id"`
	Author            string                 `firestore:"author"`
	Summary           string                 `firestore:"summary"`
	Timeline          []domain.TimelineEvent `firestore:"timeline"`
	RootCause         string                 `firestore:"root_cause"`
	Resolution        string                 `firestore:"resolution"`
	CorrectiveActions []string               `firestore:"corrective_actions"`
	CreatedAt         time.Time              `firestore:"created_at"`
	UpdatedAt         time.Time              `firestore:"updated_at"`
}

func toDoc(report *domain.RCAReport) rcaDoc {
	return rcaDoc{
		TicketID:          report.TicketID,
		Author:            report.Author,
		Summary:           report.Summary,
		Timeline:          report.Timeline,
		RootCause:         report.RootCause,
		Resolution:        report.Resolution,
		CorrectiveActions: report.CorrectiveActions,
		CreatedAt:         report.CreatedAt,
		UpdatedAt:         report.UpdatedAt,
	}
}

func (d rcaDoc) toDomain() *domain.RCAReport {
	return &domain.RCAReport{
		TicketID:          d.TicketID,
		Author:            d.Author,
		Summary:           d.Summary,
		Timeline:          d.Timeline,
		RootCause:         d.RootCause,
		Resolution:        d.Resolution,
		CorrectiveActions: d.CorrectiveActions,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func (r *Repository) Create(ctx context.Context, report *domain.RCAReport) error {
	ref := r.client.Collection(r.collection).Doc(report.TicketID)

	if _, err := ref.Create(ctx, toDoc(report)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return rca.ErrRCAExists
		}
		return fmt.Errorf("create rca report: %w", err)
	}

	return nil
}

func (r *Repository) GetByTicket(ctx context.Context, ticketID string) (*domain.RCAReport, error) {
	snap, err := r.client.Collection(r.collection).Doc(ticketID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, rca.ErrRCANotFound
		}
		return nil, fmt.Errorf("get rca report: %w", err)
	}

	var doc rcaDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode rca report: %w", err)
	}

	return doc.toDomain(), nil
}

func (r *Repository) Update(ctx context.Context, report *domain.RCAReport) error {
	ref := r.client.Collection(r.collection).Doc(report.TicketID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return rca.ErrRCANotFound
			}
			return err
		}

		var existing rcaDoc
		if err := snap.DataTo(&existing); err != nil {
			return fmt.Errorf("decode rca report: %w", err)
		}
		report.CreatedAt = existing.CreatedAt

		return tx.Set(ref, toDoc(report))
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return rca.ErrRCANotFound
		}
		return err
	}

	return nil
}
