// Package firestore provides the Cloud Firestore implementation of the
// payment repository.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/nociq/nociq/internal/domain"
	"github.com/nociq/nociq/internal/sla"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection is the default document collection name.
const DefaultCollection = "payments"

// Repository implements sla.Repository using Cloud Firestore. The
// document id is the ticket id, so Create fails on a duplicate trigger.
type Repository struct {
	client     *firestore.Client
	collection string
}

// NewRepository creates a new Firestore repository.
func NewRepository(client *firestore.Client, collection string) *Repository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Repository{client: client, collection: collection}
}

type paymentDoc struct {
	ID            string    `firestore:"id"`
	TicketID      string    `firestore:"ticket_id"`
	Severity      string    `firestore:"severity"`
	BreachMinutes int64     `firestore:"breach_minutes"`
	Amount        float64   `firestore:"amount"`
	Currency      string    `firestore:"currency"`
	Status        string    `firestore:"status"`
	CreatedAt     time.Time `firestore:"created_at"`
}

// CreatePayment inserts a payment record; a second insert for the same
// ticket fails with sla.ErrPaymentExists.
func (r *Repository) CreatePayment(ctx context.Context, p *domain.Payment) error {
	docRef := r.client.Collection(r.collection).Doc(p.TicketID)

	_, err := docRef.Create(ctx, paymentDoc{
		ID:            p.ID,
		TicketID:      p.TicketID,
		Severity:      string(p.Severity),
		BreachMinutes: p.BreachMinutes,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt,
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return sla.ErrPaymentExists
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// GetPaymentByTicket returns the payment record for a ticket.
func (r *Repository) GetPaymentByTicket(ctx context.Context, ticketID string) (*domain.Payment, error) {
	snap, err := r.client.Collection(r.collection).Doc(ticketID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, sla.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}

	var doc paymentDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode payment document: %w", err)
	}

	return &domain.Payment{
		ID:            doc.ID,
		TicketID:      doc.TicketID,
		Severity:      domain.Severity(doc.Severity),
		BreachMinutes: doc.BreachMinutes,
		Amount:        doc.Amount,
		Currency:      doc.Currency,
		Status:        domain.PaymentStatus(doc.Status),
		CreatedAt:     doc.CreatedAt,
	}, nil
}
