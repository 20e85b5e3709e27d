package domain

import "time"

// PaymentStatus represents the state of a penalty payment.
type PaymentStatus string

// Payment statuses.
const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusGenerated     PaymentStatus = "generated"
	PaymentStatusNotApplicable PaymentStatus = "not_applicable"
)

// Payment is a penalty record derived from an SLA breach. At most one
// payment exists per ticket.
type Payment struct {
	ID            string        `json:"payment_id"`
	TicketID      string        `json:"ticket_id"`
	Severity      Severity      `json:"severity"`
	BreachMinutes int64         `json:"breach_minutes"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}
