// Package sla derives SLA compliance and penalty payments from resolved
// outage durations and a per-severity threshold table.
package sla

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/nociq/nociq/internal/domain"
)

// SLA statuses.
const (
	StatusMet      = "met"
	StatusBreached = "breached"
)

// ThresholdMinutes maps each severity tier to its maximum resolution
// time in minutes. Stricter severities have smaller thresholds.
var ThresholdMinutes = map[domain.Severity]int{
	domain.SeverityCritical: 60,
	domain.SeverityMajor:    120,
	domain.SeverityMinor:    240,
	domain.SeverityLow:      480,
}

// PenaltyRatePerMinute maps each severity tier to the penalty charged
// per breach minute.
var PenaltyRatePerMinute = map[domain.Severity]float64{
	domain.SeverityCritical: 50,
	domain.SeverityMajor:    25,
	domain.SeverityMinor:    10,
	domain.SeverityLow:      5,
}

const paymentCurrency = "USD"

// effectiveSeverity normalizes an absent or unknown severity to the most
// lenient tier so every resolved outage gets a defined SLA verdict.
func effectiveSeverity(s *domain.Severity) domain.Severity {
	if s == nil || !s.IsValid() {
		return domain.SeverityLow
	}
	return *s
}

// Report is the SLA verdict for one resolved outage.
type Report struct {
	TicketID         string  `json:"ticket_id"`
	Severity         string  `json:"severity"`
	SLAStatus        string  `json:"sla_status"`
	DurationMinutes  int64   `json:"duration_minutes"`
	ThresholdMinutes int     `json:"threshold_minutes"`
	BreachMinutes    int64   `json:"breach_minutes"`
}

// OutageReader is the narrow lifecycle view the SLA engine needs.
type OutageReader interface {
	GetLatest(ctx context.Context, ticketID string) (*domain.OutageVersion, error)
}

// Repository persists penalty payments. CreatePayment must enforce at
// most one payment per ticket, failing with ErrPaymentExists otherwise.
type Repository interface {
	CreatePayment(ctx context.Context, p *domain.Payment) error
	GetPaymentByTicket(ctx context.Context, ticketID string) (*domain.Payment, error)
}

// Service implements the SLA/payment engine.
type Service struct {
	outages OutageReader
	repo    Repository
	now     func() time.Time
}

// NewService creates a new SLA service.
func NewService(outages OutageReader, repo Repository) *Service {
	return &Service{outages: outages, repo: repo, now: time.Now}
}

// Evaluate computes the SLA verdict for the latest version of a ticket.
// Open outages have no verdict and fail with ErrOutageStillOpen.
func (s *Service) Evaluate(ctx context.Context, ticketID string) (*Report, error) {
	latest, err := s.outages.GetLatest(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return evaluateVersion(latest)
}

func evaluateVersion(v *domain.OutageVersion) (*Report, error) {
	if !v.IsResolved() || v.OutageEndTime == nil {
		return nil, ErrOutageStillOpen
	}

	severity := effectiveSeverity(v.Severity)
	threshold := time.Duration(ThresholdMinutes[severity]) * time.Minute
	duration := v.OutageEndTime.Sub(v.OutageStartTime)

	report := &Report{
		TicketID:         v.TicketID,
		Severity:         string(severity),
		DurationMinutes:  int64(duration / time.Minute),
		ThresholdMinutes: ThresholdMinutes[severity],
	}

	// Resolution exactly at the threshold counts as met.
	if duration <= threshold {
		report.SLAStatus = StatusMet
		return report, nil
	}

	report.SLAStatus = StatusBreached
	// Partial minutes past the threshold count as a full breach minute.
	report.BreachMinutes = int64(math.Ceil((duration - threshold).Minutes()))
	return report, nil
}

// penaltyAmount is proportional to breach minutes with a per-severity
// rate; strictly increasing in breach duration, never negative.
func penaltyAmount(severity domain.Severity, breachMinutes int64) float64 {
	if breachMinutes <= 0 {
		return 0
	}
	return float64(breachMinutes) * PenaltyRatePerMinute[severity]
}

// GetPayment returns the payment state for a ticket. A stored payment
// wins; otherwise the state is computed from the SLA verdict: pending
// for a breach, not_applicable when the SLA was met.
func (s *Service) GetPayment(ctx context.Context, ticketID string) (*domain.Payment, error) {
	report, err := s.Evaluate(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.GetPaymentByTicket(ctx, ticketID)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, ErrPaymentNotFound) {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	severity := domain.Severity(report.Severity)
	payment := &domain.Payment{
		TicketID:      ticketID,
		Severity:      severity,
		BreachMinutes: report.BreachMinutes,
		Amount:        penaltyAmount(severity, report.BreachMinutes),
		Currency:      paymentCurrency,
		Status:        domain.PaymentStatusPending,
	}
	if report.SLAStatus == StatusMet {
		payment.Status = domain.PaymentStatusNotApplicable
	}
	return payment, nil
}

// GeneratePayment persists the penalty payment for a breached ticket.
// Idempotent per ticket: a second trigger fails with ErrPaymentExists.
func (s *Service) GeneratePayment(ctx context.Context, ticketID string) (*domain.Payment, error) {
	report, err := s.Evaluate(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if report.SLAStatus == StatusMet {
		return nil, ErrSLANotBreached
	}

	severity := domain.Severity(report.Severity)
	payment := &domain.Payment{
		ID:            uuid.NewString(),
		TicketID:      ticketID,
		Severity:      severity,
		BreachMinutes: report.BreachMinutes,
		Amount:        penaltyAmount(severity, report.BreachMinutes),
		Currency:      paymentCurrency,
		Status:        domain.PaymentStatusGenerated,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// Thresholds returns the severity threshold table in minutes.
func (s *Service) Thresholds() map[string]int {
	out := make(map[string]int, len(ThresholdMinutes))
	for severity, minutes := range ThresholdMinutes {
		out[string(severity)] = minutes
	}
	return out
}
