package sla

import (
	"context"
	"testing"
	"time"

	"github.com/nociq/nociq/internal/domain"
	"github.com/nociq/nociq/internal/outage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOutageReader struct {
	versions map[string]*domain.OutageVersion
}

func (m *mockOutageReader) GetLatest(_ context.Context, ticketID string) (*domain.OutageVersion, error) {
	v, ok := m.versions[ticketID]
	if !ok {
		return nil, outage.ErrTicketNotFound
	}
	return v, nil
}

type mockPaymentRepo struct {
	payments map[string]*domain.Payment
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[string]*domain.Payment)}
}

func (m *mockPaymentRepo) CreatePayment(_ context.Context, p *domain.Payment) error {
	if _, ok := m.payments[p.TicketID]; ok {
		return ErrPaymentExists
	}
	m.payments[p.TicketID] = p
	return nil
}

func (m *mockPaymentRepo) GetPaymentByTicket(_ context.Context, ticketID string) (*domain.Payment, error) {
	p, ok := m.payments[ticketID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

func resolvedOutage(ticketID string, severity domain.Severity, duration time.Duration) *domain.OutageVersion {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(duration)
	return &domain.OutageVersion{
		TicketID:        ticketID,
		Version:         2,
		Severity:        &severity,
		OutageStartTime: start,
		OutageEndTime:   &end,
		OutageStatus:    domain.OutageStatusResolved,
	}
}

func serviceWith(versions ...*domain.OutageVersion) (*Service, *mockPaymentRepo) {
	reader := &mockOutageReader{versions: make(map[string]*domain.OutageVersion)}
	for _, v := range versions {
		reader.versions[v.TicketID] = v
	}
	repo := newMockPaymentRepo()
	return NewService(reader, repo), repo
}

func TestThresholds(t *testing.T) {
	t.Run("every severity tier has a threshold", func(t *testing.T) {
		for _, sev := range []domain.Severity{
			domain.SeverityCritical, domain.SeverityMajor,
			domain.SeverityMinor, domain.SeverityLow,
		} {
			assert.Greater(t, ThresholdMinutes[sev], 0, string(sev))
		}
	})

	t.Run("stricter severities have smaller thresholds", func(t *testing.T) {
		assert.Less(t, ThresholdMinutes[domain.SeverityCritical], ThresholdMinutes[domain.SeverityMajor])
		assert.Less(t, ThresholdMinutes[domain.SeverityMajor], ThresholdMinutes[domain.SeverityMinor])
		assert.Less(t, ThresholdMinutes[domain.SeverityMinor], ThresholdMinutes[domain.SeverityLow])
	})
}

func TestService_Evaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("resolution within threshold is met", func(t *testing.T) {
		svc, _ := serviceWith(resolvedOutage("T1", domain.SeverityCritical, 30*time.Minute))

		report, err := svc.Evaluate(ctx, "T1")
		require.NoError(t, err)

		assert.Equal(t, StatusMet, report.SLAStatus)
		assert.Equal(t, int64(0), report.BreachMinutes)
		assert.Equal(t, int64(30), report.DurationMinutes)
		assert.Equal(t, 60, report.ThresholdMinutes)
	})

	t.Run("resolution exactly at threshold is met", func(t *testing.T) {
		svc, _ := serviceWith(resolvedOutage("T1", domain.SeverityCritical, 60*time.Minute))

		report, err := svc.Evaluate(ctx, "T1")
		require.NoError(t, err)

		assert.Equal(t, StatusMet, report.SLAStatus)
		assert.Equal(t, int64(0), report.BreachMinutes)
	})

	t.Run("one minute over threshold breaches", func(t *testing.T) {
		svc, _ := serviceWith(resolvedOutage("T1", domain.SeverityCritical, 61*time.Minute))

		report, err := svc.Evaluate(ctx, "T1")
		require.NoError(t, err)

		assert.Equal(t, StatusBreached, report.SLAStatus)
		assert.Equal(t, int64(1), report.BreachMinutes)
	})

	t.Run("partial breach minute rounds up", func(t *testing.T) {
		svc, _ := serviceWith(resolvedOutage("T1", domain.SeverityCritical, 60*time.Minute+30*time.Second))

		report, err := svc.Evaluate(ctx, "T1")
		require.NoError(t, err)

		assert.Equal(t, StatusBreached, report.SLAStatus)
		assert.Equal(t, int64(1), report.BreachMinutes)
	})

	t.Run("open outage has no verdict", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		sev := domain.SeverityCritical
		svc, _ := serviceWith(&domain.OutageVersion{
			TicketID:        "T1",
			Version:         1,
			Severity:        &sev,
			OutageStartTime: start,
			OutageStatus:    domain.OutageStatusUnresolved,
		})

		_, err := svc.Evaluate(ctx, "T1")
		assert.ErrorIs(t, err, ErrOutageStillOpen)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		svc, _ := serviceWith()

		_, err := svc.Evaluate(ctx, "missing")
		assert.ErrorIs(t, err, outage.ErrTicketNotFound)
	})

	t.Run("missing severity falls back to most lenient tier", func(t *testing.T) {
		v := resolvedOutage("T1", domain.SeverityLow, 3*time.Hour)
		v.Severity = nil
		svc, _ := serviceWith(v)

		report, err := svc.Evaluate(ctx, "T1")
		require.NoError(t, err)

		assert.Equal(t, string(domain.SeverityLow), report.Severity)
		assert.Equal(t, StatusMet, report.SLAStatus)
	})
}

func TestService_GeneratePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("breached ticket gets a proportional payment", func(t *testing.T) {
		// 90 minutes against a 60 minute threshold: 30 breach minutes.
		svc, repo := serviceWith(resolvedOutage("T1", domain.SeverityCritical, 90*time.Minute))

		p, err := svc.GeneratePayment(ctx, "T1")
		require.NoError(t, err)

		assert.NotEmpty(t, p.ID)
		assert.Equal(t, int64(30), p.BreachMinutes)
		assert.Equal(t, 30*PenaltyRatePerMinute[domain.SeverityCritical], p.Amount)
		assert.Equal(t, "USD", p.Currency)
		assert.Equal(t, domain.PaymentStatusGenerated, p.Status)
		assert.Len(t, repo.payments, 1)
	})

	t.Run("amount grows with breach duration", func(t *testing.T) {
		svc1, _ := serviceWith(resolvedOutage("T1", domain.SeverityCritical, 90*time.Minute))
		svc2, _ := serviceWith(resolvedOutage("T1", domain.SeverityCritical, 120*time.Minute))

		p1, err := svc1.GeneratePayment(ctx, "T1")
		require.NoError(t, err)
		p2, err := svc2.GeneratePayment(ctx, "T1")
		require.NoError(t, err)

		assert.Greater(t, p2.Amount, p1.Amount)
	})

	t.Run("met sla has nothing to charge", func(t *testing.T) {
		svc, _ := serviceWith(resolvedOutage("T1", domain.SeverityCritical, 30*time.Minute))

		_, err := svc.GeneratePayment(ctx, "T1")
		assert.ErrorIs(t, err, ErrSLANotBreached)
	})

	t.Run("second trigger is rejected", func(t *testing.T) {
		svc, _ := serviceWith(resolvedOutage("T1", domain.SeverityCritical, 90*time.Minute))

		_, err := svc.GeneratePayment(ctx, "T1")
		require.NoError(t, err)

		_, err = svc.GeneratePayment(ctx, "T1")
		assert.ErrorIs(t, err, ErrPaymentExists)
	})

	t.Run("open outage", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		sev := domain.SeverityCritical
		svc, _ := serviceWith(&domain.OutageVersion{
			TicketID:        "T1",
			Version:         1,
			Severity:        &sev,
			OutageStartTime: start,
			OutageStatus:    domain.OutageStatusUnresolved,
		})

		_, err := svc.GeneratePayment(ctx, "T1")
		assert.ErrorIs(t, err, ErrOutageStillOpen)
	})
}

func TestService_GetPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("computed pending payment before generation", func(t *testing.T) {
		svc, _ := serviceWith(resolvedOutage("T1", domain.SeverityMajor, 150*time.Minute))

		p, err := svc.GetPayment(ctx, "T1")
		require.NoError(t, err)

		assert.Equal(t, domain.PaymentStatusPending, p.Status)
		assert.Equal(t, int64(30), p.BreachMinutes)
		assert.Empty(t, p.ID)
	})

	t.Run("not applicable when sla met", func(t *testing.T) {
		svc, _ := serviceWith(resolvedOutage("T1", domain.SeverityMajor, time.Hour))

		p, err := svc.GetPayment(ctx, "T1")
		require.NoError(t, err)

		assert.Equal(t, domain.PaymentStatusNotApplicable, p.Status)
		assert.Equal(t, float64(0), p.Amount)
	})

	t.Run("stored payment wins", func(t *testing.T) {
		svc, _ := serviceWith(resolvedOutage("T1", domain.SeverityMajor, 150*time.Minute))

		generated, err := svc.GeneratePayment(ctx, "T1")
		require.NoError(t, err)

		p, err := svc.GetPayment(ctx, "T1")
		require.NoError(t, err)

		assert.Equal(t, generated.ID, p.ID)
		assert.Equal(t, domain.PaymentStatusGenerated, p.Status)
	})
}
