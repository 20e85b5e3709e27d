//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/nociq/nociq/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slaReport struct {
	TicketID         string `json:"ticket_id"`
	Severity         string `json:"severity"`
	SLAStatus        string `json:"sla_status"`
	DurationMinutes  int64  `json:"duration_minutes"`
	ThresholdMinutes int    `json:"threshold_minutes"`
	BreachMinutes    int64  `json:"breach_minutes"`
}

type payment struct {
	ID            string  `json:"payment_id"`
	TicketID      string  `json:"ticket_id"`
	Severity      string  `json:"severity"`
	BreachMinutes int64   `json:"breach_minutes"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
}

func TestSLAThresholds(t *testing.T) {
	testClient.SetT(t)

	resp, err := testClient.GET("/sla/thresholds")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var thresholds map[string]int
	testutil.DecodeJSON(t, resp, &thresholds)

	require.Contains(t, thresholds, "critical")
	require.Contains(t, thresholds, "low")
	assert.Less(t, thresholds["critical"], thresholds["low"])
}

func TestSLAAndPayments(t *testing.T) {
	testClient.SetT(t)

	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("breach verdict and payment generation", func(t *testing.T) {
		// Critical outage resolved after 90 minutes against a 60 minute
		// threshold.
		ticketID := createOutage(t, outagePayload(start, "critical"))
		resolveOutage(t, ticketID, start.Add(90*time.Minute))

		resp, err := testClient.GET("/outages/" + ticketID + "/sla")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var report slaReport
		testutil.DecodeJSON(t, resp, &report)
		assert.Equal(t, "breached", report.SLAStatus)
		assert.Equal(t, int64(90), report.DurationMinutes)
		assert.Equal(t, 60, report.ThresholdMinutes)
		assert.Equal(t, int64(30), report.BreachMinutes)

		// Payment state before generation is a computed pending record.
		resp, err = testClient.GET("/outages/" + ticketID + "/payment")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var pending payment
		testutil.DecodeJSON(t, resp, &pending)
		assert.Equal(t, "pending", pending.Status)
		assert.Greater(t, pending.Amount, 0.0)

		// Generate the payment.
		resp, err = testClient.POST("/outages/"+ticketID+"/payment/generate", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var generated payment
		testutil.DecodeJSON(t, resp, &generated)
		assert.NotEmpty(t, generated.ID)
		assert.Equal(t, "generated", generated.Status)
		assert.Equal(t, pending.Amount, generated.Amount)
		assert.Equal(t, "USD", generated.Currency)

		// A second trigger is rejected.
		resp, err = testClient.POST("/outages/"+ticketID+"/payment/generate", nil)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		// The stored payment now wins on reads.
		resp, err = testClient.GET("/outages/" + ticketID + "/payment")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var stored payment
		testutil.DecodeJSON(t, resp, &stored)
		assert.Equal(t, generated.ID, stored.ID)
	})

	t.Run("resolution exactly at threshold is met", func(t *testing.T) {
		ticketID := createOutage(t, outagePayload(start, "critical"))
		resolveOutage(t, ticketID, start.Add(60*time.Minute))

		resp, err := testClient.GET("/outages/" + ticketID + "/sla")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var report slaReport
		testutil.DecodeJSON(t, resp, &report)
		assert.Equal(t, "met", report.SLAStatus)
		assert.Equal(t, int64(0), report.BreachMinutes)

		// Nothing to charge for a met SLA.
		resp, err = testClient.POST("/outages/"+ticketID+"/payment/generate", nil)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("open outage has no verdict", func(t *testing.T) {
		ticketID := createOutage(t, outagePayload(start, "critical"))

		resp, err := testClient.GET("/outages/" + ticketID + "/sla")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		resp, err := testClient.GET("/outages/does-not-exist/sla")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
