//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// mintTestToken signs a bearer token accepted by the test app.
func mintTestToken() string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "noc-operator@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	signed, err := token.SignedString([]byte(testSecretKey))
	if err != nil {
		panic(err)
	}
	return signed
}

// newTicketID returns a ticket id unique across the test run.
func newTicketID() string {
	return "TT-" + uuid.NewString()[:8]
}

// createOutage creates a fresh outage ticket and returns its id.
func createOutage(t *testing.T, payload map[string]interface{}) string {
	t.Helper()

	ticketID, ok := payload["ticket_id"].(string)
	if !ok {
		ticketID = newTicketID()
		payload["ticket_id"] = ticketID
	}

	resp, err := testClient.POST("/outage", payload)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return ticketID
}

// outagePayload builds a minimal valid creation payload.
func outagePayload(start time.Time, severity string) map[string]interface{} {
	return map[string]interface{}{
		"alarm_name":        "LINK_DOWN",
		"site_id":           "SITE-42",
		"severity":          severity,
		"outage_start_time": start.Format(time.RFC3339),
		"outage_status":     "unresolved",
	}
}

// resolveOutage updates a ticket to resolved with the given end time.
func resolveOutage(t *testing.T, ticketID string, end time.Time) {
	t.Helper()

	resp, err := testClient.PUT(fmt.Sprintf("/outages/%s", ticketID), map[string]interface{}{
		"outage_status":   "resolved",
		"outage_end_time": end.Format(time.RFC3339),
	})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
