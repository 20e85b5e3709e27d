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

type kpiReport struct {
	TotalActiveOutages         int            `json:"total_active_outages"`
	AverageMTTRHoursLast30Days *float64       `json:"average_mttr_hours_last_30_days"`
	OutagesBySeverity          map[string]int `json:"outages_by_severity"`
}

func fetchKPIs(t *testing.T) kpiReport {
	t.Helper()

	resp, err := testClient.GET("/analytics/kpis")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report kpiReport
	testutil.DecodeJSON(t, resp, &report)
	return report
}

func TestAnalyticsKPIs(t *testing.T) {
	testClient.SetT(t)

	// Analytics aggregate over the entire store, so assertions are deltas
	// against a baseline taken before this test's own records.
	baseline := fetchKPIs(t)

	start := time.Now().UTC().Add(-4 * time.Hour)

	// One resolved critical outage lasting 2h and one open minor outage.
	resolved := createOutage(t, outagePayload(start, "critical"))
	resolveOutage(t, resolved, start.Add(2*time.Hour))
	createOutage(t, outagePayload(start, "minor"))

	report := fetchKPIs(t)

	assert.Equal(t, baseline.TotalActiveOutages+1, report.TotalActiveOutages)
	assert.Equal(t, baseline.OutagesBySeverity["critical"]+1, report.OutagesBySeverity["critical"])
	assert.Equal(t, baseline.OutagesBySeverity["minor"]+1, report.OutagesBySeverity["minor"])

	// At least one resolved outage now falls inside the 30-day window.
	require.NotNil(t, report.AverageMTTRHoursLast30Days)
	assert.Greater(t, *report.AverageMTTRHoursLast30Days, 0.0)
}
