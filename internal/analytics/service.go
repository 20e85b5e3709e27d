// Package analytics computes fleet-wide aggregates over the latest
// version per ticket.
package analytics

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nociq/nociq/internal/domain"
)

// mttrWindow bounds the rolling MTTR computation.
const mttrWindow = 30 * 24 * time.Hour

// severityUnknown is the histogram bucket for records without a severity.
const severityUnknown = "unknown"

// VersionReader is the narrow store view the analytics engine needs.
type VersionReader interface {
	AllVersions(ctx context.Context) ([]*domain.OutageVersion, error)
}

// KPIReport is the fleet-wide aggregate view.
type KPIReport struct {
	TotalActiveOutages         int            `json:"total_active_outages"`
	AverageMTTRHoursLast30Days *float64       `json:"average_mttr_hours_last_30_days"`
	OutagesBySeverity          map[string]int `json:"outages_by_severity"`
}

// Service implements the analytics engine.
type Service struct {
	store VersionReader
	now   func() time.Time
}

// NewService creates a new analytics service.
func NewService(store VersionReader) *Service {
	return &Service{store: store, now: time.Now}
}

// KPIs fetches every version and folds to the latest per ticket before
// aggregating. The fold is a single pass with a running best-per-key
// table, so the result is identical regardless of the order the store
// returns records in.
func (s *Service) KPIs(ctx context.Context) (*KPIReport, error) {
	versions, err := s.store.AllVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch versions: %w", err)
	}

	latest := latestPerTicket(versions)

	report := &KPIReport{
		OutagesBySeverity: make(map[string]int),
	}

	windowStart := s.now().UTC().Add(-mttrWindow)
	var mttrSum time.Duration
	var mttrCount int

	for _, v := range latest {
		if !v.IsResolved() {
			report.TotalActiveOutages++
		}

		report.OutagesBySeverity[severityBucket(v.Severity)]++

		if v.IsResolved() && v.OutageEndTime != nil && !v.OutageEndTime.UTC().Before(windowStart) {
			d := v.OutageEndTime.Sub(v.OutageStartTime)
			// Negative durations are malformed data; skip them.
			if d >= 0 {
				mttrSum += d
				mttrCount++
			}
		}
	}

	if mttrCount > 0 {
		hours := mttrSum.Hours() / float64(mttrCount)
		rounded := math.Round(hours*100) / 100
		report.AverageMTTRHoursLast30Days = &rounded
	}

	return report, nil
}

// latestPerTicket keeps the highest-version record seen for each ticket.
// Single pass; no ordering assumption on the input.
func latestPerTicket(versions []*domain.OutageVersion) map[string]*domain.OutageVersion {
	latest := make(map[string]*domain.OutageVersion)
	for _, v := range versions {
		if best, ok := latest[v.TicketID]; !ok || v.Version > best.Version {
			latest[v.TicketID] = v
		}
	}
	return latest
}

func severityBucket(s *domain.Severity) string {
	if s == nil || *s == "" {
		return severityUnknown
	}
	return strings.ToLower(string(*s))
}
