package outage

import (
	"fmt"
	"strings"
	"time"

	"github.com/nociq/nociq/internal/domain"
)

// Placeholders used in the rendered summary.
const (
	summaryAbsent  = "N/A"
	summaryOngoing = "Ongoing"
)

// RenderSummary renders the latest version of a ticket as a fixed-order
// plain-text block. Pure presentation: no side effects.
func RenderSummary(v *domain.OutageVersion) string {
	var b strings.Builder

	line := func(label, value string) {
		fmt.Fprintf(&b, "%-12s%s\n", label+":", value)
	}

	line("Ticket", v.TicketID)
	line("Version", fmt.Sprintf("%d", v.Version))
	line("Alarm", v.AlarmName)
	line("Site", v.SiteID)
	line("Vendor", orAbsent(v.Vendor))
	line("Supervisor", orAbsent(v.Supervisor))
	line("Status", string(v.OutageStatus))
	line("Start", v.OutageStartTime.UTC().Format(time.RFC3339))

	if v.OutageEndTime != nil {
		line("End", v.OutageEndTime.UTC().Format(time.RFC3339))
	} else {
		line("End", summaryOngoing)
	}

	if d := v.Duration(); d != nil {
		line("Duration", formatDuration(*d))
	} else {
		line("Duration", summaryOngoing)
	}

	line("RCA", orAbsent(v.RCA))

	return b.String()
}

func orAbsent(s *string) string {
	if s == nil || *s == "" {
		return summaryAbsent
	}
	return *s
}

// formatDuration renders a duration as whole hours and minutes.
func formatDuration(d time.Duration) string {
	minutes := int64(d / time.Minute)
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
