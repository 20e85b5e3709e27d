package domain

import "time"

// TimelineEvent is a single entry in an RCA timeline.
type TimelineEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// RCAReport is the root cause analysis for one ticket. Unlike outage
// records, RCA reports are not versioned: one mutable record per ticket.
type RCAReport struct {
	TicketID          string          `json:"ticket_id"`
	Author            string          `json:"author"`
	Summary           string          `json:"summary"`
	Timeline          []TimelineEvent `json:"timeline"`
	RootCause         string          `json:"root_cause"`
	Resolution        string          `json:"resolution"`
	CorrectiveActions []string        `json:"corrective_actions"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
