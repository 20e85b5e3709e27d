// Package domain contains the core entities shared across modules.
package domain

import (
	"fmt"
	"time"
)

// OutageStatus represents the resolution state of an outage.
type OutageStatus string

// Outage statuses.
const (
	OutageStatusResolved   OutageStatus = "resolved"
	OutageStatusUnresolved OutageStatus = "unresolved"
)

// IsValid checks if the outage status is valid.
func (s OutageStatus) IsValid() bool {
	return s == OutageStatusResolved || s == OutageStatusUnresolved
}

// Severity represents the severity tier of an outage.
type Severity string

// Severity tiers, strictest first.
const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityLow      Severity = "low"
)

// IsValid checks if the severity is valid.
func (s Severity) IsValid() bool {
	return s == SeverityCritical || s == SeverityMajor || s == SeverityMinor || s == SeverityLow
}

// OutageVersion is one immutable entry in a ticket's version chain.
// Versions start at 1 and increase without gaps; records are appended,
// never mutated or deleted. The record with the highest version is the
// current state of the ticket.
type OutageVersion struct {
	DocumentID        string       `json:"document_id,omitempty"`
	TicketID          string       `json:"ticket_id"`
	Version           int          `json:"version"`
	PreviousVersionID *string      `json:"previous_version_id"`
	AlarmName         string       `json:"alarm_name"`
	SiteID            string       `json:"site_id"`
	Severity          *Severity    `json:"severity,omitempty"`
	Vendor            *string      `json:"vendor,omitempty"`
	Supervisor        *string      `json:"supervisor,omitempty"`
	RCA               *string      `json:"rca,omitempty"`
	LocationName      *string      `json:"location_name,omitempty"`
	Latitude          *float64     `json:"latitude,omitempty"`
	Longitude         *float64     `json:"longitude,omitempty"`
	OutageStartTime   time.Time    `json:"outage_start_time"`
	OutageEndTime     *time.Time   `json:"outage_end_time"`
	OutageStatus      OutageStatus `json:"outage_status"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// FieldError reports a validation failure on a single field.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the temporal and enum invariants of the record against
// the given reference time. Comparisons are done in UTC so that inputs
// carrying any offset are handled uniformly. Returns nil when valid.
func (v *OutageVersion) Validate(now time.Time) *FieldError {
	if !v.OutageStatus.IsValid() {
		return &FieldError{
			Field:   "outage_status",
			Message: fmt.Sprintf("must be %q or %q", OutageStatusResolved, OutageStatusUnresolved),
		}
	}

	if v.Severity != nil && !v.Severity.IsValid() {
		return &FieldError{
			Field:   "severity",
			Message: fmt.Sprintf("unknown severity %q", *v.Severity),
		}
	}

	if v.OutageStartTime.UTC().After(now.UTC()) {
		return &FieldError{
			Field:   "outage_start_time",
			Message: "outage start time cannot be in the future",
		}
	}

	if v.OutageEndTime != nil && v.OutageEndTime.UTC().Before(v.OutageStartTime.UTC()) {
		return &FieldError{
			Field:   "outage_end_time",
			Message: "outage end time cannot be before start time",
		}
	}

	return nil
}

// Duration returns the outage duration, or nil while the outage is ongoing.
func (v *OutageVersion) Duration() *time.Duration {
	if v.OutageEndTime == nil {
		return nil
	}
	d := v.OutageEndTime.Sub(v.OutageStartTime)
	return &d
}

// IsResolved checks if this version records a resolved outage.
func (v *OutageVersion) IsResolved() bool {
	return v.OutageStatus == OutageStatusResolved
}

// OutagePatch is a partial update to an outage. A nil field means
// "leave unchanged"; there is no way to clear a field to empty.
type OutagePatch struct {
	AlarmName       *string
	SiteID          *string
	Severity        *Severity
	Vendor          *string
	Supervisor      *string
	RCA             *string
	LocationName    *string
	Latitude        *float64
	Longitude       *float64
	OutageStartTime *time.Time
	OutageEndTime   *time.Time
	OutageStatus    *OutageStatus
}

// Apply overlays the non-nil patch fields onto v.
func (p *OutagePatch) Apply(v *OutageVersion) {
	if p.AlarmName != nil {
		v.AlarmName = *p.AlarmName
	}
	if p.SiteID != nil {
		v.SiteID = *p.SiteID
	}
	if p.Severity != nil {
		v.Severity = p.Severity
	}
	if p.Vendor != nil {
		v.Vendor = p.Vendor
	}
	if p.Supervisor != nil {
		v.Supervisor = p.Supervisor
	}
	if p.RCA != nil {
		v.RCA = p.RCA
	}
	if p.LocationName != nil {
		v.LocationName = p.LocationName
	}
	if p.Latitude != nil {
		v.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		v.Longitude = p.Longitude
	}
	if p.OutageStartTime != nil {
		v.OutageStartTime = *p.OutageStartTime
	}
	if p.OutageEndTime != nil {
		v.OutageEndTime = p.OutageEndTime
	}
	if p.OutageStatus != nil {
		v.OutageStatus = *p.OutageStatus
	}
}
