// Package appointments implements the appointment scheduling engine:
// business-hours validation, conflict resolution, and persistence through
// an insert-unique store.
package appointments

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bizlink-ai/concierge-platform/internal/scheduling"
)

// Request is an immutable appointment request from the caller.
type Request struct {
	OrgID     string   `json:"org_id"`
	SessionID string   `json:"session_id,omitempty"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Services  []string `json:"services"`
	Date      string   `json:"date"`     // YYYY-MM-DD
	Time      string   `json:"time"`     // HH:MM, 24h
	Timezone  string   `json:"timezone"` // IANA name
	Notes     string   `json:"notes,omitempty"`
}

// Validate checks required fields and formats. Scheduling rules are checked
// separately by the service.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("appointments: name is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("appointments: invalid email %q", r.Email)
	}
	if strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("appointments: phone is required")
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("appointments: invalid date %q, want YYYY-MM-DD", r.Date)
	}
	if _, err := scheduling.ParseClock(r.Time); err != nil {
		return fmt.Errorf("appointments: invalid time %q, want HH:MM", r.Time)
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return fmt.Errorf("appointments: unknown timezone %q", r.Timezone)
	}
	return nil
}

// BookedSlot is a persisted, accepted appointment.
type BookedSlot struct {
	ID        uuid.UUID
	OrgID     string
	Name      string
	Email     string
	Phone     string
	Services  []string
	Date      string
	Minute    int
	SlotUTC   time.Time
	Timezone  string
	Notes     string
	CreatedAt time.Time
}

// OutcomeStatus classifies the result of a booking attempt.
type OutcomeStatus string

const (
	OutcomeAccepted         OutcomeStatus = "accepted"
	OutcomeRejectedInvalid  OutcomeStatus = "rejected_invalid"
	OutcomeRejectedHours    OutcomeStatus = "rejected_hours"
	OutcomeRejectedConflict OutcomeStatus = "rejected_conflict"
)

// Outcome is the structured result of a booking attempt. Hours and conflict
// rejections are expected, user-facing outcomes, not errors; only store
// failures surface as errors from Book.
type Outcome struct {
	Status        OutcomeStatus
	AppointmentID uuid.UUID
	Reason        string           // for rejected_invalid
	Schedule      string           // declared weekly hours, for rejected_hours
	Suggested     *scheduling.Slot // nearest alternative, for rejected_conflict; nil = no availability
}
