package scheduling

import (
	"strings"
	"time"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

var (
	ErrNotFound          = apperr.New(apperr.KindNotFound, "Appointment not found")
	ErrInvalidStatus     = apperr.Validation("status must be one of Pending, Confirmed, Completed, Cancelled")
	ErrInvalidTransition = apperr.New(apperr.KindConflict, "status change not allowed")
	ErrUnknownParty      = apperr.Validation("patient or doctor does not exist")
)

type Appointment struct {
	ID              int64     `json:"id"`
	PatientID       int64     `json:"patient_id"`
	DoctorID        int64     `json:"doctor_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	Status          Status    `json:"status"`
	Reason          string    `json:"reason"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AppointmentView is an appointment joined with the display names of both
// parties. A name is nil when the profile row is gone.
type AppointmentView struct {
	Appointment
	PatientName *string `json:"patient_name"`
	DoctorName  *string `json:"doctor_name"`
}

// Filter scopes a listing. Role "patient" restricts rows to LinkedID; any
// other role sees everything.
type Filter struct {
	Role     string
	LinkedID *int64
}

// PatientID returns the patient the filter is restricted to. ok is false for
// unrestricted filters.
func (f Filter) PatientID() (id int64, ok bool, err error) {
	if !strings.EqualFold(strings.TrimSpace(f.Role), "patient") {
		return 0, false, nil
	}
	if f.LinkedID == nil {
		return 0, false, apperr.Validation("linked_id is required for role patient")
	}
	return *f.LinkedID, true, nil
}

// Transition describes the outcome of a status change. InvoiceID is set when
// the change completed the appointment and billed it.
type Transition struct {
	From      Status `json:"from"`
	To        Status `json:"to"`
	InvoiceID *int64 `json:"invoice_id,omitempty"`
}

func (t Transition) Changed() bool {
	return t.From != t.To
}

// dateLayouts are the accepted appointment date spellings, most specific
// first. Dates without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate parses an appointment date as sent by browser date pickers or
// as RFC 3339.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Validation("appointment_date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validation("appointment_date %q is not a valid date", s)
}
