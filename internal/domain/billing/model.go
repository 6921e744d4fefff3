package billing

import (
	"time"

	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/apperr"
)

type InvoiceStatus string

const (
	StatusUnpaid InvoiceStatus = "Unpaid"
	StatusPaid   InvoiceStatus = "Paid"
)

var (
	ErrNotFound           = apperr.New(apperr.KindNotFound, "Invoice not found")
	ErrUnknownAppointment = apperr.Validation("appointment or patient does not exist")
)

// Invoice bills one completed appointment. Amount is fixed when the invoice
// is created; only Status changes afterwards.
type Invoice struct {
	ID            int64         `json:"id"`
	PatientID     int64         `json:"patient_id"`
	AppointmentID int64         `json:"appointment_id"`
	Amount        float64       `json:"amount"`
	Status        InvoiceStatus `json:"status"`
	BillingDate   time.Time     `json:"billing_date"`
}

// InvoiceView joins an invoice with its patient, appointment and doctor.
// DoctorFee is the doctor's current fee, which may differ from Amount.
type InvoiceView struct {
	Invoice
	PatientName     *string    `json:"patient_name"`
	DoctorName      *string    `json:"doctor_name"`
	AppointmentDate *time.Time `json:"appointment_date"`
	DoctorFee       *float64   `json:"doctor_fee"`
}

// Filter scopes invoice listings the same way appointments are scoped.
type Filter = scheduling.Filter
