package scheduling

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/db"
)

// FeeLookup resolves a doctor's current fee. found is false for unknown
// doctors.
type FeeLookup interface {
	DoctorFee(ctx context.Context, doctorID int64) (fee float64, found bool, err error)
}

// InvoiceGenerator bills a completed appointment. It must be idempotent per
// appointment and join the transaction carried by ctx.
type InvoiceGenerator interface {
	GenerateInvoice(ctx context.Context, patientID, appointmentID int64, amount float64) (int64, error)
}

type Service struct {
	repo     Repository
	tx       db.Transactor
	fees     FeeLookup
	invoices InvoiceGenerator
	logger   zerolog.Logger
}

func NewService(repo Repository, tx db.Transactor, fees FeeLookup, invoices InvoiceGenerator, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		fees:     fees,
		invoices: invoices,
		logger:   logger.With().Str("component", "scheduling").Logger(),
	}
}

type CreateRequest struct {
	PatientID       int64
	DoctorID        int64
	AppointmentDate time.Time
	Reason          string
}

// CreateAppointment books a new appointment in state Pending.
func (s *Service) CreateAppointment(ctx context.Context, req CreateRequest) (int64, error) {
	if req.PatientID <= 0 || req.DoctorID <= 0 {
		return 0, apperr.Validation("patient_id and doctor_id are required")
	}
	if req.AppointmentDate.IsZero() {
		return 0, apperr.Validation("appointment_date is required")
	}

	a := &Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		AppointmentDate: req.AppointmentDate.UTC(),
		Status:          StatusPending,
		Reason:          req.Reason,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return 0, apperr.Store("create appointment", err)
	}
	s.logger.Info().
		Int64("appointment_id", a.ID).
		Int64("patient_id", a.PatientID).
		Int64("doctor_id", a.DoctorID).
		Msg("appointment created")
	return a.ID, nil
}

// RescheduleAppointment replaces the date and reason. Status is untouched.
func (s *Service) RescheduleAppointment(ctx context.Context, id int64, date time.Time, reason string) error {
	if date.IsZero() {
		return apperr.Validation("appointment_date is required")
	}
	if err := s.repo.Reschedule(ctx, id, date.UTC(), reason); err != nil {
		return apperr.Store("reschedule appointment", err)
	}
	return nil
}

func (s *Service) ListAppointments(ctx context.Context, f Filter) ([]AppointmentView, error) {
	patientID, restricted, err := f.PatientID()
	if err != nil {
		return nil, err
	}
	var scope *int64
	if restricted {
		scope = &patientID
	}
	list, err := s.repo.List(ctx, scope)
	return list, apperr.Store("list appointments", err)
}

func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Store("get appointment", err)
	}
	return a, nil
}

// SetStatus moves an appointment to the named status. The prior status is
// read and replaced in one transaction, so of several concurrent requests
// completing the same appointment exactly one bills it.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) (*Transition, error) {
	next, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	var t Transition
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		t = Transition{From: a.Status, To: next}
		if !t.Changed() {
			return nil
		}
		if !a.Status.CanTransition(next) {
			return ErrInvalidTransition
		}
		if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
			return err
		}
		if next != StatusCompleted {
			return nil
		}

		invoiceID, err := s.bill(ctx, a)
		if err != nil {
			return err
		}
		t.InvoiceID = &invoiceID
		return nil
	})
	if err != nil {
		return nil, apperr.Store("set appointment status", err)
	}

	if t.Changed() {
		ev := s.logger.Info().
			Int64("appointment_id", id).
			Str("from", string(t.From)).
			Str("to", string(t.To))
		if t.InvoiceID != nil {
			ev = ev.Int64("invoice_id", *t.InvoiceID)
		}
		ev.Msg("appointment status changed")
	}
	return &t, nil
}

// bill charges the doctor's fee at this moment, or the default fee when the
// doctor no longer exists.
func (s *Service) bill(ctx context.Context, a *Appointment) (int64, error) {
	fee, found, err := s.fees.DoctorFee(ctx, a.DoctorID)
	if err != nil {
		return 0, err
	}
	if !found {
		fee = identity.DefaultDoctorFee
	}
	return s.invoices.GenerateInvoice(ctx, a.PatientID, a.ID, fee)
}
