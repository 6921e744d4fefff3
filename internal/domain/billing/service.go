package billing

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/db"
)

type Service struct {
	repo   Repository
	tx     db.Transactor
	logger zerolog.Logger
}

func NewService(repo Repository, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		tx:     tx,
		logger: logger.With().Str("component", "billing").Logger(),
	}
}

// GenerateInvoice bills an appointment for amount. An appointment is billed
// at most once: a repeated call returns the id of the existing invoice and
// leaves its amount alone. It joins the caller's transaction when there is
// one.
func (s *Service) GenerateInvoice(ctx context.Context, patientID, appointmentID int64, amount float64) (int64, error) {
	if patientID <= 0 || appointmentID <= 0 {
		return 0, apperr.Validation("patient_id and appointment_id are required")
	}
	if amount < 0 {
		return 0, apperr.Validation("amount must not be negative")
	}

	inv := &Invoice{
		PatientID:     patientID,
		AppointmentID: appointmentID,
		Amount:        amount,
		Status:        StatusUnpaid,
	}
	var created bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.repo.CreateOnce(ctx, inv)
		return err
	})
	if err != nil {
		return 0, apperr.Store("generate invoice", err)
	}

	if created {
		s.logger.Info().
			Int64("invoice_id", inv.ID).
			Int64("appointment_id", appointmentID).
			Float64("amount", inv.Amount).
			Msg("invoice generated")
	}
	return inv.ID, nil
}

func (s *Service) ListInvoices(ctx context.Context, f Filter) ([]InvoiceView, error) {
	patientID, restricted, err := f.PatientID()
	if err != nil {
		return nil, err
	}
	var scope *int64
	if restricted {
		scope = &patientID
	}
	list, err := s.repo.List(ctx, scope)
	return list, apperr.Store("list invoices", err)
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.Store("get invoice", err)
	}
	return inv, nil
}

// MarkPaid settles an invoice. Paying a paid invoice changes nothing.
func (s *Service) MarkPaid(ctx context.Context, id int64) error {
	prev, err := s.repo.SetStatus(ctx, id, StatusPaid)
	if err != nil {
		return apperr.Store("mark invoice paid", err)
	}
	if prev != StatusPaid {
		s.logger.Info().Int64("invoice_id", id).Msg("invoice paid")
	}
	return nil
}
