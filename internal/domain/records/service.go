package records

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "records").Logger()}
}

type CreateRequest struct {
	PatientID int64  `json:"patient_id"`
	DoctorID  *int64 `json:"doctor_id"`
	Diagnosis string `json:"diagnosis"`
	Treatment string `json:"treatment"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (int64, error) {
	if req.PatientID <= 0 {
		return 0, apperr.Validation("patient_id is required")
	}
	if strings.TrimSpace(req.Diagnosis) == "" {
		return 0, apperr.Validation("diagnosis is required")
	}

	rec := &MedicalRecord{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return 0, apperr.Store("create medical record", err)
	}
	s.logger.Info().Int64("record_id", rec.ID).Int64("patient_id", rec.PatientID).Msg("medical record created")
	return rec.ID, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]MedicalRecord, error) {
	list, err := s.repo.ListByPatient(ctx, patientID)
	return list, apperr.Store("list medical records", err)
}
