package records

import "context"

type Repository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	ListByPatient(ctx context.Context, patientID int64) ([]MedicalRecord, error)
}
