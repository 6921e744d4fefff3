package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, rec *MedicalRecord) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medical_records (patient_id, doctor_id, diagnosis, treatment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, record_date`,
		rec.PatientID, rec.DoctorID, rec.Diagnosis, rec.Treatment,
	).Scan(&rec.ID, &rec.RecordDate)
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownParty
	}
	if err != nil {
		return fmt.Errorf("insert medical record: %w", err)
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64) ([]MedicalRecord, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, patient_id, doctor_id, COALESCE(diagnosis, ''), COALESCE(treatment, ''), record_date
		FROM medical_records WHERE patient_id = $1
		ORDER BY id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	defer rows.Close()

	var out []MedicalRecord
	for rows.Next() {
		var m MedicalRecord
		if err := rows.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.Diagnosis, &m.Treatment, &m.RecordDate); err != nil {
			return nil, fmt.Errorf("scan medical record: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
