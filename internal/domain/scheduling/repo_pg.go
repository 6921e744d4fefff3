package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const apptCols = `id, patient_id, doctor_id, appointment_date, status, COALESCE(reason, ''), created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentDate, &status, &a.Reason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, appointment_date, status, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		a.PatientID, a.DoctorID, a.AppointmentDate, string(a.Status), a.Reason,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownParty
	}
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *repoPG) get(ctx context.Context, id int64, lock bool) (*Appointment, error) {
	q := `SELECT ` + apptCols + ` FROM appointments WHERE id = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, q, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	return a, nil
}

func (r *repoPG) Get(ctx context.Context, id int64) (*Appointment, error) {
	return r.get(ctx, id, false)
}

func (r *repoPG) GetForUpdate(ctx context.Context, id int64) (*Appointment, error) {
	return r.get(ctx, id, true)
}

func (r *repoPG) Reschedule(ctx context.Context, id int64, date time.Time, reason string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET appointment_date = $1, reason = $2, updated_at = NOW()
		WHERE id = $3`, date, reason, id)
	if err != nil {
		return fmt.Errorf("reschedule appointment %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("update appointment %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, patientID *int64) ([]AppointmentView, error) {
	q := `
		SELECT a.id, a.patient_id, a.doctor_id, a.appointment_date, a.status,
			COALESCE(a.reason, ''), a.created_at, a.updated_at, p.name, d.name
		FROM appointments a
		LEFT JOIN patients p ON a.patient_id = p.id
		LEFT JOIN doctors d ON a.doctor_id = d.id`
	var args []interface{}
	if patientID != nil {
		q += ` WHERE a.patient_id = $1`
		args = append(args, *patientID)
	}
	q += ` ORDER BY a.id`

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []AppointmentView
	for rows.Next() {
		var v AppointmentView
		var status string
		if err := rows.Scan(&v.ID, &v.PatientID, &v.DoctorID, &v.AppointmentDate, &status,
			&v.Reason, &v.CreatedAt, &v.UpdatedAt, &v.PatientName, &v.DoctorName); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		v.Status = Status(status)
		out = append(out, v)
	}
	return out, rows.Err()
}
