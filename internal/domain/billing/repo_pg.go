package billing

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

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) CreateOnce(ctx context.Context, inv *Invoice) (bool, error) {
	q := r.conn(ctx)
	err := q.QueryRow(ctx, `
		INSERT INTO billing (patient_id, appointment_id, amount, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (appointment_id) DO NOTHING
		RETURNING id, billing_date`,
		inv.PatientID, inv.AppointmentID, inv.Amount, string(inv.Status),
	).Scan(&inv.ID, &inv.BillingDate)
	if err == nil {
		return true, nil
	}
	if db.IsForeignKeyViolation(err) {
		return false, ErrUnknownAppointment
	}
	if !db.IsNoRows(err) {
		return false, fmt.Errorf("insert invoice: %w", err)
	}

	var status string
	err = q.QueryRow(ctx, `
		SELECT id, patient_id, appointment_id, amount, status, billing_date
		FROM billing WHERE appointment_id = $1`, inv.AppointmentID,
	).Scan(&inv.ID, &inv.PatientID, &inv.AppointmentID, &inv.Amount, &status, &inv.BillingDate)
	if err != nil {
		return false, fmt.Errorf("get invoice for appointment %d: %w", inv.AppointmentID, err)
	}
	inv.Status = InvoiceStatus(status)
	return false, nil
}

func (r *repoPG) Get(ctx context.Context, id int64) (*Invoice, error) {
	var inv Invoice
	var status string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, patient_id, appointment_id, amount, status, billing_date
		FROM billing WHERE id = $1`, id,
	).Scan(&inv.ID, &inv.PatientID, &inv.AppointmentID, &inv.Amount, &status, &inv.BillingDate)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %d: %w", id, err)
	}
	inv.Status = InvoiceStatus(status)
	return &inv, nil
}

func (r *repoPG) SetStatus(ctx context.Context, id int64, status InvoiceStatus) (InvoiceStatus, error) {
	var prev string
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE billing b SET status = $2
		FROM (SELECT id, status FROM billing WHERE id = $1 FOR UPDATE) old
		WHERE b.id = old.id
		RETURNING old.status`, id, string(status),
	).Scan(&prev)
	if db.IsNoRows(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("update invoice %d: %w", id, err)
	}
	return InvoiceStatus(prev), nil
}

func (r *repoPG) List(ctx context.Context, patientID *int64) ([]InvoiceView, error) {
	q := `
		SELECT b.id, b.patient_id, b.appointment_id, b.amount, b.status, b.billing_date,
			p.name, d.name, a.appointment_date, d.fees
		FROM billing b
		LEFT JOIN patients p ON b.patient_id = p.id
		LEFT JOIN appointments a ON b.appointment_id = a.id
		LEFT JOIN doctors d ON a.doctor_id = d.id`
	var args []interface{}
	if patientID != nil {
		q += ` WHERE b.patient_id = $1`
		args = append(args, *patientID)
	}
	q += ` ORDER BY b.id`

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []InvoiceView
	for rows.Next() {
		var v InvoiceView
		var status string
		if err := rows.Scan(&v.ID, &v.PatientID, &v.AppointmentID, &v.Amount, &status, &v.BillingDate,
			&v.PatientName, &v.DoctorName, &v.AppointmentDate, &v.DoctorFee); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		v.Status = InvoiceStatus(status)
		out = append(out, v)
	}
	return out, rows.Err()
}
