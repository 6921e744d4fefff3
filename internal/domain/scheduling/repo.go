package scheduling

import (
	"context"
	"time"
)

// Repository persists appointments. Methods join the transaction carried by
// ctx when there is one.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, id int64) (*Appointment, error)
	// GetForUpdate reads the appointment and holds it against concurrent
	// status changes until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Appointment, error)
	Reschedule(ctx context.Context, id int64, date time.Time, reason string) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	// List returns appointments in id order, restricted to patientID when
	// it is non-nil.
	List(ctx context.Context, patientID *int64) ([]AppointmentView, error)
}
