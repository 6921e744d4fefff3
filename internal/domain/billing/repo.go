package billing

import "context"

type Repository interface {
	// CreateOnce inserts inv unless the appointment already has an invoice,
	// in which case inv is overwritten with the stored one. created reports
	// which happened.
	CreateOnce(ctx context.Context, inv *Invoice) (created bool, err error)
	Get(ctx context.Context, id int64) (*Invoice, error)
	// SetStatus stores status and returns the status the invoice had before.
	SetStatus(ctx context.Context, id int64, status InvoiceStatus) (InvoiceStatus, error)
	List(ctx context.Context, patientID *int64) ([]InvoiceView, error)
}
