package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/kv"
)

const (
	TableInvoices = "billing"

	// appointmentIndex holds at most one invoice per appointment.
	appointmentIndex = "billing.appointment_id"
)

type repoKV struct {
	store *kv.Store
	now   func() time.Time
}

func NewRepoKV(store *kv.Store) Repository {
	return &repoKV{store: store, now: time.Now}
}

func (r *repoKV) CreateOnce(ctx context.Context, inv *Invoice) (bool, error) {
	var created bool
	err := r.store.WithinTx(ctx, func(ctx context.Context) error {
		key := strconv.FormatInt(inv.AppointmentID, 10)
		existing, err := r.store.Lookup(ctx, appointmentIndex, key)
		if err == nil {
			stored, err := r.Get(ctx, existing)
			if err != nil {
				return err
			}
			*inv = *stored
			return nil
		}
		if !errors.Is(err, kv.ErrNotFound) {
			return err
		}

		if err := r.checkRefs(ctx, inv); err != nil {
			return err
		}
		id, err := r.store.NextID(ctx, TableInvoices)
		if err != nil {
			return err
		}
		if err := r.store.PutUnique(ctx, appointmentIndex, key, id); err != nil {
			return fmt.Errorf("claim appointment %d: %w", inv.AppointmentID, err)
		}
		inv.ID = id
		inv.BillingDate = r.now().UTC()
		created = true
		return r.store.Put(ctx, TableInvoices, id, inv)
	})
	return created, err
}

// checkRefs enforces the references the SQL schema declares as foreign keys.
func (r *repoKV) checkRefs(ctx context.Context, inv *Invoice) error {
	var raw json.RawMessage
	if err := r.store.Get(ctx, identity.TablePatients, inv.PatientID, &raw); err != nil {
		return refErr(err)
	}
	if err := r.store.Get(ctx, scheduling.TableAppointments, inv.AppointmentID, &raw); err != nil {
		return refErr(err)
	}
	return nil
}

func refErr(err error) error {
	if errors.Is(err, kv.ErrNotFound) {
		return ErrUnknownAppointment
	}
	return err
}

func (r *repoKV) Get(ctx context.Context, id int64) (*Invoice, error) {
	var inv Invoice
	if err := r.store.Get(ctx, TableInvoices, id, &inv); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repoKV) SetStatus(ctx context.Context, id int64, status InvoiceStatus) (InvoiceStatus, error) {
	var prev InvoiceStatus
	err := r.store.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		prev = inv.Status
		inv.Status = status
		return r.store.Put(ctx, TableInvoices, id, inv)
	})
	return prev, err
}

func (r *repoKV) List(ctx context.Context, patientID *int64) ([]InvoiceView, error) {
	var out []InvoiceView
	j := joiner{store: r.store, patients: map[int64]*string{}, doctors: map[int64]*identity.DoctorProfile{}}

	err := r.store.Scan(ctx, TableInvoices, func(raw []byte) error {
		var inv Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		if patientID != nil && inv.PatientID != *patientID {
			return nil
		}
		v, err := j.view(ctx, inv)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// joiner resolves the left joins of an invoice listing, remembering the
// profiles it has already read.
type joiner struct {
	store    *kv.Store
	patients map[int64]*string
	doctors  map[int64]*identity.DoctorProfile
}

func (j *joiner) view(ctx context.Context, inv Invoice) (InvoiceView, error) {
	v := InvoiceView{Invoice: inv}

	name, ok := j.patients[inv.PatientID]
	if !ok {
		var p identity.PatientProfile
		switch err := j.store.Get(ctx, identity.TablePatients, inv.PatientID, &p); {
		case err == nil:
			name = &p.Name
		case !errors.Is(err, kv.ErrNotFound):
			return v, err
		}
		j.patients[inv.PatientID] = name
	}
	v.PatientName = name

	var a scheduling.Appointment
	switch err := j.store.Get(ctx, scheduling.TableAppointments, inv.AppointmentID, &a); {
	case errors.Is(err, kv.ErrNotFound):
		return v, nil
	case err != nil:
		return v, err
	}
	v.AppointmentDate = &a.AppointmentDate

	d, ok := j.doctors[a.DoctorID]
	if !ok {
		var doc identity.DoctorProfile
		switch err := j.store.Get(ctx, identity.TableDoctors, a.DoctorID, &doc); {
		case err == nil:
			d = &doc
		case !errors.Is(err, kv.ErrNotFound):
			return v, err
		}
		j.doctors[a.DoctorID] = d
	}
	if d != nil {
		v.DoctorName = &d.Name
		v.DoctorFee = &d.Fees
	}
	return v, nil
}
