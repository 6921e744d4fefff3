package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/platform/kv"
)

const TableAppointments = "appointments"

type repoKV struct {
	store *kv.Store
	now   func() time.Time
}

func NewRepoKV(store *kv.Store) Repository {
	return &repoKV{store: store, now: time.Now}
}

// exists reports whether row id of table is present. It stands in for the
// foreign keys the SQL schema declares.
func (r *repoKV) exists(ctx context.Context, table string, id int64) (bool, error) {
	var raw json.RawMessage
	err := r.store.Get(ctx, table, id, &raw)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *repoKV) Create(ctx context.Context, a *Appointment) error {
	return r.store.WithinTx(ctx, func(ctx context.Context) error {
		for _, ref := range []struct {
			table string
			id    int64
		}{{identity.TablePatients, a.PatientID}, {identity.TableDoctors, a.DoctorID}} {
			ok, err := r.exists(ctx, ref.table, ref.id)
			if err != nil {
				return err
			}
			if !ok {
				return ErrUnknownParty
			}
		}

		id, err := r.store.NextID(ctx, TableAppointments)
		if err != nil {
			return err
		}
		now := r.now().UTC()
		a.ID, a.CreatedAt, a.UpdatedAt = id, now, now
		return r.store.Put(ctx, TableAppointments, id, a)
	})
}

func (r *repoKV) Get(ctx context.Context, id int64) (*Appointment, error) {
	var a Appointment
	if err := r.store.Get(ctx, TableAppointments, id, &a); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetForUpdate is a plain read: the store admits one transaction at a time,
// so the row cannot change under the caller's transaction.
func (r *repoKV) GetForUpdate(ctx context.Context, id int64) (*Appointment, error) {
	return r.Get(ctx, id)
}

func (r *repoKV) update(ctx context.Context, id int64, fn func(a *Appointment)) error {
	return r.store.WithinTx(ctx, func(ctx context.Context) error {
		a, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		fn(a)
		a.UpdatedAt = r.now().UTC()
		return r.store.Put(ctx, TableAppointments, id, a)
	})
}

func (r *repoKV) Reschedule(ctx context.Context, id int64, date time.Time, reason string) error {
	return r.update(ctx, id, func(a *Appointment) {
		a.AppointmentDate = date
		a.Reason = reason
	})
}

func (r *repoKV) UpdateStatus(ctx context.Context, id int64, status Status) error {
	return r.update(ctx, id, func(a *Appointment) {
		a.Status = status
	})
}

func (r *repoKV) List(ctx context.Context, patientID *int64) ([]AppointmentView, error) {
	var out []AppointmentView
	patients := map[int64]*string{}
	doctors := map[int64]*string{}

	err := r.store.Scan(ctx, TableAppointments, func(raw []byte) error {
		var a Appointment
		if err := json.Unmarshal(raw, &a); err != nil {
			return fmt.Errorf("decode appointment: %w", err)
		}
		if patientID != nil && a.PatientID != *patientID {
			return nil
		}
		pn, err := cachedName(ctx, r.store, identity.TablePatients, a.PatientID, patients)
		if err != nil {
			return err
		}
		dn, err := cachedName(ctx, r.store, identity.TableDoctors, a.DoctorID, doctors)
		if err != nil {
			return err
		}
		out = append(out, AppointmentView{Appointment: a, PatientName: pn, DoctorName: dn})
		return nil
	})
	return out, err
}

// cachedName resolves the name column of a profile row, nil when the row is
// missing.
func cachedName(ctx context.Context, store *kv.Store, table string, id int64, cache map[int64]*string) (*string, error) {
	if name, ok := cache[id]; ok {
		return name, nil
	}
	var row struct {
		Name string `json:"name"`
	}
	var name *string
	err := store.Get(ctx, table, id, &row)
	switch {
	case err == nil:
		name = &row.Name
	case !errors.Is(err, kv.ErrNotFound):
		return nil, err
	}
	cache[id] = name
	return name, nil
}
