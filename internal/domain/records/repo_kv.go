package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/platform/kv"
)

const (
	TableRecords = "medical_records"

	// patientIndex maps "<patient>/<record>" to the record id, so a chart is
	// read without scanning every record.
	patientIndex = "medical_records.patient_id"
)

type repoKV struct {
	store *kv.Store
	now   func() time.Time
}

func NewRepoKV(store *kv.Store) Repository {
	return &repoKV{store: store, now: time.Now}
}

func patientKey(patientID, recordID int64) string {
	return fmt.Sprintf("%020d/%020d", patientID, recordID)
}

func (r *repoKV) Create(ctx context.Context, rec *MedicalRecord) error {
	return r.store.WithinTx(ctx, func(ctx context.Context) error {
		var raw json.RawMessage
		if err := r.store.Get(ctx, identity.TablePatients, rec.PatientID, &raw); err != nil {
			return refErr(err)
		}
		if rec.DoctorID != nil {
			if err := r.store.Get(ctx, identity.TableDoctors, *rec.DoctorID, &raw); err != nil {
				return refErr(err)
			}
		}

		id, err := r.store.NextID(ctx, TableRecords)
		if err != nil {
			return err
		}
		rec.ID = id
		rec.RecordDate = r.now().UTC()
		if err := r.store.PutUnique(ctx, patientIndex, patientKey(rec.PatientID, id), id); err != nil {
			return fmt.Errorf("index medical record: %w", err)
		}
		return r.store.Put(ctx, TableRecords, id, rec)
	})
}

func refErr(err error) error {
	if errors.Is(err, kv.ErrNotFound) {
		return ErrUnknownParty
	}
	return err
}

func (r *repoKV) ListByPatient(ctx context.Context, patientID int64) ([]MedicalRecord, error) {
	var out []MedicalRecord
	err := r.store.ScanIndex(ctx, patientIndex, fmt.Sprintf("%020d/", patientID), func(id int64) error {
		var m MedicalRecord
		if err := r.store.Get(ctx, TableRecords, id, &m); err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	return out, err
}
