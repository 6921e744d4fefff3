package records

import (
	"time"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

var ErrUnknownParty = apperr.Validation("patient or doctor does not exist")

// MedicalRecord is one diagnosis entry in a patient's chart. DoctorID is nil
// for records not attributed to a doctor.
type MedicalRecord struct {
	ID         int64     `json:"id"`
	PatientID  int64     `json:"patient_id"`
	DoctorID   *int64    `json:"doctor_id"`
	Diagnosis  string    `json:"diagnosis"`
	Treatment  string    `json:"treatment"`
	RecordDate time.Time `json:"record_date"`
}
