package scheduling

import (
	"testing"
	"time"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

func TestFilter_PatientID(t *testing.T) {
	seven := int64(7)

	id, ok, err := Filter{Role: "patient", LinkedID: &seven}.PatientID()
	if err != nil || !ok || id != 7 {
		t.Errorf("patient filter: got %d, %v, %v", id, ok, err)
	}

	for _, role := range []string{"doctor", "admin", "", "nurse"} {
		if _, ok, err := (Filter{Role: role, LinkedID: &seven}).PatientID(); ok || err != nil {
			t.Errorf("role %q should be unrestricted, got ok=%v err=%v", role, ok, err)
		}
	}

	_, _, err = Filter{Role: "patient"}.PatientID()
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for a patient without linked_id, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-03-09T14:30:00Z",
		"2024-03-09T16:30:00+02:00",
		"2024-03-09T14:30",
		"2024-03-09T14:30:00",
		"2024-03-09 14:30",
	} {
		got, err := ParseDate(in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}

	if d, err := ParseDate("2024-03-09"); err != nil || d.Hour() != 0 {
		t.Errorf("date only: got %v, %v", d, err)
	}
	for _, in := range []string{"", "tomorrow", "09/03/2024"} {
		if _, err := ParseDate(in); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("ParseDate(%q): expected validation error, got %v", in, err)
		}
	}
}

func TestTransition_Changed(t *testing.T) {
	if (Transition{From: StatusPending, To: StatusPending}).Changed() {
		t.Error("same status should not count as a change")
	}
	if !(Transition{From: StatusPending, To: StatusConfirmed}).Changed() {
		t.Error("expected a change")
	}
}
