package service

import (
	"testing"
	"time"

	"clinic-appointment-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func date(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

func appointment(id, doctorID, patientID int64, day, start, end string) entity.Appointment {
	return entity.Appointment{
		ID:              id,
		DoctorID:        doctorID,
		PatientID:       patientID,
		AppointmentDate: date(day),
		StartTime:       start,
		EndTime:         end,
	}
}

func TestHasConflictBothAxes(t *testing.T) {
	checker := NewConflictChecker()

	// Patient 1 already sees doctor 2 on 2023-07-25, 09:00-10:30.
	existing := appointment(10, 2, 1, "2023-07-25", "09:00", "10:30")
	candidate := appointment(0, 2, 1, "2023-07-25", "10:00", "11:00")

	got := checker.HasConflict(&candidate,
		[]entity.Appointment{existing},
		[]entity.Appointment{existing})

	assert.True(t, got)
}

func TestHasConflictPatientAxisAlone(t *testing.T) {
	checker := NewConflictChecker()

	// Same patient, different doctor: the patient axis alone rejects.
	existing := appointment(10, 2, 1, "2023-07-25", "09:00", "10:30")
	candidate := appointment(0, 3, 1, "2023-07-25", "10:00", "11:00")

	got := checker.HasConflict(&candidate,
		[]entity.Appointment{existing},
		nil)

	assert.True(t, got)
}

func TestHasConflictDoctorAxisAlone(t *testing.T) {
	checker := NewConflictChecker()

	existing := appointment(10, 2, 5, "2023-07-25", "09:00", "10:30")
	candidate := appointment(0, 2, 1, "2023-07-25", "10:00", "11:00")

	got := checker.HasConflict(&candidate,
		nil,
		[]entity.Appointment{existing})

	assert.True(t, got)
}

func TestNoConflictWhenSlotsDisjoint(t *testing.T) {
	checker := NewConflictChecker()

	existing := appointment(10, 2, 1, "2023-07-25", "09:00", "10:00")
	candidate := appointment(0, 2, 1, "2023-07-25", "10:00", "11:00")

	got := checker.HasConflict(&candidate,
		[]entity.Appointment{existing},
		[]entity.Appointment{existing})

	assert.False(t, got)
}

func TestNoConflictAcrossDates(t *testing.T) {
	checker := NewConflictChecker()

	existing := appointment(10, 2, 1, "2023-07-24", "09:00", "10:30")
	candidate := appointment(0, 2, 1, "2023-07-25", "09:00", "10:30")

	got := checker.HasConflict(&candidate,
		[]entity.Appointment{existing},
		[]entity.Appointment{existing})

	assert.False(t, got)
}

func TestSelfExclusionOnUpdate(t *testing.T) {
	checker := NewConflictChecker()

	// The stored row for appointment 7 appears in both histories. A candidate
	// carrying the same ID must never clash with its own prior state.
	stored := appointment(7, 2, 1, "2023-07-25", "09:00", "10:00")
	candidate := stored
	candidate.Reason = "follow-up"

	got := checker.HasConflict(&candidate,
		[]entity.Appointment{stored},
		[]entity.Appointment{stored})

	assert.False(t, got)
}

func TestSelfExclusionStillSeesOtherAppointments(t *testing.T) {
	checker := NewConflictChecker()

	stored := appointment(7, 2, 1, "2023-07-25", "09:00", "10:00")
	other := appointment(8, 2, 1, "2023-07-25", "11:00", "12:00")

	// Moving appointment 7 onto appointment 8's slot must still conflict.
	candidate := stored
	candidate.StartTime = "11:30"
	candidate.EndTime = "12:30"

	got := checker.HasConflict(&candidate,
		[]entity.Appointment{stored, other},
		[]entity.Appointment{stored, other})

	assert.True(t, got)
}

func TestZeroIDCandidateExcludesNothing(t *testing.T) {
	checker := NewConflictChecker()

	// A not-yet-committed candidate has ID 0; existing rows always have
	// real IDs, so creation never accidentally skips one.
	existing := appointment(3, 2, 1, "2023-07-25", "09:00", "10:00")
	candidate := appointment(0, 2, 1, "2023-07-25", "09:30", "10:30")

	got := checker.HasConflict(&candidate,
		[]entity.Appointment{existing},
		[]entity.Appointment{existing})

	assert.True(t, got)
}

func TestEmptyHistoriesNeverConflict(t *testing.T) {
	checker := NewConflictChecker()

	candidate := appointment(0, 2, 1, "2023-07-25", "09:00", "10:00")

	assert.False(t, checker.HasConflict(&candidate, nil, nil))
}
