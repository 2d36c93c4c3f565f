package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(value string) time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return d
}

func newAppointment(id int64, day, start, end string) *Appointment {
	return &Appointment{
		ID:              id,
		DoctorID:        1,
		PatientID:       1,
		AppointmentDate: date(day),
		StartTime:       start,
		EndTime:         end,
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	a := newAppointment(1, "2023-07-25", "09:00", "10:30")
	b := newAppointment(2, "2023-07-25", "10:00", "11:00")

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
}

func TestOverlapsSelf(t *testing.T) {
	a := newAppointment(1, "2023-07-25", "09:00", "10:30")

	assert.True(t, a.Overlaps(a))
}

func TestBackToBackDoesNotOverlap(t *testing.T) {
	first := newAppointment(1, "2023-07-25", "09:00", "10:00")
	second := newAppointment(2, "2023-07-25", "10:00", "11:00")

	assert.False(t, first.Overlaps(second))
	assert.False(t, second.Overlaps(first))
}

func TestDifferentDatesNeverOverlap(t *testing.T) {
	a := newAppointment(1, "2023-07-25", "09:00", "10:30")
	b := newAppointment(2, "2023-07-26", "09:00", "10:30")

	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))
}

func TestContainedIntervalOverlaps(t *testing.T) {
	outer := newAppointment(1, "2023-07-25", "09:00", "12:00")
	inner := newAppointment(2, "2023-07-25", "10:00", "10:30")

	assert.True(t, outer.Overlaps(inner))
	assert.True(t, inner.Overlaps(outer))
}

func TestMergeEmptyPatchIsNoOp(t *testing.T) {
	target := newAppointment(7, "2023-07-25", "09:00", "10:00")
	target.Reason = "checkup"
	original := *target

	target.Merge(&Appointment{})

	assert.Equal(t, original, *target)
}

func TestMergeNilPatchIsNoOp(t *testing.T) {
	target := newAppointment(7, "2023-07-25", "09:00", "10:00")
	original := *target

	target.Merge(nil)

	assert.Equal(t, original, *target)
}

func TestMergeFullPatchWins(t *testing.T) {
	target := newAppointment(7, "2023-07-25", "09:00", "10:00")
	target.Reason = "checkup"

	patch := &Appointment{
		DoctorID:        3,
		PatientID:       4,
		AppointmentDate: date("2023-08-01"),
		StartTime:       "14:00",
		EndTime:         "15:00",
		Reason:          "follow-up",
	}
	target.Merge(patch)

	assert.Equal(t, int64(7), target.ID)
	assert.Equal(t, int64(3), target.DoctorID)
	assert.Equal(t, int64(4), target.PatientID)
	assert.Equal(t, date("2023-08-01"), target.AppointmentDate)
	assert.Equal(t, "14:00", target.StartTime)
	assert.Equal(t, "15:00", target.EndTime)
	assert.Equal(t, "follow-up", target.Reason)
}

func TestMergePartialPatchKeepsOtherFields(t *testing.T) {
	target := newAppointment(7, "2023-07-25", "09:00", "10:00")
	target.Reason = "checkup"

	target.Merge(&Appointment{Reason: "follow-up"})

	assert.Equal(t, "follow-up", target.Reason)
	assert.Equal(t, date("2023-07-25"), target.AppointmentDate)
	assert.Equal(t, "09:00", target.StartTime)
	assert.Equal(t, "10:00", target.EndTime)
	assert.Equal(t, int64(1), target.DoctorID)
	assert.Equal(t, int64(1), target.PatientID)
}

func TestMergeNeverTouchesIdentity(t *testing.T) {
	target := newAppointment(7, "2023-07-25", "09:00", "10:00")

	target.Merge(&Appointment{ID: 99, StartTime: "11:00"})

	assert.Equal(t, int64(7), target.ID)
	assert.Equal(t, "11:00", target.StartTime)
}

func TestAfterFindTrimsScannedSeconds(t *testing.T) {
	a := newAppointment(1, "2023-07-25", "10:00:00", "11:30:00")

	assert.NoError(t, a.AfterFind(nil))
	assert.Equal(t, "10:00", a.StartTime)
	assert.Equal(t, "11:30", a.EndTime)
}

func TestAfterFindKeepsCanonicalTimes(t *testing.T) {
	a := newAppointment(1, "2023-07-25", "10:00", "11:30")

	assert.NoError(t, a.AfterFind(nil))
	assert.Equal(t, "10:00", a.StartTime)
	assert.Equal(t, "11:30", a.EndTime)
}

func TestBackToBackWithScannedSecondsDoesNotOverlap(t *testing.T) {
	stored := newAppointment(1, "2023-07-25", "09:00:00", "10:00:00")
	assert.NoError(t, stored.AfterFind(nil))

	next := newAppointment(2, "2023-07-25", "10:00", "11:00")
	assert.False(t, stored.Overlaps(next))
	assert.False(t, next.Overlaps(stored))
}
