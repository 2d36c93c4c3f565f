package service

import (
	"clinic-appointment-service/internal/domain/entity"
)

// ConflictChecker decides whether a candidate appointment clashes with the
// appointments already on the books. Conflict is evaluated independently per
// axis: a doctor cannot be double-booked and a patient cannot be
// double-booked, and either axis alone is enough to reject.
//
// The checker is a pure predicate over in-memory slices; loading the
// existing appointments and serializing check-then-commit against
// concurrent writers is the caller's job.
type ConflictChecker struct{}

func NewConflictChecker() *ConflictChecker {
	return &ConflictChecker{}
}

// HasConflict reports whether the candidate clashes with any existing
// appointment of its patient or of its doctor.
func (c *ConflictChecker) HasConflict(candidate *entity.Appointment, patientAppointments, doctorAppointments []entity.Appointment) bool {
	patientClash := c.clashesWithAny(candidate, patientAppointments)
	doctorClash := c.clashesWithAny(candidate, doctorAppointments)
	return patientClash || doctorClash
}

func (c *ConflictChecker) clashesWithAny(candidate *entity.Appointment, existing []entity.Appointment) bool {
	for i := range existing {
		other := &existing[i]
		if isSameAppointment(candidate, other) {
			continue
		}
		if candidate.Overlaps(other) {
			return true
		}
	}
	return false
}

// isSameAppointment excludes an appointment from its own conflict check.
// An update re-fetches the stored row together with the rest of the
// history; without this exclusion the merged candidate would always clash
// with its own prior state. A not-yet-committed candidate has ID 0, which
// never matches a stored row, so creation skips nothing.
func isSameAppointment(candidate, other *entity.Appointment) bool {
	return candidate.ID != 0 && candidate.ID == other.ID
}
