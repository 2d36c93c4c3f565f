package entity

import (
	"time"

	"gorm.io/gorm"
)

// Appointment represents a scheduled consultation between a doctor and a patient.
// Times are stored as HH:MM strings backed by postgres `time` columns and the
// slot is half-open: [StartTime, EndTime).
type Appointment struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID        int64     `gorm:"not null;index" json:"doctor_id"`
	PatientID       int64     `gorm:"not null;index" json:"patient_id"`
	AppointmentDate time.Time `gorm:"type:date;not null;index" json:"appointment_date"`
	StartTime       string    `gorm:"type:time;not null" json:"start_time"`
	EndTime         string    `gorm:"type:time;not null" json:"end_time"`
	Reason          string    `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor  Doctor  `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Patient Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// AfterFind normalizes scanned time columns back to HH:MM. Postgres renders
// TIME values as "10:00:00"; the trailing seconds would break the
// fixed-width comparisons in Overlaps.
func (a *Appointment) AfterFind(*gorm.DB) error {
	a.StartTime = canonicalClock(a.StartTime)
	a.EndTime = canonicalClock(a.EndTime)
	return nil
}

func canonicalClock(value string) string {
	if len(value) > 5 {
		return value[:5]
	}
	return value
}

// SameDate reports whether both appointments fall on the same calendar day.
func (a *Appointment) SameDate(other *Appointment) bool {
	ay, am, ad := a.AppointmentDate.Date()
	oy, om, od := other.AppointmentDate.Date()
	return ay == oy && am == om && ad == od
}

// Overlaps reports whether two appointments occupy intersecting time slots.
// Appointments on different dates never overlap. Time ranges are half-open,
// so back-to-back appointments (a ends exactly when b starts) do not clash.
// Comparing fixed-width HH:MM strings lexicographically is equivalent to
// comparing the times themselves.
func (a *Appointment) Overlaps(other *Appointment) bool {
	if !a.SameDate(other) {
		return false
	}
	return a.StartTime < other.EndTime && other.StartTime < a.EndTime
}

// Merge applies a partial patch onto the appointment. Only fields that are
// set on the patch are copied; zero-valued patch fields leave the target
// untouched, so a client can change a single field without clobbering the
// rest. Identity and timestamps are never merged.
func (a *Appointment) Merge(patch *Appointment) {
	if patch == nil {
		return
	}
	if !patch.AppointmentDate.IsZero() {
		a.AppointmentDate = patch.AppointmentDate
	}
	if patch.StartTime != "" {
		a.StartTime = patch.StartTime
	}
	if patch.EndTime != "" {
		a.EndTime = patch.EndTime
	}
	if patch.Reason != "" {
		a.Reason = patch.Reason
	}
	if patch.DoctorID != 0 {
		a.DoctorID = patch.DoctorID
	}
	if patch.PatientID != 0 {
		a.PatientID = patch.PatientID
	}
}
