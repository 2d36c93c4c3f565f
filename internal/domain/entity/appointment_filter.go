package entity

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentFilter is a domain-level filter for querying appointments.
// Each criterion is optional; absent criteria contribute no constraint.
// Used by the repository layer to avoid coupling with delivery DTOs.
type AppointmentFilter struct {
	Date      *time.Time
	DoctorID  *int64
	PatientID *int64
}

// HasSubject reports whether the filter names at least one of doctor or
// patient. Listing appointments without a subject is rejected upstream,
// an unscoped full scan is never executed.
func (f *AppointmentFilter) HasSubject() bool {
	return f != nil && (f.DoctorID != nil || f.PatientID != nil)
}

// Scopes returns one gorm scope per present criterion. The repository folds
// them together, so the resulting query is the AND of all present criteria.
func (f *AppointmentFilter) Scopes() []func(*gorm.DB) *gorm.DB {
	var scopes []func(*gorm.DB) *gorm.DB
	if f == nil {
		return scopes
	}
	if f.Date != nil {
		date := f.Date.Format("2006-01-02")
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Where("appointment_date = ?", date)
		})
	}
	if f.DoctorID != nil {
		doctorID := *f.DoctorID
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Where("doctor_id = ?", doctorID)
		})
	}
	if f.PatientID != nil {
		patientID := *f.PatientID
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Where("patient_id = ?", patientID)
		})
	}
	return scopes
}
