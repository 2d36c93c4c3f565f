package dto

import (
	"time"
)

// Request DTOs

type CreateAppointmentRequest struct {
	DoctorID        int64  `json:"doctor_id" validate:"required,min=1"`
	PatientID       int64  `json:"patient_id" validate:"required,min=1"`
	AppointmentDate string `json:"appointment_date" validate:"required"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time" validate:"required"`
	Reason          string `json:"reason" validate:"omitempty,max=1000"`
}

// UpdateAppointmentRequest is a partial patch: absent fields leave the
// stored appointment untouched.
type UpdateAppointmentRequest struct {
	DoctorID        int64  `json:"doctor_id" validate:"omitempty,min=1"`
	PatientID       int64  `json:"patient_id" validate:"omitempty,min=1"`
	AppointmentDate string `json:"appointment_date" validate:"omitempty"`
	StartTime       string `json:"start_time" validate:"omitempty"`
	EndTime         string `json:"end_time" validate:"omitempty"`
	Reason          string `json:"reason" validate:"omitempty,max=1000"`
}

// Response DTOs

type AppointmentResponse struct {
	ID              int64            `json:"id"`
	DoctorID        int64            `json:"doctor_id"`
	PatientID       int64            `json:"patient_id"`
	AppointmentDate string           `json:"appointment_date"`
	StartTime       string           `json:"start_time"`
	EndTime         string           `json:"end_time"`
	Reason          string           `json:"reason,omitempty"`
	Doctor          *DoctorResponse  `json:"doctor,omitempty"`
	Patient         *PatientResponse `json:"patient,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
