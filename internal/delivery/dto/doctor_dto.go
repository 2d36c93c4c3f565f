package dto

import (
	"time"
)

type DoctorResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number,omitempty"`
	Specialization string    `json:"specialization,omitempty"`
	Biography      string    `json:"biography,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Total   int              `json:"total"`
}
