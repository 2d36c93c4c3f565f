package converter

import (
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
)

// DoctorToResponse converts a Doctor entity to DoctorResponse DTO
func DoctorToResponse(doctor *entity.Doctor) *dto.DoctorResponse {
	if doctor == nil {
		return nil
	}

	return &dto.DoctorResponse{
		ID:             doctor.ID,
		Name:           doctor.Name,
		Email:          doctor.Email,
		PhoneNumber:    doctor.PhoneNumber,
		Specialization: doctor.Specialization,
		Biography:      doctor.Biography,
		CreatedAt:      doctor.CreatedAt,
	}
}

// DoctorsToResponses converts a slice of Doctor entities to slice of DoctorResponse DTOs
func DoctorsToResponses(doctors []entity.Doctor) []dto.DoctorResponse {
	responses := make([]dto.DoctorResponse, len(doctors))
	for i := range doctors {
		resp := DoctorToResponse(&doctors[i])
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
