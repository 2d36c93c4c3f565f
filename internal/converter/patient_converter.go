package converter

import (
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
)

// PatientToResponse converts a Patient entity to PatientResponse DTO
func PatientToResponse(patient *entity.Patient) *dto.PatientResponse {
	if patient == nil {
		return nil
	}

	response := &dto.PatientResponse{
		ID:          patient.ID,
		Name:        patient.Name,
		Email:       patient.Email,
		PhoneNumber: patient.PhoneNumber,
		Gender:      patient.Gender,
		Address:     patient.Address,
		CreatedAt:   patient.CreatedAt,
	}

	if !patient.DateOfBirth.IsZero() {
		response.DateOfBirth = patient.DateOfBirth.Format("2006-01-02")
	}

	return response
}
