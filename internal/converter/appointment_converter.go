package converter

import (
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:              appointment.ID,
		DoctorID:        appointment.DoctorID,
		PatientID:       appointment.PatientID,
		AppointmentDate: appointment.AppointmentDate.Format("2006-01-02"),
		StartTime:       appointment.StartTime,
		EndTime:         appointment.EndTime,
		Reason:          appointment.Reason,
		CreatedAt:       appointment.CreatedAt,
		UpdatedAt:       appointment.UpdatedAt,
	}

	// Include doctor/patient info if preloaded
	if appointment.Doctor.ID != 0 {
		response.Doctor = DoctorToResponse(&appointment.Doctor)
	}
	if appointment.Patient.ID != 0 {
		response.Patient = PatientToResponse(&appointment.Patient)
	}

	return response
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		resp := AppointmentToResponse(&appointments[i])
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
