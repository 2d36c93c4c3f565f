package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/service"
	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/response"
	"clinic-appointment-service/pkg/validator"

	"github.com/gorilla/mux"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
	}
}

func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.CreateAppointment(r.Context(), &req)
	if err != nil {
		h.writeSchedulingError(w, err, "Failed to create appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment created successfully", appointment)
}

func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid appointment ID")
		return
	}

	var req dto.UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.UpdateAppointment(r.Context(), appointmentID, &req)
	if err != nil {
		h.writeSchedulingError(w, err, "Failed to update appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment updated successfully", appointment)
}

func (h *AppointmentHandler) GetFilteredAppointments(w http.ResponseWriter, r *http.Request) {
	filter := &entity.AppointmentFilter{}
	query := r.URL.Query()

	if raw := query.Get("dateFilter"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.BadRequest(w, "Invalid dateFilter, use YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}
	if raw := query.Get("doctorId"); raw != "" {
		doctorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "Invalid doctorId parameter")
			return
		}
		filter.DoctorID = &doctorID
	}
	if raw := query.Get("patientId"); raw != "" {
		patientID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "Invalid patientId parameter")
			return
		}
		filter.PatientID = &patientID
	}

	appointments, err := h.appointmentUsecase.GetFilteredAppointments(r.Context(), filter)
	if err != nil {
		if err == usecase.ErrFilterSubjectRequired {
			response.BadRequest(w, "Either doctorId or patientId must be specified")
			return
		}
		response.InternalServerError(w, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) writeSchedulingError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case usecase.ErrAppointmentNotFound:
		response.NotFound(w, "Appointment not found")
	case usecase.ErrDoctorNotFound:
		response.NotFound(w, "Doctor not found")
	case usecase.ErrPatientNotFound:
		response.NotFound(w, "Patient not found")
	case usecase.ErrAppointmentConflict:
		response.Conflict(w, "Appointment conflicts with an existing appointment")
	case usecase.ErrInvalidDateFormat, usecase.ErrInvalidTimeFormat, usecase.ErrInvalidTimeRange:
		response.BadRequest(w, err.Error())
	case service.ErrScheduleLocked:
		response.Conflict(w, "Scheduling in progress for this doctor or patient, try again")
	default:
		response.InternalServerError(w, fallback)
	}
}
