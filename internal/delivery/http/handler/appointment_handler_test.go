package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/validator"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAppointmentUsecase struct {
	createErr  error
	updateErr  error
	filterErr  error
	lastFilter *entity.AppointmentFilter
	response   *dto.AppointmentResponse
}

func (u *stubAppointmentUsecase) CreateAppointment(_ context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	if u.createErr != nil {
		return nil, u.createErr
	}
	if u.response != nil {
		return u.response, nil
	}
	return &dto.AppointmentResponse{
		ID:              1,
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		AppointmentDate: req.AppointmentDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	}, nil
}

func (u *stubAppointmentUsecase) UpdateAppointment(_ context.Context, appointmentID int64, _ *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	if u.updateErr != nil {
		return nil, u.updateErr
	}
	return &dto.AppointmentResponse{ID: appointmentID}, nil
}

func (u *stubAppointmentUsecase) GetFilteredAppointments(_ context.Context, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error) {
	u.lastFilter = filter
	if u.filterErr != nil {
		return nil, u.filterErr
	}
	return &dto.AppointmentListResponse{Appointments: []dto.AppointmentResponse{}, Total: 0}, nil
}

func newAppointmentRouter(u usecase.AppointmentUsecase) *mux.Router {
	h := NewAppointmentHandler(u, validator.NewValidator())

	router := mux.NewRouter()
	router.HandleFunc("/appointments", h.CreateAppointment).Methods(http.MethodPost)
	router.HandleFunc("/appointments", h.GetFilteredAppointments).Methods(http.MethodGet)
	router.HandleFunc("/appointments/{id}", h.UpdateAppointment).Methods(http.MethodPut)
	return router
}

func validCreateBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(dto.CreateAppointmentRequest{
		DoctorID:        1,
		PatientID:       10,
		AppointmentDate: "2026-03-10",
		StartTime:       "09:00",
		EndTime:         "09:30",
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestCreateAppointmentReturnsCreated(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentUsecase{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/appointments", validCreateBody(t)))

	assert.Equal(t, http.StatusCreated, rec.Code)

	var got struct {
		Success bool                    `json:"success"`
		Data    dto.AppointmentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, int64(1), got.Data.ID)
}

func TestCreateAppointmentRejectsMissingFields(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentUsecase{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(`{"doctor_id":1}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAppointmentRejectsMalformedBody(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentUsecase{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAppointmentStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		usecaseErr error
		wantStatus int
	}{
		{"conflict", usecase.ErrAppointmentConflict, http.StatusConflict},
		{"unknown doctor", usecase.ErrDoctorNotFound, http.StatusNotFound},
		{"unknown patient", usecase.ErrPatientNotFound, http.StatusNotFound},
		{"invalid date", usecase.ErrInvalidDateFormat, http.StatusBadRequest},
		{"invalid time range", usecase.ErrInvalidTimeRange, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAppointmentRouter(&stubAppointmentUsecase{createErr: tt.usecaseErr})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/appointments", validCreateBody(t)))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestUpdateAppointmentReturnsOK(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentUsecase{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/appointments/7", bytes.NewBufferString(`{"reason":"follow-up"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateAppointmentRejectsBadID(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentUsecase{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/appointments/abc", bytes.NewBufferString(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAppointmentNotFound(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentUsecase{updateErr: usecase.ErrAppointmentNotFound})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/appointments/99", bytes.NewBufferString(`{"reason":"x"}`)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetFilteredAppointmentsParsesQuery(t *testing.T) {
	stub := &stubAppointmentUsecase{}
	router := newAppointmentRouter(stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments?doctorId=3&dateFilter=2026-03-10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.lastFilter)
	require.NotNil(t, stub.lastFilter.DoctorID)
	assert.Equal(t, int64(3), *stub.lastFilter.DoctorID)
	require.NotNil(t, stub.lastFilter.Date)
	assert.Equal(t, "2026-03-10", stub.lastFilter.Date.Format("2006-01-02"))
	assert.Nil(t, stub.lastFilter.PatientID)
}

func TestGetFilteredAppointmentsRejectsBadDate(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentUsecase{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments?doctorId=3&dateFilter=next-week", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetFilteredAppointmentsWithoutSubject(t *testing.T) {
	router := newAppointmentRouter(&stubAppointmentUsecase{filterErr: usecase.ErrFilterSubjectRequired})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments?dateFilter=2026-03-10", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
