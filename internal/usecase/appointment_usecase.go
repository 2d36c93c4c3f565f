package usecase

import (
	"context"
	"errors"
	"time"

	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"
	"clinic-appointment-service/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	ErrAppointmentNotFound   = errors.New("appointment not found")
	ErrDoctorNotFound        = errors.New("doctor not found")
	ErrPatientNotFound       = errors.New("patient not found")
	ErrAppointmentConflict   = errors.New("appointment conflicts with an existing appointment")
	ErrFilterSubjectRequired = errors.New("no patient or doctor id specified")
	ErrInvalidDateFormat     = errors.New("invalid date format, use YYYY-MM-DD")
	ErrInvalidTimeFormat     = errors.New("invalid time format, use HH:MM")
	ErrInvalidTimeRange      = errors.New("start time must be before end time")
)

type AppointmentUsecase interface {
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	UpdateAppointment(ctx context.Context, appointmentID int64, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error)
	GetFilteredAppointments(ctx context.Context, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error)
}

type appointmentUsecase struct {
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	doctorRepo      repository.DoctorRepository
	patientRepo     repository.PatientRepository
	conflictChecker *service.ConflictChecker
	locker          service.ScheduleLocker
	mailer          service.AppointmentMailer
}

func NewAppointmentUsecase(
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	doctorRepo repository.DoctorRepository,
	patientRepo repository.PatientRepository,
	conflictChecker *service.ConflictChecker,
	locker service.ScheduleLocker,
	mailer service.AppointmentMailer,
) AppointmentUsecase {
	return &appointmentUsecase{
		log:             log,
		appointmentRepo: appointmentRepo,
		doctorRepo:      doctorRepo,
		patientRepo:     patientRepo,
		conflictChecker: conflictChecker,
		locker:          locker,
		mailer:          mailer,
	}
}

// CreateAppointment schedules a new appointment.
//
// Flow:
// 1. Map and validate the request (date format, time format, start < end)
// 2. Resolve patient and doctor, both must exist
// 3. Acquire the per-doctor and per-patient schedule locks
// 4. Load both appointment histories and run the conflict check
// 5. Commit, then notify doctor and patient by email (best effort)
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	appointment := &entity.Appointment{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	}

	appointmentDate, err := time.Parse("2006-01-02", req.AppointmentDate)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}
	appointment.AppointmentDate = appointmentDate

	startTime, endTime, err := normalizeTimeSlot(appointment.StartTime, appointment.EndTime)
	if err != nil {
		return nil, err
	}
	appointment.StartTime = startTime
	appointment.EndTime = endTime

	patient, err := u.patientRepo.FindByID(ctx, req.PatientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %d: %+v", req.PatientID, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	doctor, err := u.doctorRepo.FindByID(ctx, req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %d: %+v", req.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	// The histories must be read and the commit made under the same locks,
	// otherwise a concurrent request for the same doctor or patient could
	// commit an overlapping slot that neither conflict check observed.
	release, err := u.locker.Acquire(ctx, appointment.DoctorID, appointment.PatientID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := u.checkForConflict(ctx, appointment); err != nil {
		return nil, err
	}

	if err := u.appointmentRepo.Create(ctx, appointment); err != nil {
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.log.Infof("Appointment created: id=%d, doctor=%d, patient=%d, date=%s",
		appointment.ID, appointment.DoctorID, appointment.PatientID, req.AppointmentDate)

	u.notify(ctx, appointment, doctor, patient)

	return converter.AppointmentToResponse(appointment), nil
}

// UpdateAppointment applies a partial patch to a stored appointment. Fields
// absent from the patch keep their stored values. The merged appointment is
// conflict-checked with the stored row excluded from its own history, so an
// update that keeps date and times never clashes with its prior state.
func (u *appointmentUsecase) UpdateAppointment(ctx context.Context, appointmentID int64, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	patch, err := mapUpdatePatch(req)
	if err != nil {
		return nil, err
	}

	// The first read only resolves the lock subjects. The authoritative
	// read happens under the locks, otherwise two concurrent patches could
	// each merge onto the same pre-patch snapshot and one patch's fields
	// would be silently lost.
	stored, err := u.appointmentRepo.FindByID(ctx, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %d: %+v", appointmentID, err)
		return nil, err
	}
	if stored == nil {
		return nil, ErrAppointmentNotFound
	}

	subjects := *stored
	subjects.Merge(patch)

	release, err := u.locker.Acquire(ctx, subjects.DoctorID, subjects.PatientID)
	if err != nil {
		return nil, err
	}
	defer release()

	appointment, err := u.appointmentRepo.FindByID(ctx, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %d: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	appointment.Merge(patch)

	if appointment.DoctorID != subjects.DoctorID || appointment.PatientID != subjects.PatientID {
		// The row moved to other subjects while the locks were being
		// acquired, so the held locks no longer cover it.
		return nil, service.ErrScheduleLocked
	}

	startTime, endTime, err := normalizeTimeSlot(appointment.StartTime, appointment.EndTime)
	if err != nil {
		return nil, err
	}
	appointment.StartTime = startTime
	appointment.EndTime = endTime

	patient, err := u.patientRepo.FindByID(ctx, appointment.PatientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %d: %+v", appointment.PatientID, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	doctor, err := u.doctorRepo.FindByID(ctx, appointment.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %d: %+v", appointment.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	if err := u.checkForConflict(ctx, appointment); err != nil {
		return nil, err
	}

	if err := u.appointmentRepo.Save(ctx, appointment); err != nil {
		u.log.Warnf("Failed to save appointment %d: %+v", appointmentID, err)
		return nil, err
	}

	u.log.Infof("Appointment updated: id=%d, doctor=%d, patient=%d",
		appointment.ID, appointment.DoctorID, appointment.PatientID)

	u.notify(ctx, appointment, doctor, patient)

	return converter.AppointmentToResponse(appointment), nil
}

// GetFilteredAppointments lists appointments matching the filter. A filter
// naming neither doctor nor patient is rejected before any repository
// access, an unscoped full scan is never run.
func (u *appointmentUsecase) GetFilteredAppointments(ctx context.Context, filter *entity.AppointmentFilter) (*dto.AppointmentListResponse, error) {
	if !filter.HasSubject() {
		return nil, ErrFilterSubjectRequired
	}

	appointments, err := u.appointmentRepo.FindFiltered(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to find appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// checkForConflict loads the patient's and the doctor's appointment
// histories and rejects the candidate when either axis clashes. Callers
// must hold the schedule locks for the candidate's doctor and patient.
func (u *appointmentUsecase) checkForConflict(ctx context.Context, candidate *entity.Appointment) error {
	patientAppointments, err := u.appointmentRepo.FindByPatientID(ctx, candidate.PatientID)
	if err != nil {
		u.log.Warnf("Failed to load patient appointments for %d: %+v", candidate.PatientID, err)
		return err
	}

	doctorAppointments, err := u.appointmentRepo.FindByDoctorID(ctx, candidate.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to load doctor appointments for %d: %+v", candidate.DoctorID, err)
		return err
	}

	if u.conflictChecker.HasConflict(candidate, patientAppointments, doctorAppointments) {
		return ErrAppointmentConflict
	}
	return nil
}

// notify emails doctor and patient after a successful commit. Delivery is
// best effort: a failed send is logged and never rolls the commit back.
func (u *appointmentUsecase) notify(ctx context.Context, appointment *entity.Appointment, doctor *entity.Doctor, patient *entity.Patient) {
	if err := u.mailer.SendAppointmentEmail(ctx, appointment, doctor, patient); err != nil {
		u.log.Warnf("Failed to send appointment email for %d (non-fatal): %+v", appointment.ID, err)
	}
}

func mapUpdatePatch(req *dto.UpdateAppointmentRequest) (*entity.Appointment, error) {
	patch := &entity.Appointment{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Reason:    req.Reason,
	}

	if req.AppointmentDate != "" {
		appointmentDate, err := time.Parse("2006-01-02", req.AppointmentDate)
		if err != nil {
			return nil, ErrInvalidDateFormat
		}
		patch.AppointmentDate = appointmentDate
	}
	if req.StartTime != "" {
		startTime, err := time.Parse("15:04", req.StartTime)
		if err != nil {
			return nil, ErrInvalidTimeFormat
		}
		patch.StartTime = startTime.Format("15:04")
	}
	if req.EndTime != "" {
		endTime, err := time.Parse("15:04", req.EndTime)
		if err != nil {
			return nil, ErrInvalidTimeFormat
		}
		patch.EndTime = endTime.Format("15:04")
	}

	return patch, nil
}

// normalizeTimeSlot rejects malformed times and degenerate slots at the
// boundary and returns both times re-rendered as zero-padded HH:MM. The
// parser accepts "9:30", but only the canonical form orders correctly
// under the fixed-width comparisons the overlap check relies on.
func normalizeTimeSlot(startTime, endTime string) (string, string, error) {
	start, err := time.Parse("15:04", startTime)
	if err != nil {
		return "", "", ErrInvalidTimeFormat
	}
	end, err := time.Parse("15:04", endTime)
	if err != nil {
		return "", "", ErrInvalidTimeFormat
	}

	startTime = start.Format("15:04")
	endTime = end.Format("15:04")
	if startTime >= endTime {
		return "", "", ErrInvalidTimeRange
	}
	return startTime, endTime, nil
}
