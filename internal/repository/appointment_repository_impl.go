package repository

import (
	"context"
	"errors"

	"clinic-appointment-service/internal/domain/entity"
	domainRepo "clinic-appointment-service/internal/domain/repository"

	"gorm.io/gorm"
)

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) domainRepo.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *entity.Appointment) error {
	return r.db.WithContext(ctx).Create(appointment).Error
}

func (r *appointmentRepository) Save(ctx context.Context, appointment *entity.Appointment) error {
	return r.db.WithContext(ctx).Omit("Doctor", "Patient").Save(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, id int64) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByDoctorID(ctx context.Context, doctorID int64) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("appointment_date ASC, start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindByPatientID(ctx context.Context, patientID int64) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("appointment_date ASC, start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

// FindFiltered folds the filter's scopes into a single query, so each
// present criterion narrows the result set and absent criteria are
// pass-through. Callers guarantee the filter names a doctor or a patient.
func (r *appointmentRepository) FindFiltered(ctx context.Context, filter *entity.AppointmentFilter) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := r.db.WithContext(ctx).
		Scopes(filter.Scopes()...).
		Preload("Doctor").Preload("Patient").
		Order("appointment_date ASC, start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}
