package repository

import (
	"context"

	"clinic-appointment-service/internal/domain/entity"
)

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entity.Appointment) error
	Save(ctx context.Context, appointment *entity.Appointment) error
	FindByID(ctx context.Context, id int64) (*entity.Appointment, error)
	FindByDoctorID(ctx context.Context, doctorID int64) ([]entity.Appointment, error)
	FindByPatientID(ctx context.Context, patientID int64) ([]entity.Appointment, error)
	FindFiltered(ctx context.Context, filter *entity.AppointmentFilter) ([]entity.Appointment, error)
}
