package usecase

import (
	"context"

	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

type DoctorUsecase interface {
	GetDoctor(ctx context.Context, doctorID int64) (*dto.DoctorResponse, error)
	GetAllDoctors(ctx context.Context) (*dto.DoctorListResponse, error)
}

type doctorUsecase struct {
	log        *logrus.Logger
	doctorRepo repository.DoctorRepository
}

func NewDoctorUsecase(log *logrus.Logger, doctorRepo repository.DoctorRepository) DoctorUsecase {
	return &doctorUsecase{
		log:        log,
		doctorRepo: doctorRepo,
	}
}

func (u *doctorUsecase) GetDoctor(ctx context.Context, doctorID int64) (*dto.DoctorResponse, error) {
	doctor, err := u.doctorRepo.FindByID(ctx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %d: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) GetAllDoctors(ctx context.Context) (*dto.DoctorListResponse, error) {
	doctors, err := u.doctorRepo.FindAll(ctx)
	if err != nil {
		u.log.Warnf("Failed to find doctors: %+v", err)
		return nil, err
	}

	return &dto.DoctorListResponse{
		Doctors: converter.DoctorsToResponses(doctors),
		Total:   len(doctors),
	}, nil
}
