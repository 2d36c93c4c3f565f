package usecase

import (
	"context"

	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

type PatientUsecase interface {
	GetPatient(ctx context.Context, patientID int64) (*dto.PatientResponse, error)
}

type patientUsecase struct {
	log         *logrus.Logger
	patientRepo repository.PatientRepository
}

func NewPatientUsecase(log *logrus.Logger, patientRepo repository.PatientRepository) PatientUsecase {
	return &patientUsecase{
		log:         log,
		patientRepo: patientRepo,
	}
}

func (u *patientUsecase) GetPatient(ctx context.Context, patientID int64) (*dto.PatientResponse, error) {
	patient, err := u.patientRepo.FindByID(ctx, patientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %d: %+v", patientID, err)
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	return converter.PatientToResponse(patient), nil
}
