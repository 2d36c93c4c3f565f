package repository

import (
	"context"
	"errors"

	"clinic-appointment-service/internal/domain/entity"
	domainRepo "clinic-appointment-service/internal/domain/repository"

	"gorm.io/gorm"
)

type doctorRepository struct {
	db *gorm.DB
}

func NewDoctorRepository(db *gorm.DB) domainRepo.DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *entity.Doctor) error {
	return r.db.WithContext(ctx).Create(doctor).Error
}

func (r *doctorRepository) FindByID(ctx context.Context, id int64) (*entity.Doctor, error) {
	var doctor entity.Doctor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) FindByEmail(ctx context.Context, email string) (*entity.Doctor, error) {
	var doctor entity.Doctor
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) FindAll(ctx context.Context) ([]entity.Doctor, error) {
	var doctors []entity.Doctor
	err := r.db.WithContext(ctx).Order("name ASC").Find(&doctors).Error
	if err != nil {
		return nil, err
	}
	return doctors, nil
}
