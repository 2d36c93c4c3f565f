package entity

import (
	"time"
)

// Patient represents a person who books appointments with doctors.
type Patient struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"type:text;not null" json:"-"`
	PhoneNumber string    `gorm:"type:varchar(20)" json:"phone_number,omitempty"`
	DateOfBirth time.Time `gorm:"type:date" json:"date_of_birth"`
	Gender      string    `gorm:"type:char(1)" json:"gender,omitempty"`
	Address     string    `gorm:"type:text" json:"address,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointments []Appointment `gorm:"foreignKey:PatientID" json:"appointments,omitempty"`
}

func (Patient) TableName() string {
	return "patients"
}

// Gender constants
const (
	GenderMale   = "M"
	GenderFemale = "F"
)
