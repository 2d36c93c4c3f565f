package entity

import (
	"time"
)

// Doctor represents a practitioner who can be booked for appointments.
type Doctor struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"type:text;not null" json:"-"`
	PhoneNumber    string    `gorm:"type:varchar(20)" json:"phone_number,omitempty"`
	Specialization string    `gorm:"type:varchar(100);index" json:"specialization,omitempty"`
	Biography      string    `gorm:"type:text" json:"biography,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointments []Appointment `gorm:"foreignKey:DoctorID" json:"appointments,omitempty"`
}

func (Doctor) TableName() string {
	return "doctors"
}
