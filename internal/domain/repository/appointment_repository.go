package repository

import (
	"kbr-hospital-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	Save(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByClientRef(db *gorm.DB, clientRef uuid.UUID) (*entity.Appointment, error)
	FindByTokenNumber(db *gorm.DB, tokenNumber string) (*entity.Appointment, error)
	FindAll(db *gorm.DB) ([]entity.Appointment, error)
}
