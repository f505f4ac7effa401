package repository

import (
	"kbr-hospital-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StaffUserRepository interface {
	Create(db *gorm.DB, user *entity.StaffUser) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.StaffUser, error)
	FindByEmail(db *gorm.DB, email string) (*entity.StaffUser, error)
}
