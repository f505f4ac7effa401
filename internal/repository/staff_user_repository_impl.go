package repository

import (
	"errors"

	"kbr-hospital-backend/internal/domain/entity"
	domainRepo "kbr-hospital-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type staffUserRepository struct{}

func NewStaffUserRepository() domainRepo.StaffUserRepository {
	return &staffUserRepository{}
}

func (r *staffUserRepository) Create(db *gorm.DB, user *entity.StaffUser) error {
	return db.Create(user).Error
}

func (r *staffUserRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.StaffUser, error) {
	var user entity.StaffUser
	err := db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *staffUserRepository) FindByEmail(db *gorm.DB, email string) (*entity.StaffUser, error) {
	var user entity.StaffUser
	err := db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
