package repository

import (
	"kbr-hospital-backend/internal/domain/entity"

	"gorm.io/gorm"
)

type TokenRepository interface {
	CreateToken(db *gorm.DB, token *entity.AppointmentToken) error
	FindByNumber(db *gorm.DB, tokenNumber string) (*entity.AppointmentToken, error)
	UpdateStatus(db *gorm.DB, tokenNumber string, status entity.TokenStatus) error

	// BumpCounter advances the shared sequence counter by one and returns the
	// new value. Must run inside a transaction; an absent counter row is
	// created at value 1 and a concurrent create surfaces as a duplicate-key
	// error for the caller to retry.
	BumpCounter(db *gorm.DB, counterID string) (int64, error)
}
