package repository

import (
	"errors"

	"kbr-hospital-backend/internal/domain/entity"
	domainRepo "kbr-hospital-backend/internal/domain/repository"

	"gorm.io/gorm"
)

type tokenRepository struct{}

func NewTokenRepository() domainRepo.TokenRepository {
	return &tokenRepository{}
}

func (r *tokenRepository) CreateToken(db *gorm.DB, token *entity.AppointmentToken) error {
	return db.Create(token).Error
}

func (r *tokenRepository) FindByNumber(db *gorm.DB, tokenNumber string) (*entity.AppointmentToken, error) {
	var token entity.AppointmentToken
	err := db.Where("token_number = ?", tokenNumber).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) UpdateStatus(db *gorm.DB, tokenNumber string, status entity.TokenStatus) error {
	return db.Model(&entity.AppointmentToken{}).
		Where("token_number = ?", tokenNumber).
		Update("status", status).Error
}

// BumpCounter increments the counter row with a single UPDATE so the
// read-modify-write is atomic under concurrent transactions. The read-back
// happens inside the same transaction, while the row lock from the UPDATE is
// still held.
func (r *tokenRepository) BumpCounter(db *gorm.DB, counterID string) (int64, error) {
	result := db.Model(&entity.SequenceCounter{}).
		Where("id = ?", counterID).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		// First allocation ever: seed the counter at 1. A concurrent seeder
		// loses on the primary key and the caller retries the transaction.
		counter := &entity.SequenceCounter{ID: counterID, Value: 1}
		if err := db.Create(counter).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}

	var counter entity.SequenceCounter
	if err := db.Where("id = ?", counterID).First(&counter).Error; err != nil {
		return 0, err
	}
	return counter.Value, nil
}
