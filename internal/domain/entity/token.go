package entity

import (
	"time"

	"github.com/google/uuid"
)

// TokenStatus represents the status of an appointment token
type TokenStatus string

const (
	TokenStatusActive    TokenStatus = "active"
	TokenStatusUsed      TokenStatus = "used"
	TokenStatusCancelled TokenStatus = "cancelled"
)

// AppointmentToken is the human-readable identifier issued per appointment.
// TokenNumber is assigned exactly once and never recycled.
type AppointmentToken struct {
	TokenNumber   string      `gorm:"type:varchar(50);primaryKey" json:"token_number"`
	AppointmentID *uuid.UUID  `gorm:"type:uuid;index" json:"appointment_id,omitempty"`
	PatientName   string      `gorm:"type:varchar(255);not null" json:"patient_name"`
	Status        TokenStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Offline       bool        `gorm:"not null;default:false" json:"offline"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func (AppointmentToken) TableName() string {
	return "appointment_tokens"
}

// SequenceCounter is the single persisted counter backing the token sequence.
// Value only moves forward; every increment is observed by at most one token.
type SequenceCounter struct {
	ID        string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SequenceCounter) TableName() string {
	return "sequence_counters"
}
