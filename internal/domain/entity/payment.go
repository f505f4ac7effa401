package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment represents a payment record linked to an invoice.
// At most one payment exists per appointment+invoice pairing; later
// state changes update it in place. Payments are never deleted.
type Payment struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	AppointmentID *uuid.UUID    `gorm:"type:uuid;index" json:"appointment_id,omitempty"`
	InvoiceID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount        int64         `gorm:"not null" json:"amount"`
	Method        PaymentMode   `gorm:"type:varchar(20);not null" json:"method"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
