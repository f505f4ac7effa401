package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceStatus represents the document status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusPaid  InvoiceStatus = "paid"
)

// Invoice represents a billing document for an appointment.
// Exactly one invoice exists per appointment under normal operation.
// Status and PaymentStatus are written by different flows; the batch
// synchronizer repairs drift between them.
type Invoice struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber string        `gorm:"type:varchar(50);uniqueIndex;not null" json:"invoice_number"`
	AppointmentID *uuid.UUID    `gorm:"type:uuid;uniqueIndex" json:"appointment_id,omitempty"`
	PatientName   string        `gorm:"type:varchar(255);not null;index" json:"patient_name"`
	PatientPhone  string        `gorm:"type:varchar(20);index" json:"patient_phone"`
	Description   string        `gorm:"type:text" json:"description"`
	Status        InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	TotalAmount   int64         `gorm:"not null" json:"total_amount"`
	PaymentDate   *time.Time    `json:"payment_date,omitempty"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

func (Invoice) TableName() string {
	return "invoices"
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// InvoiceItem is a single line on an invoice
type InvoiceItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID   uuid.UUID `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Description string    `gorm:"type:varchar(255);not null" json:"description"`
	Quantity    int       `gorm:"not null;default:1" json:"quantity"`
	Amount      int64     `gorm:"not null" json:"amount"`
}

func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// IsConsistent reports whether the invoice's two status fields agree under
// the mapping {paid -> paid, pending -> draft}
func (i *Invoice) IsConsistent() bool {
	return i.Status == i.ExpectedStatus()
}

// ExpectedStatus derives the document status the payment status implies
func (i *Invoice) ExpectedStatus() InvoiceStatus {
	if i.PaymentStatus == PaymentStatusPaid {
		return InvoiceStatusPaid
	}
	return InvoiceStatusDraft
}
