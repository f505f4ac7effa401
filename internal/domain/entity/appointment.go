package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "pending"
	AppointmentStatusConfirmed   AppointmentStatus = "confirmed"
	AppointmentStatusAdmitted    AppointmentStatus = "admitted"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// PaymentMode represents how the patient intends to pay
type PaymentMode string

const (
	PaymentModeCash          PaymentMode = "cash"
	PaymentModeUPI           PaymentMode = "upi"
	PaymentModeCard          PaymentMode = "card"
	PaymentModePayAtHospital PaymentMode = "pay_at_hospital"
	PaymentModeOnline        PaymentMode = "online"
)

// PaymentStatus represents the payment state of an appointment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// SyncStatus marks whether a booking has reached the authoritative store
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
)

// Appointment represents a patient appointment transaction.
// Fees and amounts are stored in integer minor units (paise).
type Appointment struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ClientRef     *uuid.UUID        `gorm:"type:uuid;uniqueIndex" json:"client_ref,omitempty"`
	PatientName   string            `gorm:"type:varchar(255);not null" json:"patient_name"`
	PatientPhone  string            `gorm:"type:varchar(20);index" json:"patient_phone"`
	PatientAge    int               `json:"patient_age"`
	PatientGender string            `gorm:"type:varchar(10)" json:"patient_gender"`
	DoctorRef     string            `gorm:"type:varchar(100);not null;index" json:"doctor_ref"`
	ServiceRef    string            `gorm:"type:varchar(100);not null" json:"service_ref"`
	ScheduledDate string            `gorm:"type:varchar(10);not null;index" json:"scheduled_date"`
	ScheduledTime string            `gorm:"type:varchar(5);not null" json:"scheduled_time"`
	Status        AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMode   PaymentMode       `gorm:"type:varchar(20);not null" json:"payment_mode"`
	PaymentStatus PaymentStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	Fees          int64             `gorm:"not null" json:"fees"`
	TokenNumber   string            `gorm:"type:varchar(50);uniqueIndex;not null" json:"token_number"`
	Symptoms      string            `gorm:"type:text" json:"symptoms"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// BeforeCreate assigns the ID in the application so inserts behave the same
// on postgres and the sqlite used in tests
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the appointment reached a terminal state
func (a *Appointment) IsTerminal() bool {
	return a.Status == AppointmentStatusCompleted || a.Status == AppointmentStatusCancelled
}

// IsCancelled checks if the appointment is cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// AutoSettlesOnConfirm reports whether the payment mode settles without an
// explicit staff action once the appointment is confirmed or completed.
// PayAtHospital never auto-settles.
func (m PaymentMode) AutoSettlesOnConfirm() bool {
	switch m {
	case PaymentModeCash, PaymentModeUPI, PaymentModeCard:
		return true
	}
	return false
}

// IsValid reports whether the payment mode is one of the known modes
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeUPI, PaymentModeCard, PaymentModePayAtHospital, PaymentModeOnline:
		return true
	}
	return false
}
