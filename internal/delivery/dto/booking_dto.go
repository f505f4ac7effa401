package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type BookingRequest struct {
	PatientName string `json:"patient_name" validate:"required,min=2,max=255"`
	Phone       string `json:"phone" validate:"omitempty,min=10,max=20"`
	Age         int    `json:"age" validate:"omitempty,gte=0,lte=130"`
	Gender      string `json:"gender" validate:"omitempty,oneof=M F"`
	DoctorID    string `json:"doctor_id" validate:"required"`
	ServiceID   string `json:"service_id" validate:"required"`
	Date        string `json:"date" validate:"required"` // Format: YYYY-MM-DD
	Time        string `json:"time" validate:"required"` // Format: HH:MM
	PaymentMode string `json:"payment_mode" validate:"required,oneof=cash upi card pay_at_hospital online"`
	Fees        int64  `json:"fees" validate:"gte=0"`
	Symptoms    string `json:"symptoms" validate:"omitempty"`
}

// Response DTOs

type BookingResult struct {
	TokenNumber   string     `json:"token_number"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	ClientRef     *uuid.UUID `json:"client_ref,omitempty"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	SyncStatus    string     `json:"sync_status"`
}

type PendingBookingResponse struct {
	ClientRef     uuid.UUID `json:"client_ref"`
	PatientName   string    `json:"patient_name"`
	DoctorID      string    `json:"doctor_id"`
	ServiceID     string    `json:"service_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	FallbackToken string    `json:"fallback_token"`
	SyncStatus    string    `json:"sync_status"`
	QueuedAt      time.Time `json:"queued_at"`
	Attempts      int       `json:"attempts"`
}

type PendingBookingsResponse struct {
	Bookings []PendingBookingResponse `json:"bookings"`
	Total    int                      `json:"total"`
}

type SyncReport struct {
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}
