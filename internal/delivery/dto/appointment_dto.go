package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// UpdateAppointmentRequest carries explicit staff edits. Pointer fields are
// untouched when nil; a provided payment_status is treated as a staff
// override of the automatic payment policy.
type UpdateAppointmentRequest struct {
	PatientName   *string `json:"patient_name" validate:"omitempty,min=2,max=255"`
	Phone         *string `json:"phone" validate:"omitempty,min=10,max=20"`
	DoctorID      *string `json:"doctor_id" validate:"omitempty"`
	ServiceID     *string `json:"service_id" validate:"omitempty"`
	Date          *string `json:"date" validate:"omitempty"`
	Time          *string `json:"time" validate:"omitempty"`
	Status        *string `json:"status" validate:"omitempty,oneof=pending confirmed admitted completed cancelled"`
	PaymentMode   *string `json:"payment_mode" validate:"omitempty,oneof=cash upi card pay_at_hospital online"`
	PaymentStatus *string `json:"payment_status" validate:"omitempty,oneof=pending paid refunded"`
	Fees          *int64  `json:"fees" validate:"omitempty,gte=0"`
	Symptoms      *string `json:"symptoms" validate:"omitempty"`
}

type RescheduleRequest struct {
	Date string `json:"date" validate:"required"` // Format: YYYY-MM-DD
	Time string `json:"time" validate:"required"` // Format: HH:MM
}

// Response DTOs

type AppointmentResponse struct {
	ID            uuid.UUID `json:"id"`
	PatientName   string    `json:"patient_name"`
	PatientPhone  string    `json:"patient_phone,omitempty"`
	PatientAge    int       `json:"patient_age,omitempty"`
	PatientGender string    `json:"patient_gender,omitempty"`
	DoctorID      string    `json:"doctor_id"`
	ServiceID     string    `json:"service_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
	PaymentMode   string    `json:"payment_mode"`
	PaymentStatus string    `json:"payment_status"`
	Fees          int64     `json:"fees"`
	FeesDisplay   string    `json:"fees_display"`
	TokenNumber   string    `json:"token_number"`
	Symptoms      string    `json:"symptoms,omitempty"`
	Warning       string    `json:"warning,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
