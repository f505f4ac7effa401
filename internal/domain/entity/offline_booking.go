package entity

import (
	"time"

	"github.com/google/uuid"
)

// OfflineBooking is a booking captured while the authoritative store was
// unreachable. Entries live in the durable queue until replayed; ClientRef
// makes the replay idempotent and FallbackToken is a placeholder discarded
// once the authoritative generator mints the real token.
type OfflineBooking struct {
	ClientRef     uuid.UUID   `json:"client_ref"`
	PatientName   string      `json:"patient_name"`
	PatientPhone  string      `json:"patient_phone"`
	PatientAge    int         `json:"patient_age"`
	PatientGender string      `json:"patient_gender"`
	DoctorRef     string      `json:"doctor_ref"`
	ServiceRef    string      `json:"service_ref"`
	ScheduledDate string      `json:"scheduled_date"`
	ScheduledTime string      `json:"scheduled_time"`
	PaymentMode   PaymentMode `json:"payment_mode"`
	Fees          int64       `json:"fees"`
	Symptoms      string      `json:"symptoms"`
	FallbackToken string      `json:"fallback_token"`
	QueuedAt      time.Time   `json:"queued_at"`
	Attempts      int         `json:"attempts"`
}
