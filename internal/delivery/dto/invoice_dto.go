package dto

import (
	"time"

	"github.com/google/uuid"
)

// Response DTOs

type InvoiceItemResponse struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Amount      int64  `json:"amount"`
}

type InvoiceResponse struct {
	ID            uuid.UUID             `json:"id"`
	InvoiceNumber string                `json:"invoice_number"`
	AppointmentID *uuid.UUID            `json:"appointment_id,omitempty"`
	PatientName   string                `json:"patient_name"`
	Description   string                `json:"description,omitempty"`
	Status        string                `json:"status"`
	PaymentStatus string                `json:"payment_status"`
	TotalAmount   int64                 `json:"total_amount"`
	TotalDisplay  string                `json:"total_display"`
	PaymentDate   *time.Time            `json:"payment_date,omitempty"`
	Items         []InvoiceItemResponse `json:"items,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// InvoiceListResponse distinguishes "empty, no data" from "empty, failed":
// a degraded read returns an empty list with Warning set instead of an error.
type InvoiceListResponse struct {
	Invoices []InvoiceResponse `json:"invoices"`
	Total    int               `json:"total"`
	Warning  string            `json:"warning,omitempty"`
}

type ReconcileResponse struct {
	Scanned   int `json:"scanned"`
	Corrected int `json:"corrected"`
}
