package repository

import (
	"kbr-hospital-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(db *gorm.DB, invoice *entity.Invoice) error
	Save(db *gorm.DB, invoice *entity.Invoice) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Invoice, error)
	FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.Invoice, error)

	// FindByPatientAndDescription is the migration shim for invoices created
	// before appointment_id was set at creation time. Matches on patient
	// identity plus a description substring.
	FindByPatientAndDescription(db *gorm.DB, patientName, patientPhone, descriptionPart string) (*entity.Invoice, error)

	FindAll(db *gorm.DB) ([]entity.Invoice, error)
}
