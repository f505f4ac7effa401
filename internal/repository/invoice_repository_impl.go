package repository

import (
	"errors"

	"kbr-hospital-backend/internal/domain/entity"
	domainRepo "kbr-hospital-backend/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type invoiceRepository struct{}

func NewInvoiceRepository() domainRepo.InvoiceRepository {
	return &invoiceRepository{}
}

func (r *invoiceRepository) Create(db *gorm.DB, invoice *entity.Invoice) error {
	return db.Create(invoice).Error
}

func (r *invoiceRepository) Save(db *gorm.DB, invoice *entity.Invoice) error {
	return db.Save(invoice).Error
}

func (r *invoiceRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := db.Preload("Items").Where("id = ?", id).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByAppointmentID(db *gorm.DB, appointmentID uuid.UUID) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := db.Preload("Items").Where("appointment_id = ?", appointmentID).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByPatientAndDescription(db *gorm.DB, patientName, patientPhone, descriptionPart string) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := db.Preload("Items").
		Where("patient_name = ? AND patient_phone = ? AND description LIKE ?", patientName, patientPhone, "%"+descriptionPart+"%").
		Order("created_at DESC").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindAll(db *gorm.DB) ([]entity.Invoice, error) {
	var invoices []entity.Invoice
	err := db.Preload("Items").Order("created_at DESC").Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
