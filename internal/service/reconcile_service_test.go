package service

import (
	"context"
	"testing"
	"time"

	"kbr-hospital-backend/config"
	"kbr-hospital-backend/internal/domain/entity"
	"kbr-hospital-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newReconcileService(db *gorm.DB) *ReconcileService {
	return NewReconcileService(db, testLogger(), repository.NewInvoiceRepository(), repository.NewPaymentRepository(), config.InvoiceConfig{
		Prefix: "KBR",
	})
}

func testAppointment() *entity.Appointment {
	return &entity.Appointment{
		ID:            uuid.New(),
		PatientName:   "Asha Rao",
		PatientPhone:  "9876543210",
		DoctorRef:     "dr-sharma",
		ServiceRef:    "general-consultation",
		ScheduledDate: "2026-09-01",
		ScheduledTime: "10:30",
		Status:        entity.AppointmentStatusConfirmed,
		PaymentMode:   entity.PaymentModeCash,
		PaymentStatus: entity.PaymentStatusPaid,
		Fees:          50000,
		TokenNumber:   "KBR-001",
	}
}

func settle(t *testing.T, db *gorm.DB, svc *ReconcileService, appt *entity.Appointment) {
	t.Helper()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.OnPaymentStatusChange(context.Background(), tx, appt, entity.PaymentStatusPending, entity.PaymentStatusPaid)
	})
	require.NoError(t, err)
}

func TestSettleCreatesExactlyOneInvoiceAndPayment(t *testing.T) {
	db := setupTestDB(t)
	svc := newReconcileService(db)
	appt := testAppointment()

	settle(t, db, svc, appt)

	var invoices []entity.Invoice
	require.NoError(t, db.Find(&invoices).Error)
	require.Len(t, invoices, 1)
	assert.Equal(t, entity.InvoiceStatusPaid, invoices[0].Status)
	assert.Equal(t, entity.PaymentStatusPaid, invoices[0].PaymentStatus)
	assert.Equal(t, appt.Fees, invoices[0].TotalAmount)
	require.NotNil(t, invoices[0].AppointmentID)
	assert.Equal(t, appt.ID, *invoices[0].AppointmentID)
	assert.NotNil(t, invoices[0].PaymentDate)

	var payments []entity.Payment
	require.NoError(t, db.Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, entity.PaymentStatusPaid, payments[0].Status)
	assert.Equal(t, appt.Fees, payments[0].Amount)
	assert.Equal(t, entity.PaymentModeCash, payments[0].Method)
}

func TestSettleIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newReconcileService(db)
	appt := testAppointment()

	settle(t, db, svc, appt)
	settle(t, db, svc, appt)
	settle(t, db, svc, appt)

	var invoiceCount, paymentCount int64
	require.NoError(t, db.Model(&entity.Invoice{}).Count(&invoiceCount).Error)
	require.NoError(t, db.Model(&entity.Payment{}).Count(&paymentCount).Error)
	assert.Equal(t, int64(1), invoiceCount)
	assert.Equal(t, int64(1), paymentCount)
}

func TestReverseThenResettleReusesRecords(t *testing.T) {
	db := setupTestDB(t)
	svc := newReconcileService(db)
	appt := testAppointment()

	settle(t, db, svc, appt)

	// Walk the payment back to pending
	appt.PaymentStatus = entity.PaymentStatusPending
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.OnPaymentStatusChange(context.Background(), tx, appt, entity.PaymentStatusPaid, entity.PaymentStatusPending)
	})
	require.NoError(t, err)

	var invoice entity.Invoice
	require.NoError(t, db.First(&invoice).Error)
	assert.Equal(t, entity.InvoiceStatusDraft, invoice.Status)
	assert.Equal(t, entity.PaymentStatusPending, invoice.PaymentStatus)

	var payment entity.Payment
	require.NoError(t, db.First(&payment).Error)
	assert.Equal(t, entity.PaymentStatusPending, payment.Status)
	assert.Nil(t, payment.PaidAt)

	// And forward again: same records, not new ones
	appt.PaymentStatus = entity.PaymentStatusPaid
	settle(t, db, svc, appt)

	var invoiceCount, paymentCount int64
	require.NoError(t, db.Model(&entity.Invoice{}).Count(&invoiceCount).Error)
	require.NoError(t, db.Model(&entity.Payment{}).Count(&paymentCount).Error)
	assert.Equal(t, int64(1), invoiceCount)
	assert.Equal(t, int64(1), paymentCount)
}

func TestReverseWithoutInvoiceIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	svc := newReconcileService(db)
	appt := testAppointment()
	appt.PaymentStatus = entity.PaymentStatusPending

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.OnPaymentStatusChange(context.Background(), tx, appt, entity.PaymentStatusPaid, entity.PaymentStatusPending)
	})
	require.NoError(t, err)

	var invoiceCount int64
	require.NoError(t, db.Model(&entity.Invoice{}).Count(&invoiceCount).Error)
	assert.Equal(t, int64(0), invoiceCount)
}

func TestSettleAdoptsLegacyInvoice(t *testing.T) {
	db := setupTestDB(t)
	svc := newReconcileService(db)
	appt := testAppointment()

	// An invoice from before appointment_id existed: matched by patient
	// identity plus a description mentioning the service
	legacy := &entity.Invoice{
		InvoiceNumber: "KBR-INV-202601-000001",
		PatientName:   appt.PatientName,
		PatientPhone:  appt.PatientPhone,
		Description:   "Consultation general-consultation",
		Status:        entity.InvoiceStatusDraft,
		PaymentStatus: entity.PaymentStatusPending,
		TotalAmount:   appt.Fees,
	}
	require.NoError(t, db.Create(legacy).Error)

	settle(t, db, svc, appt)

	var invoices []entity.Invoice
	require.NoError(t, db.Find(&invoices).Error)
	require.Len(t, invoices, 1, "legacy invoice must be adopted, not duplicated")
	require.NotNil(t, invoices[0].AppointmentID)
	assert.Equal(t, appt.ID, *invoices[0].AppointmentID)
	assert.Equal(t, entity.InvoiceStatusPaid, invoices[0].Status)
}

func TestReconcileAllRepairsDrift(t *testing.T) {
	db := setupTestDB(t)
	svc := newReconcileService(db)
	now := time.Now().UTC()

	consistent := &entity.Invoice{
		InvoiceNumber: "KBR-INV-202601-000010",
		PatientName:   "A",
		Status:        entity.InvoiceStatusPaid,
		PaymentStatus: entity.PaymentStatusPaid,
		TotalAmount:   10000,
		PaymentDate:   &now,
	}
	drifted := &entity.Invoice{
		InvoiceNumber: "KBR-INV-202601-000011",
		PatientName:   "B",
		Status:        entity.InvoiceStatusDraft,
		PaymentStatus: entity.PaymentStatusPaid,
		TotalAmount:   20000,
	}
	pending := &entity.Invoice{
		InvoiceNumber: "KBR-INV-202601-000012",
		PatientName:   "C",
		Status:        entity.InvoiceStatusDraft,
		PaymentStatus: entity.PaymentStatusPending,
		TotalAmount:   30000,
	}
	require.NoError(t, db.Create(consistent).Error)
	require.NoError(t, db.Create(drifted).Error)
	require.NoError(t, db.Create(pending).Error)

	scanned, corrected, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, scanned)
	assert.Equal(t, 1, corrected)

	var repaired entity.Invoice
	require.NoError(t, db.Where("invoice_number = ?", drifted.InvoiceNumber).First(&repaired).Error)
	assert.Equal(t, entity.InvoiceStatusPaid, repaired.Status)

	// Second run over consistent data touches nothing
	scanned, corrected, err = svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, scanned)
	assert.Equal(t, 0, corrected)
}
