package service

import (
	"context"
	"fmt"
	"time"

	"kbr-hospital-backend/config"
	"kbr-hospital-backend/internal/domain/entity"
	"kbr-hospital-backend/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReconcileService keeps Payment and Invoice records consistent with
// appointment payment state. Search always precedes create, so repeated
// calls with identical inputs never produce a second Payment or Invoice.
// Records are updated in place and never deleted.
type ReconcileService struct {
	db          *gorm.DB
	log         *logrus.Logger
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	cfg         config.InvoiceConfig
}

func NewReconcileService(
	db *gorm.DB,
	log *logrus.Logger,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	cfg config.InvoiceConfig,
) *ReconcileService {
	return &ReconcileService{
		db:          db,
		log:         log,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		cfg:         cfg,
	}
}

// OnPaymentStatusChange reacts to an appointment payment-state transition.
// Runs inside the caller's transaction so the ledger write and the
// invoice/payment writes land together.
func (s *ReconcileService) OnPaymentStatusChange(ctx context.Context, tx *gorm.DB, appt *entity.Appointment, oldStatus, newStatus entity.PaymentStatus) error {
	if oldStatus == newStatus {
		return nil
	}

	switch newStatus {
	case entity.PaymentStatusPaid:
		return s.settle(ctx, tx, appt)
	case entity.PaymentStatusPending, entity.PaymentStatusRefunded:
		return s.reverse(ctx, tx, appt, newStatus)
	}
	return nil
}

// settle marks the appointment's invoice and payment as paid, synthesizing
// them when absent. Exactly one invoice and one payment per appointment.
func (s *ReconcileService) settle(ctx context.Context, tx *gorm.DB, appt *entity.Appointment) error {
	invoice, err := s.findOrCreateInvoice(ctx, tx, appt)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	invoice.Status = entity.InvoiceStatusPaid
	invoice.PaymentStatus = entity.PaymentStatusPaid
	invoice.PaymentDate = &now
	if err := s.invoiceRepo.Save(tx, invoice); err != nil {
		s.log.Warnf("Failed to mark invoice %s paid for appointment %s: %+v", invoice.InvoiceNumber, appt.ID, err)
		return fmt.Errorf("mark invoice paid: %w", err)
	}

	payment, err := s.findPayment(tx, appt, invoice)
	if err != nil {
		return err
	}

	if payment == nil {
		payment = &entity.Payment{
			AppointmentID: &appt.ID,
			InvoiceID:     invoice.ID,
			Amount:        appt.Fees,
			Method:        appt.PaymentMode,
			Status:        entity.PaymentStatusPaid,
			PaidAt:        &now,
		}
		if err := s.paymentRepo.Create(tx, payment); err != nil {
			s.log.Warnf("Failed to create payment for appointment %s: %+v", appt.ID, err)
			return fmt.Errorf("create payment: %w", err)
		}
		return nil
	}

	// Update in place, never insert a duplicate
	payment.Status = entity.PaymentStatusPaid
	payment.Method = appt.PaymentMode
	payment.Amount = appt.Fees
	payment.PaidAt = &now
	if payment.AppointmentID == nil {
		payment.AppointmentID = &appt.ID
	}
	if err := s.paymentRepo.Save(tx, payment); err != nil {
		s.log.Warnf("Failed to update payment %s for appointment %s: %+v", payment.ID, appt.ID, err)
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

// reverse walks a paid appointment back to pending: invoice returns to draft
// and the payment to the target status. Nothing is deleted.
func (s *ReconcileService) reverse(ctx context.Context, tx *gorm.DB, appt *entity.Appointment, target entity.PaymentStatus) error {
	invoice, err := s.findInvoice(tx, appt)
	if err != nil {
		return err
	}
	if invoice == nil {
		// Nothing was ever billed; a reversal with no invoice is a no-op
		return nil
	}

	invoice.Status = entity.InvoiceStatusDraft
	invoice.PaymentStatus = entity.PaymentStatusPending
	if err := s.invoiceRepo.Save(tx, invoice); err != nil {
		s.log.Warnf("Failed to revert invoice %s to draft: %+v", invoice.InvoiceNumber, err)
		return fmt.Errorf("revert invoice: %w", err)
	}

	payment, err := s.findPayment(tx, appt, invoice)
	if err != nil {
		return err
	}
	if payment != nil {
		payment.Status = target
		if target == entity.PaymentStatusPending {
			payment.PaidAt = nil
		}
		if err := s.paymentRepo.Save(tx, payment); err != nil {
			s.log.Warnf("Failed to revert payment %s: %+v", payment.ID, err)
			return fmt.Errorf("revert payment: %w", err)
		}
	}
	return nil
}

// findInvoice locates the appointment's invoice by foreign key, falling back
// to the patient + description migration shim for invoices created before
// appointment_id was set at creation time.
func (s *ReconcileService) findInvoice(tx *gorm.DB, appt *entity.Appointment) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByAppointmentID(tx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("find invoice by appointment: %w", err)
	}
	if invoice != nil {
		return invoice, nil
	}

	invoice, err = s.invoiceRepo.FindByPatientAndDescription(tx, appt.PatientName, appt.PatientPhone, appt.ServiceRef)
	if err != nil {
		return nil, fmt.Errorf("find invoice by patient shim: %w", err)
	}
	if invoice != nil && invoice.AppointmentID == nil {
		// Adopt the legacy invoice so future lookups use the foreign key
		invoice.AppointmentID = &appt.ID
	}
	return invoice, nil
}

func (s *ReconcileService) findOrCreateInvoice(ctx context.Context, tx *gorm.DB, appt *entity.Appointment) (*entity.Invoice, error) {
	invoice, err := s.findInvoice(tx, appt)
	if err != nil {
		return nil, err
	}
	if invoice != nil {
		return invoice, nil
	}

	invoice = &entity.Invoice{
		InvoiceNumber: s.NewInvoiceNumber(time.Now().UTC()),
		AppointmentID: &appt.ID,
		PatientName:   appt.PatientName,
		PatientPhone:  appt.PatientPhone,
		Description:   fmt.Sprintf("Consultation %s", appt.ServiceRef),
		Status:        entity.InvoiceStatusDraft,
		PaymentStatus: entity.PaymentStatusPending,
		TotalAmount:   appt.Fees,
		Items: []entity.InvoiceItem{
			{Description: appt.ServiceRef, Quantity: 1, Amount: appt.Fees},
		},
	}

	if err := s.invoiceRepo.Create(tx, invoice); err != nil {
		if isDuplicateKeyError(err) {
			// A concurrent reconciliation created it first; the unique index
			// on appointment_id guarantees there is exactly one to fetch
			existing, findErr := s.invoiceRepo.FindByAppointmentID(tx, appt.ID)
			if findErr != nil {
				return nil, fmt.Errorf("refetch invoice after duplicate: %w", findErr)
			}
			if existing != nil {
				return existing, nil
			}
		}
		s.log.Warnf("Failed to create invoice for appointment %s: %+v", appt.ID, err)
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.log.Infof("Invoice synthesized: number=%s, appointment=%s, amount=%d", invoice.InvoiceNumber, appt.ID, invoice.TotalAmount)
	return invoice, nil
}

func (s *ReconcileService) findPayment(tx *gorm.DB, appt *entity.Appointment, invoice *entity.Invoice) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByAppointmentID(tx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("find payment by appointment: %w", err)
	}
	if payment != nil {
		return payment, nil
	}
	payment, err = s.paymentRepo.FindByInvoiceID(tx, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("find payment by invoice: %w", err)
	}
	return payment, nil
}

// NewInvoiceNumber builds an invoice number: PREFIX-INV-yyyymm-<timestamp6>
func (s *ReconcileService) NewInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("%s-INV-%s-%06d", s.cfg.Prefix, now.Format("200601"), now.UnixMilli()%1000000)
}

// ReconcileAll scans every invoice and rewrites the document status to match
// the payment status under {paid -> paid, pending -> draft}. Returns the
// scanned and corrected counts; a second run on consistent data performs
// zero writes.
func (s *ReconcileService) ReconcileAll(ctx context.Context) (int, int, error) {
	invoices, err := s.invoiceRepo.FindAll(s.db.WithContext(ctx))
	if err != nil {
		s.log.Warnf("Failed to load invoices for reconciliation: %+v", err)
		return 0, 0, fmt.Errorf("load invoices: %w", err)
	}

	corrected := 0
	for i := range invoices {
		invoice := &invoices[i]
		if invoice.IsConsistent() {
			continue
		}

		expected := invoice.ExpectedStatus()
		s.log.Infof("Invoice drift: number=%s, status=%s, payment_status=%s, corrected to %s",
			invoice.InvoiceNumber, invoice.Status, invoice.PaymentStatus, expected)

		invoice.Status = expected
		if err := s.invoiceRepo.Save(s.db.WithContext(ctx), invoice); err != nil {
			s.log.Warnf("Failed to correct invoice %s: %+v", invoice.InvoiceNumber, err)
			return len(invoices), corrected, fmt.Errorf("correct invoice %s: %w", invoice.InvoiceNumber, err)
		}
		corrected++
	}

	if corrected > 0 {
		s.log.Infof("Reconciliation corrected %d of %d invoices", corrected, len(invoices))
	}
	return len(invoices), corrected, nil
}
