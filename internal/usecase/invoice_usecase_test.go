package usecase

import (
	"context"
	"testing"

	"kbr-hospital-backend/internal/domain/entity"
	implrepo "kbr-hospital-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInvoiceUsecase(env *testEnv) InvoiceUsecase {
	return NewInvoiceUsecase(env.db, env.log, implrepo.NewInvoiceRepository(), env.reconcileService, env.auditService)
}

func TestGetInvoiceByAppointment(t *testing.T) {
	env := newTestEnv(t)
	invoices := newInvoiceUsecase(env)
	ctx := context.Background()

	appt := env.createAppointment(t, entity.PaymentModeCash)
	_, err := env.appointments.Confirm(ctx, appt.ID)
	require.NoError(t, err)

	invoice, err := invoices.GetInvoiceByAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.Fees, invoice.TotalAmount)
	assert.Equal(t, string(entity.InvoiceStatusPaid), invoice.Status)

	_, err = invoices.GetInvoiceByAppointment(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestReconcileInvoicesReportsAndAudits(t *testing.T) {
	env := newTestEnv(t)
	invoices := newInvoiceUsecase(env)
	ctx := context.Background()

	require.NoError(t, env.db.Create(&entity.Invoice{
		InvoiceNumber: "KBR-INV-202601-000042",
		PatientName:   "Drifted",
		Status:        entity.InvoiceStatusDraft,
		PaymentStatus: entity.PaymentStatusPaid,
		TotalAmount:   10000,
	}).Error)

	result, err := invoices.ReconcileInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.Corrected)

	var auditCount int64
	require.NoError(t, env.db.Model(&entity.AuditLog{}).
		Where("action = ?", entity.AuditActionInvoiceReconcile).Count(&auditCount).Error)
	assert.Equal(t, int64(1), auditCount)

	// Nothing left to correct on the second pass
	result, err = invoices.ReconcileInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Corrected)
}
