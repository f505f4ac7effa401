package usecase

import (
	"context"
	"errors"

	"kbr-hospital-backend/internal/converter"
	"kbr-hospital-backend/internal/delivery/dto"
	"kbr-hospital-backend/internal/domain/entity"
	"kbr-hospital-backend/internal/domain/repository"
	"kbr-hospital-backend/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

// WarningInvoicesDegraded signals a degraded read: the invoice store refused
// the query, so the list is empty without being an error.
const WarningInvoicesDegraded = "invoice store unavailable, showing no invoices"

type InvoiceUsecase interface {
	GetInvoices(ctx context.Context) (*dto.InvoiceListResponse, error)
	GetInvoiceByAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.InvoiceResponse, error)
	ReconcileInvoices(ctx context.Context) (*dto.ReconcileResponse, error)
}

type invoiceUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	invoiceRepo      repository.InvoiceRepository
	reconcileService *service.ReconcileService
	auditService     service.AuditService
}

func NewInvoiceUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	invoiceRepo repository.InvoiceRepository,
	reconcileService *service.ReconcileService,
	auditService service.AuditService,
) InvoiceUsecase {
	return &invoiceUsecase{
		db:               db,
		log:              log,
		invoiceRepo:      invoiceRepo,
		reconcileService: reconcileService,
		auditService:     auditService,
	}
}

// GetInvoices lists all invoices. A permission failure on the invoice table
// degrades to an empty list with a warning so the billing screen still
// renders; other errors propagate.
func (u *invoiceUsecase) GetInvoices(ctx context.Context) (*dto.InvoiceListResponse, error) {
	invoices, err := u.invoiceRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		if isPermissionDeniedError(err) {
			u.log.Warnf("Invoice store denied access, returning degraded empty list: %+v", err)
			return &dto.InvoiceListResponse{
				Invoices: []dto.InvoiceResponse{},
				Total:    0,
				Warning:  WarningInvoicesDegraded,
			}, nil
		}
		u.log.Warnf("Failed to list invoices: %+v", err)
		return nil, err
	}

	responses := converter.InvoicesToResponses(invoices)
	return &dto.InvoiceListResponse{
		Invoices: responses,
		Total:    len(responses),
	}, nil
}

func (u *invoiceUsecase) GetInvoiceByAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.InvoiceResponse, error) {
	invoice, err := u.invoiceRepo.FindByAppointmentID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find invoice for appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if invoice == nil {
		return nil, ErrInvoiceNotFound
	}
	return converter.InvoiceToResponse(invoice), nil
}

// ReconcileInvoices runs the full drift repair over the invoice table and
// records the run in the audit trail.
func (u *invoiceUsecase) ReconcileInvoices(ctx context.Context) (*dto.ReconcileResponse, error) {
	scanned, corrected, err := u.reconcileService.ReconcileAll(ctx)
	if err != nil {
		return nil, err
	}

	staffID := staffIDFromContext(ctx)
	if err := u.auditService.LogAction(ctx, u.db.WithContext(ctx), staffID, entity.AuditActionInvoiceReconcile, "invoice", "all",
		entity.JSON{"scanned": scanned, "corrected": corrected}); err != nil {
		u.log.Warnf("Failed to audit reconciliation run: %+v", err)
	}

	return &dto.ReconcileResponse{
		Scanned:   scanned,
		Corrected: corrected,
	}, nil
}

// isPermissionDeniedError detects postgres error 42501 (insufficient
// privilege)
func isPermissionDeniedError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42501"
}
