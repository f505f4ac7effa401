package usecase

import (
	"context"
	"errors"
	"fmt"

	"kbr-hospital-backend/internal/converter"
	"kbr-hospital-backend/internal/delivery/dto"
	"kbr-hospital-backend/internal/delivery/http/middleware"
	"kbr-hospital-backend/internal/domain/entity"
	"kbr-hospital-backend/internal/domain/repository"
	"kbr-hospital-backend/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidTransition   = errors.New("invalid appointment status transition")
)

// WarningRecreated is attached when an update targeted a missing appointment
// and the record was recreated from the payload instead of failing the caller
const WarningRecreated = "appointment did not exist and was recreated from the update payload"

type AppointmentUsecase interface {
	GetAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error)
	Confirm(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Admit(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Complete(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Cancel(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	Reschedule(ctx context.Context, id uuid.UUID, req *dto.RescheduleRequest) (*dto.AppointmentResponse, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
}

type appointmentUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	appointmentRepo  repository.AppointmentRepository
	tokenRepo        repository.TokenRepository
	tokenService     *service.TokenService
	reconcileService *service.ReconcileService
	auditService     service.AuditService
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	tokenRepo repository.TokenRepository,
	tokenService *service.TokenService,
	reconcileService *service.ReconcileService,
	auditService service.AuditService,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:               db,
		log:              log,
		appointmentRepo:  appointmentRepo,
		tokenRepo:        tokenRepo,
		tokenService:     tokenService,
		reconcileService: reconcileService,
		auditService:     auditService,
	}
}

func (u *appointmentUsecase) GetAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	appointments, err := u.appointmentRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to find appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return converter.AppointmentToResponse(appointment), nil
}

// Confirm moves a pending appointment to confirmed. For cash/UPI/card
// bookings confirmation settles the payment automatically; PayAtHospital
// stays pending until an explicit MarkPaid.
func (u *appointmentUsecase) Confirm(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, entity.AuditActionAppointmentConfirm,
		[]entity.AppointmentStatus{entity.AppointmentStatusPending},
		entity.AppointmentStatusConfirmed, true)
}

// Admit marks the patient as admitted, independent of payment state
func (u *appointmentUsecase) Admit(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, entity.AuditActionAppointmentAdmit,
		[]entity.AppointmentStatus{entity.AppointmentStatusPending, entity.AppointmentStatusConfirmed},
		entity.AppointmentStatusAdmitted, false)
}

// Complete closes out a confirmed or admitted appointment
func (u *appointmentUsecase) Complete(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, entity.AuditActionAppointmentComplete,
		[]entity.AppointmentStatus{entity.AppointmentStatusConfirmed, entity.AppointmentStatusAdmitted},
		entity.AppointmentStatusCompleted, true)
}

// Cancel is an explicit staff action; payment state is left for a separate
// explicit refund edit
func (u *appointmentUsecase) Cancel(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return u.transition(ctx, id, entity.AuditActionAppointmentCancel,
		[]entity.AppointmentStatus{entity.AppointmentStatusPending, entity.AppointmentStatusConfirmed},
		entity.AppointmentStatusCancelled, false)
}

// Reschedule moves a non-terminal appointment to a new slot. The rescheduled
// state is transient: the appointment folds back to confirmed on save.
func (u *appointmentUsecase) Reschedule(ctx context.Context, id uuid.UUID, req *dto.RescheduleRequest) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if appointment.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	oldDate, oldTime := appointment.ScheduledDate, appointment.ScheduledTime
	oldPayment := appointment.PaymentStatus
	appointment.ScheduledDate = req.Date
	appointment.ScheduledTime = req.Time
	appointment.Status = entity.AppointmentStatusConfirmed
	autoSettled := u.applyPaymentPolicy(appointment)

	staffID := staffIDFromContext(ctx)
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := u.appointmentRepo.Save(tx, appointment); err != nil {
			return err
		}
		if autoSettled {
			if err := u.reconcileService.OnPaymentStatusChange(ctx, tx, appointment, oldPayment, appointment.PaymentStatus); err != nil {
				return err
			}
		}
		return u.auditService.LogChange(ctx, tx, staffID, entity.AuditActionAppointmentReschedule, "appointment", appointment.ID.String(),
			fmt.Sprintf("%s %s", oldDate, oldTime), fmt.Sprintf("%s %s", req.Date, req.Time))
	})
	if err != nil {
		u.log.Warnf("Failed to reschedule appointment %s: %+v", id, err)
		return nil, err
	}

	u.log.Infof("Appointment rescheduled: id=%s, slot=%s %s", id, req.Date, req.Time)
	return converter.AppointmentToResponse(appointment), nil
}

// MarkPaid is the explicit staff settlement action. It is the only path that
// settles a PayAtHospital booking.
func (u *appointmentUsecase) MarkPaid(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if appointment.IsCancelled() {
		return nil, ErrInvalidTransition
	}
	if appointment.PaymentStatus == entity.PaymentStatusPaid {
		return converter.AppointmentToResponse(appointment), nil
	}

	oldPayment := appointment.PaymentStatus
	appointment.PaymentStatus = entity.PaymentStatusPaid

	staffID := staffIDFromContext(ctx)
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := u.appointmentRepo.Save(tx, appointment); err != nil {
			return err
		}
		if err := u.reconcileService.OnPaymentStatusChange(ctx, tx, appointment, oldPayment, entity.PaymentStatusPaid); err != nil {
			return err
		}
		return u.auditService.LogChange(ctx, tx, staffID, entity.AuditActionAppointmentMarkPaid, "appointment", appointment.ID.String(),
			string(oldPayment), string(entity.PaymentStatusPaid))
	})
	if err != nil {
		u.log.Warnf("Failed to mark appointment %s paid: %+v", id, err)
		return nil, err
	}

	u.log.Infof("Appointment marked paid by staff: id=%s, token=%s", id, appointment.TokenNumber)
	return converter.AppointmentToResponse(appointment), nil
}

// UpdateAppointment applies explicit staff edits. A missing target is not an
// error: the record is recreated from the payload and the response carries a
// soft warning.
func (u *appointmentUsecase) UpdateAppointment(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return u.upsertFromUpdate(ctx, id, req)
	}

	oldPayment := appointment.PaymentStatus
	oldStatus := appointment.Status
	applyUpdate(appointment, req)

	// An explicit payment_status in the payload is a staff override; only
	// apply the automatic policy when the staff left payment state alone.
	if req.PaymentStatus == nil {
		u.applyPaymentPolicy(appointment)
	}

	staffID := staffIDFromContext(ctx)
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := u.appointmentRepo.Save(tx, appointment); err != nil {
			return err
		}
		if appointment.PaymentStatus != oldPayment {
			if err := u.reconcileService.OnPaymentStatusChange(ctx, tx, appointment, oldPayment, appointment.PaymentStatus); err != nil {
				return err
			}
		}
		return u.auditService.LogChange(ctx, tx, staffID, entity.AuditActionAppointmentUpdate, "appointment", appointment.ID.String(),
			string(oldStatus), string(appointment.Status))
	})
	if err != nil {
		u.log.Warnf("Failed to update appointment %s: %+v", id, err)
		return nil, err
	}

	return converter.AppointmentToResponse(appointment), nil
}

// upsertFromUpdate recreates a missing appointment from the update payload.
// The caller gets a success with a warning instead of a not-found failure.
func (u *appointmentUsecase) upsertFromUpdate(ctx context.Context, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	u.log.Warnf("Update targeted missing appointment %s, recreating from payload", id)

	appointment := &entity.Appointment{
		ID:            id,
		Status:        entity.AppointmentStatusPending,
		PaymentMode:   entity.PaymentModePayAtHospital,
		PaymentStatus: entity.PaymentStatusPending,
	}
	applyUpdate(appointment, req)
	if appointment.PatientName == "" {
		appointment.PatientName = "Unknown"
	}

	// Same override rule as the normal update path: the automatic payment
	// policy runs only when the payload leaves payment state alone
	if req.PaymentStatus == nil {
		u.applyPaymentPolicy(appointment)
	}

	// Token first: the counter increment is its own transaction and issued
	// tokens are never rolled back
	tokenNumber, tokenErr := u.tokenService.NextToken(ctx)
	if tokenErr != nil {
		tokenNumber = u.tokenService.FallbackToken()
	}
	appointment.TokenNumber = tokenNumber

	staffID := staffIDFromContext(ctx)
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := u.appointmentRepo.Create(tx, appointment); err != nil {
			return err
		}
		token := &entity.AppointmentToken{
			TokenNumber:   tokenNumber,
			AppointmentID: &appointment.ID,
			PatientName:   appointment.PatientName,
			Status:        entity.TokenStatusActive,
			Offline:       tokenErr != nil,
		}
		if err := u.tokenRepo.CreateToken(tx, token); err != nil {
			return err
		}
		if appointment.PaymentStatus == entity.PaymentStatusPaid {
			if err := u.reconcileService.OnPaymentStatusChange(ctx, tx, appointment, entity.PaymentStatusPending, entity.PaymentStatusPaid); err != nil {
				return err
			}
		}
		return u.auditService.LogAction(ctx, tx, staffID, entity.AuditActionAppointmentUpdate, "appointment", appointment.ID.String(),
			entity.JSON{"recreated": true})
	})
	if err != nil {
		u.log.Warnf("Failed to recreate appointment %s: %+v", id, err)
		return nil, err
	}

	response := converter.AppointmentToResponse(appointment)
	response.Warning = WarningRecreated
	return response, nil
}

// transition is the shared path for the explicit staff status actions
func (u *appointmentUsecase) transition(
	ctx context.Context,
	id uuid.UUID,
	action string,
	from []entity.AppointmentStatus,
	to entity.AppointmentStatus,
	applyPolicy bool,
) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	allowed := false
	for _, s := range from {
		if appointment.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidTransition
	}

	oldStatus := appointment.Status
	oldPayment := appointment.PaymentStatus
	appointment.Status = to

	if applyPolicy {
		u.applyPaymentPolicy(appointment)
	}

	staffID := staffIDFromContext(ctx)
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := u.appointmentRepo.Save(tx, appointment); err != nil {
			return err
		}
		if appointment.PaymentStatus != oldPayment {
			if err := u.reconcileService.OnPaymentStatusChange(ctx, tx, appointment, oldPayment, appointment.PaymentStatus); err != nil {
				return err
			}
		}
		if err := u.syncTokenStatus(tx, appointment); err != nil {
			return err
		}
		return u.auditService.LogChange(ctx, tx, staffID, action, "appointment", appointment.ID.String(),
			string(oldStatus), string(to))
	})
	if err != nil {
		u.log.Warnf("Failed appointment transition %s -> %s for %s: %+v", oldStatus, to, id, err)
		return nil, err
	}

	u.log.Infof("Appointment transition: id=%s, %s -> %s, payment=%s", id, oldStatus, to, appointment.PaymentStatus)
	return converter.AppointmentToResponse(appointment), nil
}

// applyPaymentPolicy auto-settles cash/UPI/card bookings once the
// appointment is confirmed or completed. PayAtHospital never auto-settles.
// Returns true when the payment status changed.
func (u *appointmentUsecase) applyPaymentPolicy(appointment *entity.Appointment) bool {
	if appointment.PaymentStatus != entity.PaymentStatusPending {
		return false
	}
	if !appointment.PaymentMode.AutoSettlesOnConfirm() {
		return false
	}
	switch appointment.Status {
	case entity.AppointmentStatusConfirmed, entity.AppointmentStatusCompleted:
		appointment.PaymentStatus = entity.PaymentStatusPaid
		return true
	}
	return false
}

// syncTokenStatus keeps the token record in step with terminal transitions
func (u *appointmentUsecase) syncTokenStatus(tx *gorm.DB, appointment *entity.Appointment) error {
	switch appointment.Status {
	case entity.AppointmentStatusCompleted:
		return u.tokenRepo.UpdateStatus(tx, appointment.TokenNumber, entity.TokenStatusUsed)
	case entity.AppointmentStatusCancelled:
		return u.tokenRepo.UpdateStatus(tx, appointment.TokenNumber, entity.TokenStatusCancelled)
	}
	return nil
}

func applyUpdate(appointment *entity.Appointment, req *dto.UpdateAppointmentRequest) {
	if req.PatientName != nil {
		appointment.PatientName = *req.PatientName
	}
	if req.Phone != nil {
		appointment.PatientPhone = *req.Phone
	}
	if req.DoctorID != nil {
		appointment.DoctorRef = *req.DoctorID
	}
	if req.ServiceID != nil {
		appointment.ServiceRef = *req.ServiceID
	}
	if req.Date != nil {
		appointment.ScheduledDate = *req.Date
	}
	if req.Time != nil {
		appointment.ScheduledTime = *req.Time
	}
	if req.Status != nil {
		appointment.Status = entity.AppointmentStatus(*req.Status)
	}
	if req.PaymentMode != nil {
		appointment.PaymentMode = entity.PaymentMode(*req.PaymentMode)
	}
	if req.PaymentStatus != nil {
		appointment.PaymentStatus = entity.PaymentStatus(*req.PaymentStatus)
	}
	if req.Fees != nil {
		appointment.Fees = *req.Fees
	}
	if req.Symptoms != nil {
		appointment.Symptoms = *req.Symptoms
	}
}

// staffIDFromContext reads the authenticated staff member, if any. Anonymous
// callers are fine: booking must never block on auth.
func staffIDFromContext(ctx context.Context) *uuid.UUID {
	staffID, ok := middleware.GetStaffIDFromContext(ctx)
	if !ok {
		return nil
	}
	return &staffID
}
