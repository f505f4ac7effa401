package usecase

import (
	"context"
	"errors"
	"time"

	"kbr-hospital-backend/internal/converter"
	"kbr-hospital-backend/internal/delivery/dto"
	"kbr-hospital-backend/internal/domain/entity"
	"kbr-hospital-backend/internal/domain/repository"
	"kbr-hospital-backend/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrInvalidPaymentMode = errors.New("unknown payment mode")
)

type BookingUsecase interface {
	Book(ctx context.Context, req *dto.BookingRequest) (*dto.BookingResult, error)
	SyncPending(ctx context.Context) (*dto.SyncReport, error)
	GetPendingBookings(ctx context.Context) (*dto.PendingBookingsResponse, error)
	GetBookingByToken(ctx context.Context, tokenNumber string) (*dto.AppointmentResponse, error)
}

type bookingUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	appointmentRepo  repository.AppointmentRepository
	tokenRepo        repository.TokenRepository
	tokenService     *service.TokenService
	reconcileService *service.ReconcileService
	auditService     service.AuditService
	queue            service.OfflineQueue
	probe            service.ConnectivityProbe
}

func NewBookingUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	tokenRepo repository.TokenRepository,
	tokenService *service.TokenService,
	reconcileService *service.ReconcileService,
	auditService service.AuditService,
	queue service.OfflineQueue,
	probe service.ConnectivityProbe,
) BookingUsecase {
	return &bookingUsecase{
		db:               db,
		log:              log,
		appointmentRepo:  appointmentRepo,
		tokenRepo:        tokenRepo,
		tokenService:     tokenService,
		reconcileService: reconcileService,
		auditService:     auditService,
		queue:            queue,
		probe:            probe,
	}
}

// Book registers an appointment. Online, the booking goes straight through
// the authoritative token generator and ledger. Offline, or when the online
// path hits a transient storage failure, the booking lands in the durable
// queue with a placeholder token and still succeeds immediately.
func (u *bookingUsecase) Book(ctx context.Context, req *dto.BookingRequest) (*dto.BookingResult, error) {
	mode := entity.PaymentMode(req.PaymentMode)
	if !mode.IsValid() {
		return nil, ErrInvalidPaymentMode
	}

	if !u.probe.Online(ctx) {
		return u.bookOffline(ctx, req)
	}

	result, err := u.bookOnline(ctx, req, nil)
	if err != nil {
		// Storage failed mid-flight; the booking must not fail with it
		u.log.Warnf("Online booking failed, falling back to offline queue: %+v", err)
		return u.bookOffline(ctx, req)
	}
	return result, nil
}

// bookOnline issues an authoritative token and persists the appointment and
// its token record in one transaction. clientRef carries the idempotency key
// when the call comes from the offline replay.
func (u *bookingUsecase) bookOnline(ctx context.Context, req *dto.BookingRequest, clientRef *uuid.UUID) (*dto.BookingResult, error) {
	mode := entity.PaymentMode(req.PaymentMode)

	// Token first: issued tokens are never rolled back, and numbers burned
	// by a failed insert are simply never recycled
	tokenNumber, err := u.tokenService.NextToken(ctx)
	if err != nil {
		return nil, err
	}

	appointment := &entity.Appointment{
		ClientRef:     clientRef,
		PatientName:   req.PatientName,
		PatientPhone:  req.Phone,
		PatientAge:    req.Age,
		PatientGender: req.Gender,
		DoctorRef:     req.DoctorID,
		ServiceRef:    req.ServiceID,
		ScheduledDate: req.Date,
		ScheduledTime: req.Time,
		Status:        entity.AppointmentStatusPending,
		PaymentMode:   mode,
		PaymentStatus: entity.PaymentStatusPending,
		Fees:          req.Fees,
		TokenNumber:   tokenNumber,
		Symptoms:      req.Symptoms,
	}

	// Online payments settle at booking time; every other mode waits for
	// staff action
	if mode == entity.PaymentModeOnline {
		appointment.Status = entity.AppointmentStatusConfirmed
		appointment.PaymentStatus = entity.PaymentStatusPaid
	}

	staffID := staffIDFromContext(ctx)
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := u.appointmentRepo.Create(tx, appointment); err != nil {
			return err
		}

		token := &entity.AppointmentToken{
			TokenNumber:   tokenNumber,
			AppointmentID: &appointment.ID,
			PatientName:   appointment.PatientName,
			Status:        entity.TokenStatusActive,
		}
		if err := u.tokenRepo.CreateToken(tx, token); err != nil {
			return err
		}

		if appointment.PaymentStatus == entity.PaymentStatusPaid {
			if err := u.reconcileService.OnPaymentStatusChange(ctx, tx, appointment, entity.PaymentStatusPending, entity.PaymentStatusPaid); err != nil {
				return err
			}
		}

		return u.auditService.LogAction(ctx, tx, staffID, entity.AuditActionBookingCreate, "appointment", appointment.ID.String(),
			entity.JSON{"token": tokenNumber, "payment_mode": req.PaymentMode})
	})
	if err != nil {
		u.log.Warnf("Failed to persist booking for token %s: %+v", tokenNumber, err)
		return nil, err
	}

	u.log.Infof("Booking created: id=%s, token=%s, status=%s, payment=%s",
		appointment.ID, tokenNumber, appointment.Status, appointment.PaymentStatus)

	return &dto.BookingResult{
		TokenNumber:   tokenNumber,
		AppointmentID: &appointment.ID,
		ClientRef:     clientRef,
		Status:        string(appointment.Status),
		PaymentStatus: string(appointment.PaymentStatus),
		SyncStatus:    string(entity.SyncStatusSynced),
	}, nil
}

// bookOffline queues the booking with a placeholder token and succeeds
// immediately. The placeholder is discarded at sync time in favor of a token
// from the authoritative counter.
func (u *bookingUsecase) bookOffline(ctx context.Context, req *dto.BookingRequest) (*dto.BookingResult, error) {
	clientRef := uuid.New()
	fallback := u.tokenService.FallbackToken()

	booking := &entity.OfflineBooking{
		ClientRef:     clientRef,
		PatientName:   req.PatientName,
		PatientPhone:  req.Phone,
		PatientAge:    req.Age,
		PatientGender: req.Gender,
		DoctorRef:     req.DoctorID,
		ServiceRef:    req.ServiceID,
		ScheduledDate: req.Date,
		ScheduledTime: req.Time,
		PaymentMode:   entity.PaymentMode(req.PaymentMode),
		Fees:          req.Fees,
		Symptoms:      req.Symptoms,
		FallbackToken: fallback,
		QueuedAt:      time.Now().UTC(),
	}

	if err := u.queue.Enqueue(ctx, booking); err != nil {
		return nil, err
	}

	return &dto.BookingResult{
		TokenNumber:   fallback,
		ClientRef:     &clientRef,
		Status:        string(entity.AppointmentStatusPending),
		PaymentStatus: string(entity.PaymentStatusPending),
		SyncStatus:    string(entity.SyncStatusPending),
	}, nil
}

// SyncPending replays queued offline bookings through the online path in
// FIFO order. Successfully synced entries leave the queue; failures rotate
// to the tail and stay pending for the next run. The client ref makes a
// replay after a partial failure idempotent, so nothing is lost or
// duplicated.
func (u *bookingUsecase) SyncPending(ctx context.Context) (*dto.SyncReport, error) {
	report := &dto.SyncReport{}

	if !u.probe.Online(ctx) {
		u.log.Info("Sync skipped: storage still unreachable")
		return report, nil
	}

	length, err := u.queue.Len(ctx)
	if err != nil {
		return nil, err
	}

	for i := int64(0); i < length; i++ {
		entry, err := u.queue.Peek(ctx)
		if err != nil {
			return report, err
		}
		if entry == nil {
			break
		}

		// Already replayed in a previous partial batch?
		existing, err := u.appointmentRepo.FindByClientRef(u.db.WithContext(ctx), entry.ClientRef)
		if err != nil {
			return report, err
		}
		if existing != nil {
			if err := u.queue.PopHead(ctx); err != nil {
				return report, err
			}
			report.Skipped++
			continue
		}

		result, err := u.bookOnline(ctx, offlineToRequest(entry), &entry.ClientRef)
		if err != nil {
			entry.Attempts++
			if rotateErr := u.queue.RotateHead(ctx, entry); rotateErr != nil {
				return report, rotateErr
			}
			report.Failed++
			continue
		}

		if err := u.queue.PopHead(ctx); err != nil {
			// The appointment is durable; the client ref check above keeps
			// the leftover queue entry from duplicating it next run
			return report, err
		}
		report.Synced++

		u.log.Infof("Offline booking synced: client_ref=%s, placeholder=%s, token=%s",
			entry.ClientRef, entry.FallbackToken, result.TokenNumber)
	}

	u.log.Infof("Offline sync finished: synced=%d, failed=%d, skipped=%d", report.Synced, report.Failed, report.Skipped)
	return report, nil
}

func (u *bookingUsecase) GetPendingBookings(ctx context.Context) (*dto.PendingBookingsResponse, error) {
	entries, err := u.queue.Pending(ctx)
	if err != nil {
		u.log.Warnf("Failed to list pending bookings: %+v", err)
		return nil, err
	}

	bookings := make([]dto.PendingBookingResponse, len(entries))
	for i := range entries {
		bookings[i] = converter.OfflineBookingToPendingResponse(&entries[i])
	}

	return &dto.PendingBookingsResponse{
		Bookings: bookings,
		Total:    len(bookings),
	}, nil
}

// GetBookingByToken resolves an appointment from its token number, the
// lookup patients use without logging in
func (u *bookingUsecase) GetBookingByToken(ctx context.Context, tokenNumber string) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByTokenNumber(u.db.WithContext(ctx), tokenNumber)
	if err != nil {
		u.log.Warnf("Failed to find booking by token %s: %+v", tokenNumber, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrBookingNotFound
	}
	return converter.AppointmentToResponse(appointment), nil
}

func offlineToRequest(entry *entity.OfflineBooking) *dto.BookingRequest {
	return &dto.BookingRequest{
		PatientName: entry.PatientName,
		Phone:       entry.PatientPhone,
		Age:         entry.PatientAge,
		Gender:      entry.PatientGender,
		DoctorID:    entry.DoctorRef,
		ServiceID:   entry.ServiceRef,
		Date:        entry.ScheduledDate,
		Time:        entry.ScheduledTime,
		PaymentMode: string(entry.PaymentMode),
		Fees:        entry.Fees,
		Symptoms:    entry.Symptoms,
	}
}
