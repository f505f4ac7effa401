package usecase

import (
	"context"
	"io"
	"testing"

	"kbr-hospital-backend/config"
	"kbr-hospital-backend/internal/delivery/dto"
	"kbr-hospital-backend/internal/domain/entity"
	implrepo "kbr-hospital-backend/internal/repository"
	"kbr-hospital-backend/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db               *gorm.DB
	log              *logrus.Logger
	tokenService     *service.TokenService
	reconcileService *service.ReconcileService
	auditService     service.AuditService
	appointments     AppointmentUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps every goroutine on the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&entity.Appointment{},
		&entity.AppointmentToken{},
		&entity.SequenceCounter{},
		&entity.Invoice{},
		&entity.InvoiceItem{},
		&entity.Payment{},
		&entity.AuditLog{},
		&entity.StaffUser{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)

	appointmentRepo := implrepo.NewAppointmentRepository()
	tokenRepo := implrepo.NewTokenRepository()
	invoiceRepo := implrepo.NewInvoiceRepository()
	paymentRepo := implrepo.NewPaymentRepository()
	auditLogRepo := implrepo.NewAuditLogRepository()

	tokenService := service.NewTokenService(db, log, tokenRepo, config.TokenConfig{Prefix: "KBR", Pad: 3})
	reconcileService := service.NewReconcileService(db, log, invoiceRepo, paymentRepo, config.InvoiceConfig{Prefix: "KBR"})
	auditService := service.NewAuditService(db, log, auditLogRepo)

	return &testEnv{
		db:               db,
		log:              log,
		tokenService:     tokenService,
		reconcileService: reconcileService,
		auditService:     auditService,
		appointments: NewAppointmentUsecase(db, log, appointmentRepo, tokenRepo,
			tokenService, reconcileService, auditService),
	}
}

// createAppointment seeds an appointment the way the booking flow would,
// with a real token from the shared counter
func (e *testEnv) createAppointment(t *testing.T, mode entity.PaymentMode) *entity.Appointment {
	t.Helper()

	tokenNumber, err := e.tokenService.NextToken(context.Background())
	require.NoError(t, err)

	appointment := &entity.Appointment{
		PatientName:   "Asha Rao",
		PatientPhone:  "9876543210",
		DoctorRef:     "dr-sharma",
		ServiceRef:    "general-consultation",
		ScheduledDate: "2026-09-01",
		ScheduledTime: "10:30",
		Status:        entity.AppointmentStatusPending,
		PaymentMode:   mode,
		PaymentStatus: entity.PaymentStatusPending,
		Fees:          50000,
		TokenNumber:   tokenNumber,
	}
	require.NoError(t, e.db.Create(appointment).Error)
	require.NoError(t, e.db.Create(&entity.AppointmentToken{
		TokenNumber:   tokenNumber,
		AppointmentID: &appointment.ID,
		PatientName:   appointment.PatientName,
		Status:        entity.TokenStatusActive,
	}).Error)
	return appointment
}

func (e *testEnv) invoiceCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&entity.Invoice{}).Count(&n).Error)
	return n
}

func TestConfirmCashAutoSettles(t *testing.T) {
	env := newTestEnv(t)
	appt := env.createAppointment(t, entity.PaymentModeCash)

	resp, err := env.appointments.Confirm(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusConfirmed), resp.Status)
	assert.Equal(t, string(entity.PaymentStatusPaid), resp.PaymentStatus)

	assert.Equal(t, int64(1), env.invoiceCount(t))

	var invoice entity.Invoice
	require.NoError(t, env.db.Where("appointment_id = ?", appt.ID).First(&invoice).Error)
	assert.Equal(t, entity.InvoiceStatusPaid, invoice.Status)
	assert.Equal(t, appt.Fees, invoice.TotalAmount)
}

func TestConfirmPayAtHospitalStaysPending(t *testing.T) {
	env := newTestEnv(t)
	appt := env.createAppointment(t, entity.PaymentModePayAtHospital)

	resp, err := env.appointments.Confirm(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusConfirmed), resp.Status)
	assert.Equal(t, string(entity.PaymentStatusPending), resp.PaymentStatus)

	// No invoice until somebody actually pays
	assert.Equal(t, int64(0), env.invoiceCount(t))
}

func TestMarkPaidSettlesPayAtHospital(t *testing.T) {
	env := newTestEnv(t)
	appt := env.createAppointment(t, entity.PaymentModePayAtHospital)

	_, err := env.appointments.Confirm(context.Background(), appt.ID)
	require.NoError(t, err)

	resp, err := env.appointments.MarkPaid(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.PaymentStatusPaid), resp.PaymentStatus)
	assert.Equal(t, int64(1), env.invoiceCount(t))

	// Marking paid twice changes nothing
	_, err = env.appointments.MarkPaid(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.invoiceCount(t))
}

func TestCompleteClosesTokenAndSettlesUPI(t *testing.T) {
	env := newTestEnv(t)
	appt := env.createAppointment(t, entity.PaymentModeUPI)

	_, err := env.appointments.Admit(context.Background(), appt.ID)
	require.NoError(t, err)

	resp, err := env.appointments.Complete(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusCompleted), resp.Status)
	assert.Equal(t, string(entity.PaymentStatusPaid), resp.PaymentStatus)

	var token entity.AppointmentToken
	require.NoError(t, env.db.Where("token_number = ?", appt.TokenNumber).First(&token).Error)
	assert.Equal(t, entity.TokenStatusUsed, token.Status)
}

func TestInvalidTransitionsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.createAppointment(t, entity.PaymentModeCash)

	// Pending cannot complete directly
	_, err := env.appointments.Complete(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.appointments.Confirm(ctx, appt.ID)
	require.NoError(t, err)
	_, err = env.appointments.Admit(ctx, appt.ID)
	require.NoError(t, err)
	_, err = env.appointments.Complete(ctx, appt.ID)
	require.NoError(t, err)

	// Terminal states reject everything
	_, err = env.appointments.Confirm(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = env.appointments.Cancel(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = env.appointments.Reschedule(ctx, appt.ID, &dto.RescheduleRequest{Date: "2026-09-02", Time: "11:00"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelMarksTokenCancelled(t *testing.T) {
	env := newTestEnv(t)
	appt := env.createAppointment(t, entity.PaymentModePayAtHospital)

	resp, err := env.appointments.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusCancelled), resp.Status)

	var token entity.AppointmentToken
	require.NoError(t, env.db.Where("token_number = ?", appt.TokenNumber).First(&token).Error)
	assert.Equal(t, entity.TokenStatusCancelled, token.Status)
}

func TestRescheduleMovesSlotAndConfirms(t *testing.T) {
	env := newTestEnv(t)
	appt := env.createAppointment(t, entity.PaymentModeUPI)

	resp, err := env.appointments.Reschedule(context.Background(), appt.ID, &dto.RescheduleRequest{
		Date: "2026-09-05",
		Time: "15:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-09-05", resp.Date)
	assert.Equal(t, "15:00", resp.Time)
	assert.Equal(t, string(entity.AppointmentStatusConfirmed), resp.Status)
	// UPI settles once the appointment lands confirmed
	assert.Equal(t, string(entity.PaymentStatusPaid), resp.PaymentStatus)
}

func TestUpdateMissingAppointmentRecreates(t *testing.T) {
	env := newTestEnv(t)
	missingID := uuid.New()

	name := "Walk-in Patient"
	mode := string(entity.PaymentModeCash)
	resp, err := env.appointments.UpdateAppointment(context.Background(), missingID, &dto.UpdateAppointmentRequest{
		PatientName: &name,
		PaymentMode: &mode,
	})
	require.NoError(t, err)
	assert.Equal(t, WarningRecreated, resp.Warning)
	assert.Equal(t, missingID, resp.ID)
	assert.NotEmpty(t, resp.TokenNumber)

	var appointment entity.Appointment
	require.NoError(t, env.db.Where("id = ?", missingID).First(&appointment).Error)
	assert.Equal(t, name, appointment.PatientName)
}

func TestUpdateRecreateAppliesPaymentPolicy(t *testing.T) {
	env := newTestEnv(t)
	missingID := uuid.New()

	name := "Walk-in Patient"
	mode := string(entity.PaymentModeCash)
	status := string(entity.AppointmentStatusConfirmed)
	fees := int64(50000)
	resp, err := env.appointments.UpdateAppointment(context.Background(), missingID, &dto.UpdateAppointmentRequest{
		PatientName: &name,
		PaymentMode: &mode,
		Status:      &status,
		Fees:        &fees,
	})
	require.NoError(t, err)
	assert.Equal(t, WarningRecreated, resp.Warning)

	// A confirmed cash appointment settles on recreate exactly as it would
	// on an ordinary update
	assert.Equal(t, string(entity.PaymentStatusPaid), resp.PaymentStatus)
	assert.Equal(t, int64(1), env.invoiceCount(t))

	// PayAtHospital still waits for explicit staff settlement
	hospMode := string(entity.PaymentModePayAtHospital)
	resp, err = env.appointments.UpdateAppointment(context.Background(), uuid.New(), &dto.UpdateAppointmentRequest{
		PatientName: &name,
		PaymentMode: &hospMode,
		Status:      &status,
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.PaymentStatusPending), resp.PaymentStatus)
	assert.Equal(t, int64(1), env.invoiceCount(t))
}

func TestUpdatePaymentStatusOverrideTriggersReconcile(t *testing.T) {
	env := newTestEnv(t)
	appt := env.createAppointment(t, entity.PaymentModePayAtHospital)

	paid := string(entity.PaymentStatusPaid)
	resp, err := env.appointments.UpdateAppointment(context.Background(), appt.ID, &dto.UpdateAppointmentRequest{
		PaymentStatus: &paid,
	})
	require.NoError(t, err)
	assert.Equal(t, paid, resp.PaymentStatus)
	assert.Equal(t, int64(1), env.invoiceCount(t))
}
