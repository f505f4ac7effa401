package usecase

import (
	"context"
	"testing"

	"kbr-hospital-backend/internal/delivery/dto"
	"kbr-hospital-backend/internal/domain/entity"
	implrepo "kbr-hospital-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProbe reports whatever connectivity the test dictates
type stubProbe struct {
	online bool
}

func (p *stubProbe) Online(ctx context.Context) bool { return p.online }

// memQueue is an in-memory stand-in for the redis-backed offline queue
type memQueue struct {
	entries []entity.OfflineBooking
}

func (q *memQueue) Enqueue(ctx context.Context, booking *entity.OfflineBooking) error {
	q.entries = append(q.entries, *booking)
	return nil
}

func (q *memQueue) Peek(ctx context.Context) (*entity.OfflineBooking, error) {
	if len(q.entries) == 0 {
		return nil, nil
	}
	head := q.entries[0]
	return &head, nil
}

func (q *memQueue) PopHead(ctx context.Context) error {
	if len(q.entries) > 0 {
		q.entries = q.entries[1:]
	}
	return nil
}

func (q *memQueue) RotateHead(ctx context.Context, updated *entity.OfflineBooking) error {
	if len(q.entries) > 0 {
		q.entries = append(q.entries[1:], *updated)
	}
	return nil
}

func (q *memQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(q.entries)), nil
}

func (q *memQueue) Pending(ctx context.Context) ([]entity.OfflineBooking, error) {
	out := make([]entity.OfflineBooking, len(q.entries))
	copy(out, q.entries)
	return out, nil
}

func newBookingEnv(t *testing.T, online bool) (*testEnv, BookingUsecase, *memQueue, *stubProbe) {
	t.Helper()

	env := newTestEnv(t)
	queue := &memQueue{}
	probe := &stubProbe{online: online}

	bookings := NewBookingUsecase(env.db, env.log, implrepo.NewAppointmentRepository(), implrepo.NewTokenRepository(),
		env.tokenService, env.reconcileService, env.auditService, queue, probe)

	return env, bookings, queue, probe
}

func bookingRequest(mode entity.PaymentMode) *dto.BookingRequest {
	return &dto.BookingRequest{
		PatientName: "Ravi Kumar",
		Phone:       "9123456780",
		Age:         42,
		Gender:      "M",
		DoctorID:    "dr-sharma",
		ServiceID:   "general-consultation",
		Date:        "2026-09-01",
		Time:        "09:00",
		PaymentMode: string(mode),
		Fees:        50000,
	}
}

func TestBookOnlineCashStaysPendingPayment(t *testing.T) {
	env, bookings, queue, _ := newBookingEnv(t, true)

	result, err := bookings.Book(context.Background(), bookingRequest(entity.PaymentModeCash))
	require.NoError(t, err)
	assert.Equal(t, "KBR-001", result.TokenNumber)
	assert.Equal(t, string(entity.AppointmentStatusPending), result.Status)
	assert.Equal(t, string(entity.PaymentStatusPending), result.PaymentStatus)
	assert.Equal(t, string(entity.SyncStatusSynced), result.SyncStatus)

	n, _ := queue.Len(context.Background())
	assert.Equal(t, int64(0), n)

	var appointment entity.Appointment
	require.NoError(t, env.db.Where("token_number = ?", "KBR-001").First(&appointment).Error)
	assert.Equal(t, entity.PaymentModeCash, appointment.PaymentMode)
}

func TestBookOnlinePaymentConfirmsAndSettles(t *testing.T) {
	env, bookings, _, _ := newBookingEnv(t, true)

	result, err := bookings.Book(context.Background(), bookingRequest(entity.PaymentModeOnline))
	require.NoError(t, err)
	assert.Equal(t, string(entity.AppointmentStatusConfirmed), result.Status)
	assert.Equal(t, string(entity.PaymentStatusPaid), result.PaymentStatus)

	// Settlement at booking time synthesizes the invoice immediately
	var invoice entity.Invoice
	require.NoError(t, env.db.Where("appointment_id = ?", result.AppointmentID).First(&invoice).Error)
	assert.Equal(t, entity.InvoiceStatusPaid, invoice.Status)
	assert.Equal(t, int64(50000), invoice.TotalAmount)
}

func TestBookOfflineQueuesWithPlaceholder(t *testing.T) {
	env, bookings, queue, _ := newBookingEnv(t, false)

	result, err := bookings.Book(context.Background(), bookingRequest(entity.PaymentModeCash))
	require.NoError(t, err)
	assert.True(t, env.tokenService.IsFallbackToken(result.TokenNumber))
	assert.Equal(t, string(entity.SyncStatusPending), result.SyncStatus)
	require.NotNil(t, result.ClientRef)
	assert.Nil(t, result.AppointmentID)

	n, _ := queue.Len(context.Background())
	assert.Equal(t, int64(1), n)

	// Nothing reaches the store until sync
	var count int64
	require.NoError(t, env.db.Model(&entity.Appointment{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestBookFallsBackToQueueWhenStoreFails(t *testing.T) {
	env, bookings, queue, _ := newBookingEnv(t, true)

	// Probe says online, but the insert explodes mid-flight
	require.NoError(t, env.db.Migrator().DropTable(&entity.Appointment{}))

	result, err := bookings.Book(context.Background(), bookingRequest(entity.PaymentModeUPI))
	require.NoError(t, err, "booking must succeed even when storage fails")
	assert.True(t, env.tokenService.IsFallbackToken(result.TokenNumber))
	assert.Equal(t, string(entity.SyncStatusPending), result.SyncStatus)

	n, _ := queue.Len(context.Background())
	assert.Equal(t, int64(1), n)
}

func TestSyncPendingReplaysInOrder(t *testing.T) {
	env, bookings, queue, probe := newBookingEnv(t, false)
	ctx := context.Background()

	first, err := bookings.Book(ctx, bookingRequest(entity.PaymentModeCash))
	require.NoError(t, err)
	second, err := bookings.Book(ctx, bookingRequest(entity.PaymentModePayAtHospital))
	require.NoError(t, err)

	probe.online = true
	report, err := bookings.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Synced)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0, report.Skipped)

	n, _ := queue.Len(ctx)
	assert.Equal(t, int64(0), n)

	// FIFO order: the first offline booking gets the first authoritative token
	var firstAppt entity.Appointment
	require.NoError(t, env.db.Where("client_ref = ?", first.ClientRef).First(&firstAppt).Error)
	assert.Equal(t, "KBR-001", firstAppt.TokenNumber)

	var secondAppt entity.Appointment
	require.NoError(t, env.db.Where("client_ref = ?", second.ClientRef).First(&secondAppt).Error)
	assert.Equal(t, "KBR-002", secondAppt.TokenNumber)

	// Placeholders are discarded, not persisted
	assert.False(t, env.tokenService.IsFallbackToken(firstAppt.TokenNumber))
}

func TestSyncPendingRotatesFailedEntryToTail(t *testing.T) {
	env, bookings, queue, probe := newBookingEnv(t, false)
	ctx := context.Background()

	first, err := bookings.Book(ctx, bookingRequest(entity.PaymentModeCash))
	require.NoError(t, err)
	second, err := bookings.Book(ctx, bookingRequest(entity.PaymentModeUPI))
	require.NoError(t, err)

	// Occupy the token the second replay will mint so its insert collides
	blocker := entity.AppointmentToken{TokenNumber: "KBR-002", PatientName: "Occupied", Status: entity.TokenStatusUsed}
	require.NoError(t, env.db.Create(&blocker).Error)

	probe.online = true
	report, err := bookings.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Skipped)

	// The synced entry left the queue; the failed one rotated to the tail
	// with its attempt counted
	n, _ := queue.Len(ctx)
	require.Equal(t, int64(1), n)
	head, err := queue.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ClientRef.String(), head.ClientRef.String())
	assert.Equal(t, 1, head.Attempts)

	var firstAppt entity.Appointment
	require.NoError(t, env.db.Where("client_ref = ?", first.ClientRef).First(&firstAppt).Error)
	assert.Equal(t, "KBR-001", firstAppt.TokenNumber)

	var count int64
	require.NoError(t, env.db.Model(&entity.Appointment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "the failed entry must not half-persist")

	// Once the collision clears the rotated entry syncs on the next run.
	// KBR-002 was burned by the failed insert and is never reissued.
	require.NoError(t, env.db.Delete(&blocker).Error)
	report, err = bookings.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 0, report.Failed)

	var secondAppt entity.Appointment
	require.NoError(t, env.db.Where("client_ref = ?", second.ClientRef).First(&secondAppt).Error)
	assert.Equal(t, "KBR-003", secondAppt.TokenNumber)

	n, _ = queue.Len(ctx)
	assert.Equal(t, int64(0), n)
}

func TestSyncPendingIdempotentOnReplay(t *testing.T) {
	env, bookings, queue, probe := newBookingEnv(t, false)
	ctx := context.Background()

	result, err := bookings.Book(ctx, bookingRequest(entity.PaymentModeCash))
	require.NoError(t, err)

	probe.online = true
	report, err := bookings.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)

	// Simulate a crash after the insert but before the queue pop: the same
	// entry is back at the head
	entry := entity.OfflineBooking{ClientRef: *result.ClientRef, PatientName: "Ravi Kumar", FallbackToken: result.TokenNumber}
	require.NoError(t, queue.Enqueue(ctx, &entry))

	report, err = bookings.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Synced)
	assert.Equal(t, 1, report.Skipped)

	var count int64
	require.NoError(t, env.db.Model(&entity.Appointment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "replay must not duplicate the appointment")
}

func TestSyncPendingSkipsWhileOffline(t *testing.T) {
	_, bookings, queue, _ := newBookingEnv(t, false)
	ctx := context.Background()

	_, err := bookings.Book(ctx, bookingRequest(entity.PaymentModeCash))
	require.NoError(t, err)

	report, err := bookings.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Synced)

	n, _ := queue.Len(ctx)
	assert.Equal(t, int64(1), n)
}

func TestGetBookingByToken(t *testing.T) {
	_, bookings, _, _ := newBookingEnv(t, true)
	ctx := context.Background()

	result, err := bookings.Book(ctx, bookingRequest(entity.PaymentModeCash))
	require.NoError(t, err)

	found, err := bookings.GetBookingByToken(ctx, result.TokenNumber)
	require.NoError(t, err)
	assert.Equal(t, result.TokenNumber, found.TokenNumber)
	assert.Equal(t, "Ravi Kumar", found.PatientName)

	_, err = bookings.GetBookingByToken(ctx, "KBR-999")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBookRejectsUnknownPaymentMode(t *testing.T) {
	_, bookings, _, _ := newBookingEnv(t, true)

	req := bookingRequest(entity.PaymentModeCash)
	req.PaymentMode = "barter"
	_, err := bookings.Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidPaymentMode)
}
