package converter

import (
	"kbr-hospital-backend/internal/delivery/dto"
	"kbr-hospital-backend/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// MinorUnitsToDisplay formats an integer minor-unit amount as a decimal
// string, e.g. 50000 -> "500.00"
func MinorUnitsToDisplay(amount int64) string {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:            appointment.ID,
		PatientName:   appointment.PatientName,
		PatientPhone:  appointment.PatientPhone,
		PatientAge:    appointment.PatientAge,
		PatientGender: appointment.PatientGender,
		DoctorID:      appointment.DoctorRef,
		ServiceID:     appointment.ServiceRef,
		Date:          appointment.ScheduledDate,
		Time:          appointment.ScheduledTime,
		Status:        string(appointment.Status),
		PaymentMode:   string(appointment.PaymentMode),
		PaymentStatus: string(appointment.PaymentStatus),
		Fees:          appointment.Fees,
		FeesDisplay:   MinorUnitsToDisplay(appointment.Fees),
		TokenNumber:   appointment.TokenNumber,
		Symptoms:      appointment.Symptoms,
		CreatedAt:     appointment.CreatedAt,
		UpdatedAt:     appointment.UpdatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to response DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i, appointment := range appointments {
		resp := AppointmentToResponse(&appointment)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}

// OfflineBookingToPendingResponse converts a queued offline entry to its DTO
func OfflineBookingToPendingResponse(booking *entity.OfflineBooking) dto.PendingBookingResponse {
	return dto.PendingBookingResponse{
		ClientRef:     booking.ClientRef,
		PatientName:   booking.PatientName,
		DoctorID:      booking.DoctorRef,
		ServiceID:     booking.ServiceRef,
		Date:          booking.ScheduledDate,
		Time:          booking.ScheduledTime,
		FallbackToken: booking.FallbackToken,
		SyncStatus:    string(entity.SyncStatusPending),
		QueuedAt:      booking.QueuedAt,
		Attempts:      booking.Attempts,
	}
}
