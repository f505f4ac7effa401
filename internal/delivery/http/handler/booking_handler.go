package handler

import (
	"encoding/json"
	"net/http"

	"kbr-hospital-backend/internal/delivery/dto"
	"kbr-hospital-backend/internal/usecase"
	"kbr-hospital-backend/pkg/response"
	"kbr-hospital-backend/pkg/validator"

	"github.com/gorilla/mux"
)

type BookingHandler struct {
	bookingUsecase usecase.BookingUsecase
	validator      *validator.CustomValidator
}

func NewBookingHandler(bookingUsecase usecase.BookingUsecase, validator *validator.CustomValidator) *BookingHandler {
	return &BookingHandler{
		bookingUsecase: bookingUsecase,
		validator:      validator,
	}
}

// CreateBooking handles a new appointment booking
// @Summary Book an appointment
// @Description Book an appointment and receive a token number. Works offline: when the store is unreachable the booking is queued with a placeholder token.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body dto.BookingRequest true "Booking Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req dto.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.bookingUsecase.Book(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrInvalidPaymentMode:
			response.Error(w, http.StatusBadRequest, "Unknown payment mode", nil)
		default:
			response.InternalServerError(w, "Failed to create booking")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Booking created successfully", result)
}

// GetBookingByToken looks up an appointment by its token number
// @Summary Get booking by token
// @Tags Bookings
// @Produce json
// @Param token path string true "Token Number"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /bookings/{token} [get]
func (h *BookingHandler) GetBookingByToken(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokenNumber := vars["token"]

	booking, err := h.bookingUsecase.GetBookingByToken(r.Context(), tokenNumber)
	if err != nil {
		switch err {
		case usecase.ErrBookingNotFound:
			response.NotFound(w, "Booking not found")
		default:
			response.InternalServerError(w, "Failed to get booking")
		}
		return
	}

	response.Success(w, http.StatusOK, "Booking retrieved successfully", booking)
}

// GetPendingBookings lists bookings waiting in the offline queue
func (h *BookingHandler) GetPendingBookings(w http.ResponseWriter, r *http.Request) {
	pending, err := h.bookingUsecase.GetPendingBookings(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to list pending bookings")
		return
	}

	response.Success(w, http.StatusOK, "Pending bookings retrieved successfully", pending)
}

// SyncPendingBookings replays the offline queue into the store
// @Summary Sync offline bookings
// @Description Replay queued offline bookings in FIFO order, minting authoritative tokens
// @Tags Bookings
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /bookings/sync [post]
func (h *BookingHandler) SyncPendingBookings(w http.ResponseWriter, r *http.Request) {
	report, err := h.bookingUsecase.SyncPending(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to sync pending bookings")
		return
	}

	response.Success(w, http.StatusOK, "Sync completed", report)
}
