package handler

import (
	"net/http"

	"kbr-hospital-backend/internal/usecase"
	"kbr-hospital-backend/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type InvoiceHandler struct {
	invoiceUsecase usecase.InvoiceUsecase
}

func NewInvoiceHandler(invoiceUsecase usecase.InvoiceUsecase) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceUsecase: invoiceUsecase,
	}
}

// GetAllInvoices lists invoices. On a degraded store the list comes back
// empty with a warning instead of failing the billing screen.
func (h *InvoiceHandler) GetAllInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.invoiceUsecase.GetInvoices(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get invoices")
		return
	}

	response.Success(w, http.StatusOK, "Invoices retrieved successfully", invoices)
}

func (h *InvoiceHandler) GetInvoiceByAppointment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := uuid.Parse(vars["appointmentId"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid appointment ID", nil)
		return
	}

	invoice, err := h.invoiceUsecase.GetInvoiceByAppointment(r.Context(), appointmentID)
	if err != nil {
		switch err {
		case usecase.ErrInvoiceNotFound:
			response.NotFound(w, "Invoice not found")
		default:
			response.InternalServerError(w, "Failed to get invoice")
		}
		return
	}

	response.Success(w, http.StatusOK, "Invoice retrieved successfully", invoice)
}

// ReconcileInvoices runs the drift repair over the whole invoice table
// @Summary Reconcile invoices
// @Description Rewrite every invoice document status to match its payment status. Idempotent: a second run corrects nothing.
// @Tags Invoices
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /admin/invoices/reconcile [post]
func (h *InvoiceHandler) ReconcileInvoices(w http.ResponseWriter, r *http.Request) {
	result, err := h.invoiceUsecase.ReconcileInvoices(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to reconcile invoices")
		return
	}

	response.Success(w, http.StatusOK, "Reconciliation completed", result)
}
