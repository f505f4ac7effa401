package converter

import (
	"kbr-hospital-backend/internal/delivery/dto"
	"kbr-hospital-backend/internal/domain/entity"
)

// InvoiceToResponse converts an Invoice entity to InvoiceResponse DTO
func InvoiceToResponse(invoice *entity.Invoice) *dto.InvoiceResponse {
	if invoice == nil {
		return nil
	}

	items := make([]dto.InvoiceItemResponse, len(invoice.Items))
	for i, item := range invoice.Items {
		items[i] = dto.InvoiceItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			Amount:      item.Amount,
		}
	}

	return &dto.InvoiceResponse{
		ID:            invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		AppointmentID: invoice.AppointmentID,
		PatientName:   invoice.PatientName,
		Description:   invoice.Description,
		Status:        string(invoice.Status),
		PaymentStatus: string(invoice.PaymentStatus),
		TotalAmount:   invoice.TotalAmount,
		TotalDisplay:  MinorUnitsToDisplay(invoice.TotalAmount),
		PaymentDate:   invoice.PaymentDate,
		Items:         items,
		CreatedAt:     invoice.CreatedAt,
	}
}

// InvoicesToResponses converts a slice of Invoice entities to response DTOs
func InvoicesToResponses(invoices []entity.Invoice) []dto.InvoiceResponse {
	responses := make([]dto.InvoiceResponse, len(invoices))
	for i, invoice := range invoices {
		resp := InvoiceToResponse(&invoice)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
