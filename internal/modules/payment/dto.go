package payment

import (
	"time"

	"staybook/internal/domain"
)

type CreatePaymentRequest struct {
	BookingID int64  `json:"bookingId" binding:"required,gt=0" example:"123"`
	Type      string `json:"type" binding:"required" example:"mono"`
	Amount    string `json:"amount" binding:"required" example:"2500.00"`
	Currency  string `json:"currency,omitempty" example:"UAH"`
}

type CheckStatusRequest struct {
	InvoiceID string `json:"invoiceId" example:"p2_9ZgpZVsl3"`
}

type PaymentResponse struct {
	ID          int64   `json:"id"`
	BookingID   int64   `json:"bookingId"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Amount      string  `json:"amount"`
	AmountMinor int64   `json:"amountMinor"`
	Currency    string  `json:"currency"`
	InvoiceID   *string `json:"invoiceId,omitempty"`
	InvoiceURL  *string `json:"invoiceUrl,omitempty"`
	PaidAt      string  `json:"paidAt"`
	CreatedAt   string  `json:"createdAt"`
}

type InvoiceResponse struct {
	PaymentID  int64   `json:"paymentId"`
	InvoiceURL *string `json:"invoiceUrl"`
}

type CheckStatusResponse struct {
	PaymentID int64  `json:"paymentId"`
	Completed bool   `json:"completed"`
	Status    string `json:"status"`
}

type WebhookResponse struct {
	Status  string `json:"status" example:"ok"`
	Applied bool   `json:"applied"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		BookingID:   p.BookingID,
		Type:        string(p.Type),
		Status:      string(p.Status),
		Amount:      domain.FormatAmount(p.Amount),
		AmountMinor: p.Amount,
		Currency:    p.Currency,
		InvoiceID:   p.InvoiceID,
		InvoiceURL:  p.InvoiceURL,
		PaidAt:      p.PaidAt.UTC().Format(time.RFC3339Nano),
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
