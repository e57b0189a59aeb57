package payment

import (
	"context"
	"time"

	"staybook/internal/domain"
	"staybook/internal/pkg/acquiring"
	"staybook/internal/repository"
)

type paymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error)
	FindActiveByBooking(ctx context.Context, bookingID int64) (*domain.Payment, error)
	FindByInvoiceID(ctx context.Context, invoiceID string) (*domain.Payment, error)
	TransitionStatus(ctx context.Context, id int64, from, to domain.PaymentStatus, at time.Time) (bool, error)
	SetInvoice(ctx context.Context, id int64, invoiceID, invoiceURL string, at time.Time) error
}

type bookingReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetParties(ctx context.Context, bookingID int64) (*repository.BookingParties, error)
}

// bookingConfirmer moves a booking to confirmed once it is paid.
type bookingConfirmer interface {
	Confirm(ctx context.Context, bookingID int64) (bool, error)
}

type acquirer interface {
	CreateInvoice(ctx context.Context, req acquiring.InvoiceRequest) (*acquiring.Invoice, error)
	InvoiceStatus(ctx context.Context, invoiceID string) (*acquiring.InvoiceStatus, error)
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
