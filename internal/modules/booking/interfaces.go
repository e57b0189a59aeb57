package booking

import (
	"context"
	"time"

	"staybook/internal/domain"
	"staybook/internal/repository"
)

// BookingRepository defines the persistence operations the booking lifecycle needs.
type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context, f repository.BookingFilter) ([]domain.Booking, int64, error)
	ListByApartment(ctx context.Context, apartmentID, excludeID int64) ([]domain.Booking, error)
	ListOverlapping(ctx context.Context, apartmentID int64, from, to time.Time) ([]domain.Booking, error)
	UpdateDetails(ctx context.Context, b *domain.Booking) error
	MarkCheckedIn(ctx context.Context, id int64, at time.Time) error
	ConfirmIfRequested(ctx context.Context, id int64, at time.Time) (bool, error)
	Delete(ctx context.Context, id int64) error
	GetParties(ctx context.Context, bookingID int64) (*repository.BookingParties, error)
}

// ApartmentRepository is the slice of the catalog a booking touches.
type ApartmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Apartment, error)
	LockForUpdate(ctx context.Context, id int64) error
}

type UserRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// PaymentRepository is used by the deletion policy.
type PaymentRepository interface {
	HasCompleted(ctx context.Context, bookingID int64) (bool, error)
	DeleteUnsettledByBooking(ctx context.Context, bookingID int64) error
}

type ReviewRepository interface {
	CountByBooking(ctx context.Context, bookingID int64) (int64, error)
}

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
