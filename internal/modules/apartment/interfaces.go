package apartment

import (
	"context"
	"time"

	"staybook/internal/domain"
	"staybook/internal/modules/image"
)

type apartmentRepo interface {
	CreateEstablishment(ctx context.Context, e *domain.Establishment) error
	GetEstablishment(ctx context.Context, id int64) (*domain.Establishment, error)
	Create(ctx context.Context, a *domain.Apartment) error
	GetByID(ctx context.Context, id int64) (*domain.Apartment, error)
	LockForUpdate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type futureBookings interface {
	HasFutureBookings(ctx context.Context, apartmentID int64, now time.Time) (bool, error)
}

type imageLister interface {
	ListByApartment(ctx context.Context, apartmentID int64) ([]domain.Image, error)
	ListByEstablishment(ctx context.Context, establishmentID int64) ([]domain.Image, error)
}

type ratingReader interface {
	RatingFor(ctx context.Context, target domain.ReviewTarget) (*domain.Rating, error)
}

type photoResolver interface {
	Resolve(ctx context.Context, current []domain.Image, keep []int64, add []image.NewImage, attach func(*domain.Image)) ([]domain.Image, error)
}
