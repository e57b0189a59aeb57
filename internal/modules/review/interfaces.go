package review

import (
	"context"

	"staybook/internal/domain"
	"staybook/internal/repository"
)

type reviewRepo interface {
	Create(ctx context.Context, rv *domain.Review) error
	Update(ctx context.Context, rv *domain.Review) error
	GetByID(ctx context.Context, id int64) (*domain.Review, error)
	Delete(ctx context.Context, id int64) error
	ListByTarget(ctx context.Context, target domain.ReviewTarget, limit, offset int) ([]domain.Review, int64, error)
	AllByTarget(ctx context.Context, target domain.ReviewTarget) ([]domain.Review, error)
	ExistsForBooking(ctx context.Context, bookingID, authorID int64, kind domain.TargetKind) (bool, error)
}

type ratingRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Rating, error)
	Save(ctx context.Context, rt *domain.Rating) error
	RatingIDFor(ctx context.Context, target domain.ReviewTarget) (*int64, error)
	Attach(ctx context.Context, target domain.ReviewTarget, ratingID int64) error
}

type partiesReader interface {
	GetParties(ctx context.Context, bookingID int64) (*repository.BookingParties, error)
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
