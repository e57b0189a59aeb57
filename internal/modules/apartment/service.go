package apartment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"staybook/internal/domain"
	"staybook/internal/modules/image"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/logger"
	"staybook/internal/repository"
)

type Service struct {
	apartments apartmentRepo
	bookings   futureBookings
	images     imageLister
	ratings    ratingReader
	photos     photoResolver
	tx         txRunner
	log        *slog.Logger
	now        func() time.Time
}

func NewService(apartments apartmentRepo, bookings futureBookings, images imageLister, ratings ratingReader, photos photoResolver, tx txRunner, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		apartments: apartments,
		bookings:   bookings,
		images:     images,
		ratings:    ratings,
		photos:     photos,
		tx:         tx,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type EstablishmentInput struct {
	// OwnerID is honoured for admins only; landlords always own what they create.
	OwnerID int64
	Name    string
	Address string
	Vibe    string
}

type ApartmentInput struct {
	Name     string
	Capacity int
	Price    string
	Currency string
}

// Details is an apartment with its aggregate rating and photos.
type Details struct {
	Apartment *domain.Apartment
	Rating    *domain.Rating
	Images    []domain.Image
}

func (s *Service) CreateEstablishment(ctx context.Context, actor domain.Actor, in EstablishmentInput) (*domain.Establishment, error) {
	if actor.Role != domain.RoleLandlord && !actor.IsAdmin() {
		return nil, apperr.Forbidden("only landlords can list establishments")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("VALIDATION_ERROR", "name is required", map[string]any{"field": "name"})
	}
	vibe, ok := domain.NormalizeVibe(in.Vibe)
	if !ok {
		return nil, apperr.Validation("INVALID_VIBE", "vibe must be one of "+strings.Join(domain.Vibes, ", "), map[string]any{"field": "vibe"})
	}
	owner := actor.UserID
	if actor.IsAdmin() && in.OwnerID > 0 {
		owner = in.OwnerID
	}

	e := &domain.Establishment{OwnerID: owner, Name: name, Address: strings.TrimSpace(in.Address), Vibe: vibe}
	if err := s.apartments.CreateEstablishment(ctx, e); err != nil {
		return nil, fmt.Errorf("create establishment: %w", err)
	}
	return e, nil
}

func (s *Service) GetEstablishment(ctx context.Context, id int64) (*domain.Establishment, []domain.Image, error) {
	e, err := s.getEstablishment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	imgs, err := s.images.ListByEstablishment(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list establishment images: %w", err)
	}
	return e, imgs, nil
}

func (s *Service) CreateApartment(ctx context.Context, actor domain.Actor, establishmentID int64, in ApartmentInput) (*domain.Apartment, error) {
	e, err := s.getEstablishment(ctx, establishmentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, e.OwnerID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("VALIDATION_ERROR", "name is required", map[string]any{"field": "name"})
	}
	if in.Capacity <= 0 {
		return nil, apperr.Validation("VALIDATION_ERROR", "capacity must be positive", map[string]any{"field": "capacity"})
	}
	price, err := domain.ParseAmount(in.Price)
	if err != nil {
		return nil, apperr.Validation("INVALID_AMOUNT", "price must be a positive decimal with at most two places", map[string]any{"field": "price"})
	}
	currency, err := domain.NormalizeCurrency(in.Currency)
	if err != nil {
		return nil, apperr.Validation("INVALID_CURRENCY", "currency must be a 3-letter ISO code", map[string]any{"field": "currency"})
	}

	a := &domain.Apartment{EstablishmentID: e.ID, Name: name, Capacity: in.Capacity, Price: price, Currency: currency}
	if err := s.apartments.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create apartment: %w", err)
	}
	a.Establishment = e
	return a, nil
}

// Get returns the apartment with its rating. Apartments nobody has reviewed
// report the default rating.
func (s *Service) Get(ctx context.Context, id int64) (*Details, error) {
	a, err := s.getApartment(ctx, id)
	if err != nil {
		return nil, err
	}
	rating, err := s.ratings.RatingFor(ctx, domain.TargetsApartment(id))
	if err != nil {
		return nil, err
	}
	imgs, err := s.images.ListByApartment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list apartment images: %w", err)
	}
	return &Details{Apartment: a, Rating: rating, Images: imgs}, nil
}

// Delete removes an apartment and its photos. Apartments with a booking that
// has not ended yet cannot be deleted. The apartment row stays locked until
// the delete commits, so no booking can slip in after the check.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	var photos int
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.apartments.LockForUpdate(ctx, id); err != nil {
			if repository.IsNotFound(err) {
				return apperr.NotFound("apartment", id)
			}
			return fmt.Errorf("lock apartment: %w", err)
		}
		a, err := s.getApartment(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, ownerOf(a)); err != nil {
			return err
		}
		busy, err := s.bookings.HasFutureBookings(ctx, id, s.now())
		if err != nil {
			return fmt.Errorf("check future bookings: %w", err)
		}
		if busy {
			return apperr.BusinessRule("APARTMENT_HAS_FUTURE_BOOKINGS", fmt.Sprintf("apartment %d has bookings that have not ended", id))
		}

		current, err := s.images.ListByApartment(ctx, id)
		if err != nil {
			return fmt.Errorf("list apartment images: %w", err)
		}
		if _, err := s.photos.Resolve(ctx, current, nil, nil, nil); err != nil {
			return err
		}
		if err := s.apartments.Delete(ctx, id); err != nil {
			if repository.IsNotFound(err) {
				return apperr.NotFound("apartment", id)
			}
			return fmt.Errorf("delete apartment: %w", err)
		}
		photos = len(current)
		return nil
	})
	if err != nil {
		return err
	}
	logger.FromContext(ctx, s.log).Info("apartment deleted", "apartment_id", id, "photos", photos)
	return nil
}

// UpdateApartmentPhotos keeps the listed photos, drops the rest and attaches
// the uploads. It returns the resulting photo set.
func (s *Service) UpdateApartmentPhotos(ctx context.Context, actor domain.Actor, id int64, keep []int64, add []image.NewImage) ([]domain.Image, error) {
	a, err := s.getApartment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, ownerOf(a)); err != nil {
		return nil, err
	}
	current, err := s.images.ListByApartment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list apartment images: %w", err)
	}
	if _, err := s.photos.Resolve(ctx, current, keep, add, func(img *domain.Image) { img.ApartmentID = &id }); err != nil {
		return nil, err
	}
	out, err := s.images.ListByApartment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list apartment images: %w", err)
	}
	return out, nil
}

func (s *Service) UpdateEstablishmentPhotos(ctx context.Context, actor domain.Actor, id int64, keep []int64, add []image.NewImage) ([]domain.Image, error) {
	e, err := s.getEstablishment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, e.OwnerID); err != nil {
		return nil, err
	}
	current, err := s.images.ListByEstablishment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list establishment images: %w", err)
	}
	if _, err := s.photos.Resolve(ctx, current, keep, add, func(img *domain.Image) { img.EstablishmentID = &id }); err != nil {
		return nil, err
	}
	out, err := s.images.ListByEstablishment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list establishment images: %w", err)
	}
	return out, nil
}

func (s *Service) getApartment(ctx context.Context, id int64) (*domain.Apartment, error) {
	a, err := s.apartments.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("apartment", id)
		}
		return nil, fmt.Errorf("get apartment: %w", err)
	}
	return a, nil
}

func (s *Service) getEstablishment(ctx context.Context, id int64) (*domain.Establishment, error) {
	e, err := s.apartments.GetEstablishment(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("establishment", id)
		}
		return nil, fmt.Errorf("get establishment: %w", err)
	}
	return e, nil
}

func ownerOf(a *domain.Apartment) int64 {
	if a.Establishment == nil {
		return 0
	}
	return a.Establishment.OwnerID
}

func authorizeOwner(actor domain.Actor, ownerID int64) error {
	if actor.IsAdmin() || (ownerID != 0 && actor.UserID == ownerID) {
		return nil
	}
	return apperr.Forbidden("only the owner can change this listing")
}
