package review

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"staybook/internal/domain"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/cache"
	"staybook/internal/pkg/events"
	"staybook/internal/pkg/logger"
	"staybook/internal/repository"
)

const (
	DefaultRating = 10.0
	maxScore      = 10.0
)

type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	// DefaultRating is reported for targets without reviews.
	DefaultRating float64
	Events        events.Publisher
	Logger        *slog.Logger
}

type Service struct {
	reviews    reviewRepo
	ratings    ratingRepo
	bookings   partiesReader
	tx         txRunner
	cache      cache.Cache
	cacheTTL   time.Duration
	defaultMax float64
	events     events.Publisher
	log        *slog.Logger
	now        func() time.Time
}

func NewService(reviews reviewRepo, ratings ratingRepo, bookings partiesReader, tx txRunner, opts Options) *Service {
	s := &Service{
		reviews:    reviews,
		ratings:    ratings,
		bookings:   bookings,
		tx:         tx,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		defaultMax: opts.DefaultRating,
		events:     opts.Events,
		log:        opts.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 5 * time.Minute
	}
	if s.defaultMax <= 0 {
		s.defaultMax = DefaultRating
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	return s
}

type CreateInput struct {
	BookingID int64
	Target    domain.ReviewTarget
	Scores    domain.Scores
	Comment   string
}

type UpdateInput struct {
	Scores  domain.Scores
	Comment string
}

// Page is one page of a target's reviews.
type Page struct {
	Items []domain.Review `json:"items"`
	Total int64           `json:"total"`
}

// Create stores a review written by a party of the booking and refreshes the
// target's aggregate rating in the same transaction.
//
// The tenant may review the apartment or the landlord; the landlord may
// review the tenant. One review per booking, author and target kind.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Review, error) {
	if err := in.Target.Validate(); err != nil {
		return nil, apperr.Validation("INVALID_REVIEW_TARGET", err.Error(), map[string]any{"fields": []string{"apartmentId", "userId"}})
	}
	if err := validateScores(in.Scores); err != nil {
		return nil, err
	}
	parties, err := s.bookings.GetParties(ctx, in.BookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("booking", in.BookingID)
		}
		return nil, fmt.Errorf("get booking parties: %w", err)
	}
	if err := checkAuthor(actor, parties, in.Target); err != nil {
		return nil, err
	}

	rv := &domain.Review{
		BookingID: in.BookingID,
		AuthorID:  actor.UserID,
		Target:    in.Target,
		Scores:    in.Scores,
		Comment:   in.Comment,
		CreatedAt: s.now(),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.reviews.ExistsForBooking(ctx, in.BookingID, actor.UserID, in.Target.Kind)
		if err != nil {
			return fmt.Errorf("check existing review: %w", err)
		}
		if exists {
			return duplicateReview(in.BookingID, in.Target.Kind)
		}
		if err := s.reviews.Create(ctx, rv); err != nil {
			if repository.IsUniqueViolation(err) {
				return duplicateReview(in.BookingID, in.Target.Kind)
			}
			return fmt.Errorf("create review: %w", err)
		}
		return s.refreshRating(ctx, in.Target)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, events.ReviewCreated, rv)
	return rv, nil
}

func (s *Service) Update(ctx context.Context, actor domain.Actor, id int64, in UpdateInput) (*domain.Review, error) {
	if err := validateScores(in.Scores); err != nil {
		return nil, err
	}
	rv, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	rv.Scores = in.Scores
	rv.Comment = in.Comment

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.reviews.Update(ctx, rv); err != nil {
			if repository.IsNotFound(err) {
				return apperr.NotFound("review", id)
			}
			return fmt.Errorf("update review: %w", err)
		}
		return s.refreshRating(ctx, rv.Target)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, events.ReviewUpdated, rv)
	return rv, nil
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	rv, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.reviews.Delete(ctx, id); err != nil {
			if repository.IsNotFound(err) {
				return apperr.NotFound("review", id)
			}
			return fmt.Errorf("delete review: %w", err)
		}
		return s.refreshRating(ctx, rv.Target)
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, events.ReviewDeleted, rv)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Review, error) {
	rv, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rv, nil
}

// List returns the newest reviews of a target. Pages are cached until the
// next write to the same target.
func (s *Service) List(ctx context.Context, target domain.ReviewTarget, limit, offset int) (*Page, error) {
	if err := target.Validate(); err != nil {
		return nil, apperr.Validation("INVALID_REVIEW_TARGET", err.Error(), nil)
	}
	if offset < 0 {
		offset = 0
	}
	key := fmt.Sprintf("%s%d:%d", listPrefix(target), limit, offset)
	page, err := cache.GetOrLoad(ctx, s.cache, s.log, key, s.cacheTTL, func(ctx context.Context) (Page, error) {
		items, total, err := s.reviews.ListByTarget(ctx, target, limit, offset)
		if err != nil {
			return Page{}, fmt.Errorf("list reviews: %w", err)
		}
		if items == nil {
			items = []domain.Review{}
		}
		return Page{Items: items, Total: total}, nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// RatingFor returns the stored aggregate of the target. Targets nobody has
// reviewed yet report the default rating on every dimension.
func (s *Service) RatingFor(ctx context.Context, target domain.ReviewTarget) (*domain.Rating, error) {
	id, err := s.ratings.RatingIDFor(ctx, target)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound(string(target.Kind), target.RefID)
		}
		return nil, fmt.Errorf("find rating: %w", err)
	}
	if id == nil {
		return domain.NewAggregate(nil, s.defaultMax, s.now()), nil
	}
	rt, err := s.ratings.GetByID(ctx, *id)
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return rt, nil
}

// refreshRating rebuilds the target's aggregate from all of its reviews.
// It must run inside the transaction that changed the reviews.
func (s *Service) refreshRating(ctx context.Context, target domain.ReviewTarget) error {
	reviews, err := s.reviews.AllByTarget(ctx, target)
	if err != nil {
		return fmt.Errorf("load reviews for rating: %w", err)
	}
	agg := domain.NewAggregate(reviews, s.defaultMax, s.now())

	id, err := s.ratings.RatingIDFor(ctx, target)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperr.NotFound(string(target.Kind), target.RefID)
		}
		return fmt.Errorf("find rating: %w", err)
	}
	if id != nil {
		agg.ID = *id
	}
	if err := s.ratings.Save(ctx, agg); err != nil {
		return fmt.Errorf("save rating: %w", err)
	}
	if id == nil {
		if err := s.ratings.Attach(ctx, target, agg.ID); err != nil {
			return fmt.Errorf("attach rating: %w", err)
		}
	}
	return nil
}

func (s *Service) getOwned(ctx context.Context, actor domain.Actor, id int64) (*domain.Review, error) {
	rv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && rv.AuthorID != actor.UserID {
		return nil, apperr.Forbidden("only the author can change a review")
	}
	return rv, nil
}

func (s *Service) afterWrite(ctx context.Context, eventType string, rv *domain.Review) {
	cache.Invalidate(ctx, s.cache, s.log, listPrefix(rv.Target))
	e := events.New(eventType, strconv.FormatInt(rv.ID, 10), rv)
	if err := s.events.Publish(ctx, e); err != nil {
		logger.FromContext(ctx, s.log).Warn("publish review event failed", "type", eventType, "review_id", rv.ID, "error", err)
	}
}

func checkAuthor(actor domain.Actor, p *repository.BookingParties, target domain.ReviewTarget) error {
	var want int64
	switch actor.UserID {
	case p.TenantID:
		if target.Kind == domain.TargetApartment {
			want = p.ApartmentID
		} else {
			want = p.LandlordID
		}
	case p.LandlordID:
		if target.Kind == domain.TargetApartment {
			return apperr.Forbidden("landlords cannot review their own apartment")
		}
		want = p.TenantID
	default:
		return apperr.Forbidden("only parties of the booking can review it")
	}
	if target.RefID != want {
		return apperr.Validation("REVIEW_TARGET_MISMATCH", "review target does not belong to the booking", map[string]any{
			"kind": target.Kind,
			"id":   target.RefID,
		})
	}
	return nil
}

func validateScores(sc domain.Scores) error {
	names := [6]string{"staff", "purity", "priceQuality", "comfort", "facilities", "location"}
	for i, v := range sc.Values() {
		if v < 0 || v > maxScore {
			return apperr.Validation("INVALID_SCORE", fmt.Sprintf("%s must be between 0 and %g", names[i], maxScore), map[string]any{"field": names[i]})
		}
	}
	return nil
}

func duplicateReview(bookingID int64, kind domain.TargetKind) error {
	return apperr.AlreadyExists("REVIEW_EXISTS", fmt.Sprintf("booking %d already has your %s review", bookingID, kind))
}

func listPrefix(t domain.ReviewTarget) string {
	return fmt.Sprintf("reviews:%s:%d:", t.Kind, t.RefID)
}
