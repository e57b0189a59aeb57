package booking

import (
	"context"
	"errors"
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

const defaultAvailabilityTTL = 5 * time.Minute

type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Events   events.Publisher
	Logger   *slog.Logger
}

type Service struct {
	bookings     BookingRepository
	apartments   ApartmentRepository
	users        UserRepository
	payments     PaymentRepository
	reviews      ReviewRepository
	tx           TxManager
	availability *AvailabilityChecker

	cache    cache.Cache
	cacheTTL time.Duration
	events   events.Publisher
	log      *slog.Logger
	now      func() time.Time
}

func NewService(
	bookings BookingRepository,
	apartments ApartmentRepository,
	users UserRepository,
	payments PaymentRepository,
	reviews ReviewRepository,
	tx TxManager,
	opts Options,
) *Service {
	s := &Service{
		bookings:     bookings,
		apartments:   apartments,
		users:        users,
		payments:     payments,
		reviews:      reviews,
		tx:           tx,
		availability: NewAvailabilityChecker(bookings),
		cache:        opts.Cache,
		cacheTTL:     opts.CacheTTL,
		events:       opts.Events,
		log:          opts.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = defaultAvailabilityTTL
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	return s
}

// Availability exposes the checker for callers that only need conflict logic.
func (s *Service) Availability() *AvailabilityChecker {
	return s.availability
}

type CreateInput struct {
	UserID             int64
	ApartmentID        int64
	DateFrom           time.Time
	DateTo             time.Time
	AdditionalRequests *string
}

type UpdateInput struct {
	ApartmentID        int64
	DateFrom           time.Time
	DateTo             time.Time
	AdditionalRequests *string
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Booking, error) {
	if in.UserID == 0 {
		in.UserID = actor.UserID
	}
	if in.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins can book on behalf of another user")
	}
	from, to, err := normalizeRange(in.DateFrom, in.DateTo)
	if err != nil {
		return nil, err
	}
	if in.ApartmentID <= 0 {
		return nil, apperr.Validation("VALIDATION_ERROR", "apartmentId is required", map[string]any{"field": "apartmentId"})
	}

	ok, err := s.users.Exists(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("check customer: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("user", in.UserID)
	}

	now := s.now()
	b := &domain.Booking{
		UserID:             in.UserID,
		ApartmentID:        in.ApartmentID,
		DateFrom:           from,
		DateTo:             to,
		Status:             domain.BookingRequested,
		IsCheckedIn:        false,
		AdditionalRequests: in.AdditionalRequests,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.lockApartment(ctx, in.ApartmentID); err != nil {
			return err
		}
		if err := s.ensureAvailable(ctx, in.ApartmentID, from, to, 0); err != nil {
			return err
		}
		return s.bookings.Create(ctx, b)
	})
	if err != nil {
		return nil, s.mapOverlap(err, in.ApartmentID, from, to)
	}

	s.invalidateAvailability(ctx, b.ApartmentID)
	s.publish(ctx, events.BookingCreated, b)
	return b, nil
}

// Update re-checks availability for the new apartment and range, excluding
// the booking itself. Check-in state and creation time are preserved.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id int64, in UpdateInput) (*domain.Booking, error) {
	from, to, err := normalizeRange(in.DateFrom, in.DateTo)
	if err != nil {
		return nil, err
	}

	var updated *domain.Booking
	var previousApartment int64
	apartmentID := in.ApartmentID
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.getBooking(ctx, id)
		if err != nil {
			return err
		}
		if current.UserID != actor.UserID && !actor.IsAdmin() {
			return apperr.Forbidden("only the tenant or an admin can change a booking")
		}
		previousApartment = current.ApartmentID
		if apartmentID <= 0 {
			apartmentID = current.ApartmentID
		}
		if err := s.lockApartment(ctx, apartmentID); err != nil {
			return err
		}
		if err := s.ensureAvailable(ctx, apartmentID, from, to, id); err != nil {
			return err
		}

		next := *current
		next.ApartmentID = apartmentID
		next.DateFrom = from
		next.DateTo = to
		next.AdditionalRequests = in.AdditionalRequests
		next.UpdatedAt = s.now()
		if err := s.bookings.UpdateDetails(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, s.mapOverlap(err, apartmentID, from, to)
	}

	s.invalidateAvailability(ctx, updated.ApartmentID)
	if previousApartment != updated.ApartmentID {
		s.invalidateAvailability(ctx, previousApartment)
	}
	s.publish(ctx, events.BookingUpdated, updated)
	return updated, nil
}

// CheckIn is idempotent: checking in twice succeeds both times.
func (s *Service) CheckIn(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	b, err := s.getBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeParty(ctx, actor, id); err != nil {
		return nil, err
	}
	if b.IsCheckedIn && b.Status == domain.BookingCheckedIn {
		return b, nil
	}

	at := s.now()
	if err := s.bookings.MarkCheckedIn(ctx, id, at); err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("booking", id)
		}
		return nil, fmt.Errorf("check in booking: %w", err)
	}
	b.CheckIn()
	b.UpdatedAt = at

	s.publish(ctx, events.BookingCheckedIn, b)
	return b, nil
}

// Delete removes a booking together with its unsettled payments. Bookings
// that are checked in, paid or reviewed are kept.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	var deleted *domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.getBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.UserID != actor.UserID && !actor.IsAdmin() {
			return apperr.Forbidden("only the tenant or an admin can delete a booking")
		}
		if b.IsCheckedIn {
			return apperr.BusinessRule("BOOKING_CHECKED_IN", "a checked-in booking cannot be deleted")
		}

		paid, err := s.payments.HasCompleted(ctx, id)
		if err != nil {
			return fmt.Errorf("check payments: %w", err)
		}
		if paid {
			return apperr.BusinessRule("BOOKING_HAS_COMPLETED_PAYMENT", "a booking with a completed payment cannot be deleted")
		}
		reviews, err := s.reviews.CountByBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("check reviews: %w", err)
		}
		if reviews > 0 {
			return apperr.BusinessRule("BOOKING_HAS_REVIEWS", "a reviewed booking cannot be deleted")
		}

		if err := s.payments.DeleteUnsettledByBooking(ctx, id); err != nil {
			return fmt.Errorf("delete payments: %w", err)
		}
		if err := s.bookings.Delete(ctx, id); err != nil {
			if repository.IsNotFound(err) {
				return apperr.NotFound("booking", id)
			}
			return fmt.Errorf("delete booking: %w", err)
		}
		deleted = b
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateAvailability(ctx, deleted.ApartmentID)
	s.publish(ctx, events.BookingDeleted, deleted)
	return nil
}

// Confirm moves a requested booking to confirmed. It is a no-op for bookings
// already confirmed or checked in, and joins the caller's transaction when
// ctx carries one.
func (s *Service) Confirm(ctx context.Context, id int64) (bool, error) {
	changed, err := s.bookings.ConfirmIfRequested(ctx, id, s.now())
	if err != nil {
		return false, fmt.Errorf("confirm booking: %w", err)
	}
	if changed {
		return true, nil
	}
	if _, err := s.getBooking(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	b, err := s.getBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeParty(ctx, actor, id); err != nil {
		return nil, err
	}
	return b, nil
}

type ListFilter struct {
	UserID      int64
	ApartmentID int64
	Limit       int
	Offset      int
}

// List returns bookings matching the filter. Non-admins only see their own.
func (s *Service) List(ctx context.Context, actor domain.Actor, f ListFilter) ([]domain.Booking, int64, error) {
	if !actor.IsAdmin() {
		f.UserID = actor.UserID
	}
	items, total, err := s.bookings.List(ctx, repository.BookingFilter{
		UserID:      f.UserID,
		ApartmentID: f.ApartmentID,
		Limit:       f.Limit,
		Offset:      f.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return items, total, nil
}

// GetApartmentAvailability returns booked sub-ranges clipped to the optional
// window, or every booking of the apartment when no window is given.
func (s *Service) GetApartmentAvailability(ctx context.Context, apartmentID int64, start, end *time.Time) ([]domain.BookedRange, error) {
	var lo, hi time.Time
	if start != nil {
		lo = domain.DateOnly(*start)
	}
	if end != nil {
		hi = domain.DateOnly(*end)
	}
	if !lo.IsZero() && !hi.IsZero() && !lo.Before(hi) {
		return nil, apperr.Validation("INVALID_DATE_RANGE", "startDate must be before endDate", map[string]any{
			"startDate": lo.Format(dateLayout),
			"endDate":   hi.Format(dateLayout),
		})
	}

	key := availabilityKey(apartmentID, lo, hi)
	return cache.GetOrLoad(ctx, s.cache, s.log, key, s.cacheTTL, func(ctx context.Context) ([]domain.BookedRange, error) {
		if _, err := s.apartments.GetByID(ctx, apartmentID); err != nil {
			if repository.IsNotFound(err) {
				return nil, apperr.NotFound("apartment", apartmentID)
			}
			return nil, fmt.Errorf("get apartment: %w", err)
		}
		if lo.IsZero() && hi.IsZero() {
			return s.availability.GetBookedDateRanges(ctx, apartmentID)
		}

		from, to := lo, hi
		if to.IsZero() {
			to = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		}
		overlapping, err := s.bookings.ListOverlapping(ctx, apartmentID, from, to)
		if err != nil {
			return nil, fmt.Errorf("list overlapping bookings: %w", err)
		}
		ranges := make([]domain.BookedRange, 0, len(overlapping))
		for i := range overlapping {
			ranges = append(ranges, overlapping[i].Range())
		}
		sortRanges(ranges)
		return clipRanges(ranges, lo, hi), nil
	})
}

func (s *Service) getBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.NotFound("booking", id)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// authorizeParty allows the tenant, the landlord of the apartment and admins.
func (s *Service) authorizeParty(ctx context.Context, actor domain.Actor, bookingID int64) error {
	if actor.IsAdmin() {
		return nil
	}
	parties, err := s.bookings.GetParties(ctx, bookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperr.NotFound("booking", bookingID)
		}
		return fmt.Errorf("get booking parties: %w", err)
	}
	if actor.UserID == parties.TenantID || actor.UserID == parties.LandlordID {
		return nil
	}
	return apperr.Forbidden("not a party of this booking")
}

func (s *Service) lockApartment(ctx context.Context, apartmentID int64) error {
	if err := s.apartments.LockForUpdate(ctx, apartmentID); err != nil {
		if repository.IsNotFound(err) {
			return apperr.NotFound("apartment", apartmentID)
		}
		return fmt.Errorf("lock apartment: %w", err)
	}
	return nil
}

func (s *Service) ensureAvailable(ctx context.Context, apartmentID int64, from, to time.Time, excludeID int64) error {
	ok, conflicts, err := s.availability.IsAvailable(ctx, apartmentID, from, to, excludeID)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if !ok {
		return conflictError(apartmentID, from, to, conflicts)
	}
	return nil
}

// mapOverlap turns a store-level overlap rejection into a booking conflict.
func (s *Service) mapOverlap(err error, apartmentID int64, from, to time.Time) error {
	if errors.Is(err, repository.ErrBookingOverlap) {
		return conflictError(apartmentID, from, to, nil)
	}
	return err
}

func conflictError(apartmentID int64, from, to time.Time, conflicts []domain.BookedRange) error {
	items := make([]BookedRangeResponse, 0, len(conflicts))
	for _, c := range conflicts {
		items = append(items, toBookedRangeResponse(c))
	}
	return apperr.BookingConflict(
		fmt.Sprintf("apartment %d is not available from %s to %s", apartmentID, from.Format(dateLayout), to.Format(dateLayout)),
		map[string]any{
			"apartmentId": apartmentID,
			"dateFrom":    from.Format(dateLayout),
			"dateTo":      to.Format(dateLayout),
			"conflicts":   items,
		},
	)
}

func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	if from.IsZero() || to.IsZero() {
		return time.Time{}, time.Time{}, apperr.Validation("VALIDATION_ERROR", "dateFrom and dateTo are required", map[string]any{
			"fields": []string{"dateFrom", "dateTo"},
		})
	}
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if !from.Before(to) {
		return time.Time{}, time.Time{}, apperr.Validation("INVALID_DATE_RANGE", "dateFrom must be before dateTo", map[string]any{
			"dateFrom": from.Format(dateLayout),
			"dateTo":   to.Format(dateLayout),
		})
	}
	return from, to, nil
}

func availabilityPrefix(apartmentID int64) string {
	return "availability:" + strconv.FormatInt(apartmentID, 10) + ":"
}

func availabilityKey(apartmentID int64, start, end time.Time) string {
	return availabilityPrefix(apartmentID) + formatBound(start) + ":" + formatBound(end)
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func (s *Service) invalidateAvailability(ctx context.Context, apartmentID int64) {
	cache.Invalidate(ctx, s.cache, logger.FromContext(ctx, s.log), availabilityPrefix(apartmentID))
}

func (s *Service) publish(ctx context.Context, eventType string, b *domain.Booking) {
	e := events.New(eventType, strconv.FormatInt(b.ID, 10), toBookingResponse(b))
	if err := s.events.Publish(ctx, e); err != nil {
		logger.FromContext(ctx, s.log).Warn("publish booking event failed", "type", eventType, "booking_id", b.ID, "error", err)
	}
}
