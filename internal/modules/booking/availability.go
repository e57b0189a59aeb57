package booking

import (
	"context"
	"sort"
	"time"

	"staybook/internal/domain"
)

type bookingLister interface {
	ListByApartment(ctx context.Context, apartmentID, excludeID int64) ([]domain.Booking, error)
}

// AvailabilityChecker decides whether a night range is free for an apartment.
type AvailabilityChecker struct {
	bookings bookingLister
}

func NewAvailabilityChecker(bookings bookingLister) *AvailabilityChecker {
	return &AvailabilityChecker{bookings: bookings}
}

// IsAvailable reports whether [from, to) is free, ignoring excludeID (the
// booking being edited, or 0). On conflict the overlapping ranges are returned.
// from < to is the caller's responsibility.
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, apartmentID int64, from, to time.Time, excludeID int64) (bool, []domain.BookedRange, error) {
	existing, err := a.bookings.ListByApartment(ctx, apartmentID, excludeID)
	if err != nil {
		return false, nil, err
	}
	conflicts := FindConflicts(existing, from, to)
	return len(conflicts) == 0, conflicts, nil
}

// GetBookedDateRanges returns every booked range of the apartment, oldest first.
func (a *AvailabilityChecker) GetBookedDateRanges(ctx context.Context, apartmentID int64) ([]domain.BookedRange, error) {
	existing, err := a.bookings.ListByApartment(ctx, apartmentID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BookedRange, 0, len(existing))
	for i := range existing {
		out = append(out, existing[i].Range())
	}
	sortRanges(out)
	return out, nil
}

// FindConflicts returns the bookings whose half-open range intersects [from, to).
func FindConflicts(existing []domain.Booking, from, to time.Time) []domain.BookedRange {
	var out []domain.BookedRange
	for i := range existing {
		if existing[i].Overlaps(from, to) {
			out = append(out, existing[i].Range())
		}
	}
	sortRanges(out)
	return out
}

// clipRanges cuts each range to the window. A zero bound leaves that side open.
func clipRanges(ranges []domain.BookedRange, start, end time.Time) []domain.BookedRange {
	out := make([]domain.BookedRange, 0, len(ranges))
	for _, r := range ranges {
		if !start.IsZero() && r.DateFrom.Before(start) {
			r.DateFrom = start
		}
		if !end.IsZero() && r.DateTo.After(end) {
			r.DateTo = end
		}
		if r.DateFrom.Before(r.DateTo) {
			out = append(out, r)
		}
	}
	return out
}

func sortRanges(rs []domain.BookedRange) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].DateFrom.Equal(rs[j].DateFrom) {
			return rs[i].BookingID < rs[j].BookingID
		}
		return rs[i].DateFrom.Before(rs[j].DateFrom)
	})
}
