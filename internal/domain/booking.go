package domain

import "time"

type BookingStatus string

const (
	BookingRequested BookingStatus = "requested"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCheckedIn BookingStatus = "checked_in"
)

// Booking reserves an apartment for the half-open night range [DateFrom, DateTo).
type Booking struct {
	ID                 int64         `json:"id"`
	UserID             int64         `json:"user_id"`
	ApartmentID        int64         `json:"apartment_id"`
	DateFrom           time.Time     `json:"date_from"`
	DateTo             time.Time     `json:"date_to"`
	Status             BookingStatus `json:"status"`
	IsCheckedIn        bool          `json:"is_checked_in"`
	AdditionalRequests *string       `json:"additional_requests,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// BookedRange is a window already taken by an existing booking.
type BookedRange struct {
	BookingID int64     `json:"booking_id"`
	DateFrom  time.Time `json:"date_from"`
	DateTo    time.Time `json:"date_to"`
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RangesOverlap reports whether [aFrom, aTo) and [bFrom, bTo) share a night.
// Touching ranges (aTo == bFrom) do not overlap.
func RangesOverlap(aFrom, aTo, bFrom, bTo time.Time) bool {
	return aFrom.Before(bTo) && aTo.After(bFrom)
}

func (b *Booking) Overlaps(from, to time.Time) bool {
	return RangesOverlap(b.DateFrom, b.DateTo, from, to)
}

func (b *Booking) Range() BookedRange {
	return BookedRange{BookingID: b.ID, DateFrom: b.DateFrom, DateTo: b.DateTo}
}

func (b *Booking) Nights() int {
	return int(b.DateTo.Sub(b.DateFrom).Hours() / 24)
}

// CheckIn is idempotent.
func (b *Booking) CheckIn() {
	b.IsCheckedIn = true
	b.Status = BookingCheckedIn
}

// Confirm moves a requested booking to confirmed and reports whether it changed.
func (b *Booking) Confirm() bool {
	if b.Status != BookingRequested && b.Status != "" {
		return false
	}
	b.Status = BookingConfirmed
	return true
}
