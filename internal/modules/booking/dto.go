package booking

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"staybook/internal/domain"
)

const dateLayout = "2006-01-02"

// Date accepts "2006-01-02" or RFC 3339 and always renders as a calendar date.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{domain.DateOnly(t)}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{domain.DateOnly(t)}, nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// BookingRequest is used for both create and update. On update customerId
// may be omitted; it cannot change the booking's tenant.
type BookingRequest struct {
	DateFrom           Date    `json:"dateFrom" example:"2024-03-01"`
	DateTo             Date    `json:"dateTo" example:"2024-03-05"`
	CustomerID         int64   `json:"customerId" example:"7"`
	ApartmentID        int64   `json:"apartmentId" binding:"required,gt=0" example:"3"`
	AdditionalRequests *string `json:"additionalRequests,omitempty" example:"late arrival"`
}

type BookingResponse struct {
	ID                 int64   `json:"id"`
	DateFrom           Date    `json:"dateFrom"`
	DateTo             Date    `json:"dateTo"`
	CustomerID         int64   `json:"customerId"`
	ApartmentID        int64   `json:"apartmentId"`
	Status             string  `json:"status"`
	IsCheckedIn        bool    `json:"isCheckedIn"`
	AdditionalRequests *string `json:"additionalRequests,omitempty"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

type BookingListResponse struct {
	Items []BookingResponse `json:"items"`
	Total int64             `json:"total"`
}

type BookedRangeResponse struct {
	BookingID int64 `json:"bookingId"`
	DateFrom  Date  `json:"dateFrom"`
	DateTo    Date  `json:"dateTo"`
}

type AvailabilityResponse struct {
	ApartmentID int64                 `json:"apartmentId"`
	StartDate   *Date                 `json:"startDate,omitempty"`
	EndDate     *Date                 `json:"endDate,omitempty"`
	Booked      []BookedRangeResponse `json:"booked"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		DateFrom:           Date{b.DateFrom},
		DateTo:             Date{b.DateTo},
		CustomerID:         b.UserID,
		ApartmentID:        b.ApartmentID,
		Status:             string(b.Status),
		IsCheckedIn:        b.IsCheckedIn,
		AdditionalRequests: b.AdditionalRequests,
		CreatedAt:          b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toBookedRangeResponse(r domain.BookedRange) BookedRangeResponse {
	return BookedRangeResponse{
		BookingID: r.BookingID,
		DateFrom:  Date{r.DateFrom},
		DateTo:    Date{r.DateTo},
	}
}
