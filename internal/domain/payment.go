package domain

import (
	"strconv"
	"strings"
	"time"
)

type PaymentType string

const (
	PaymentCash         PaymentType = "cash"
	PaymentMono         PaymentType = "mono"
	PaymentBankTransfer PaymentType = "bank_transfer"
)

// ParsePaymentType accepts both snake_case and CamelCase spellings.
func ParsePaymentType(s string) (PaymentType, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "cash":
		return PaymentCash, true
	case "mono":
		return PaymentMono, true
	case "banktransfer":
		return PaymentBankTransfer, true
	}
	return "", false
}

// IsExternal reports whether the payment is settled by the acquiring provider.
func (t PaymentType) IsExternal() bool {
	return t == PaymentMono
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// ActivePaymentStatuses are the statuses that count toward the
// one-active-payment-per-booking rule.
var ActivePaymentStatuses = []PaymentStatus{PaymentPending, PaymentCompleted}

func (s PaymentStatus) IsActive() bool {
	return s == PaymentPending || s == PaymentCompleted
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentCancelled
}

// CanTransitionTo allows only Pending -> {Completed, Failed, Cancelled}.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s != PaymentPending {
		return false
	}
	switch next {
	case PaymentCompleted, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

type Payment struct {
	ID         int64         `gorm:"primaryKey" json:"id"`
	BookingID  int64         `gorm:"index;not null" json:"booking_id"`
	Type       PaymentType   `gorm:"type:varchar(20);not null" json:"type"`
	Status     PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Amount     int64         `gorm:"not null" json:"amount"`
	Currency   string        `gorm:"type:varchar(3);not null;default:'UAH'" json:"currency"`
	InvoiceID  *string       `gorm:"type:varchar(128);index" json:"invoice_id,omitempty"`
	InvoiceURL *string       `gorm:"type:text" json:"invoice_url,omitempty"`
	PaidAt     time.Time     `gorm:"not null" json:"paid_at"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// BookingReference is the merchant reference sent to the acquiring provider.
func BookingReference(bookingID int64) string {
	return "BOOKING-" + strconv.FormatInt(bookingID, 10)
}

// ParseBookingReference is the inverse of BookingReference.
func ParseBookingReference(ref string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(ref), "BOOKING-")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
