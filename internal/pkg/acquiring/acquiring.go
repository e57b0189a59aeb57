// Package acquiring talks to the card acquiring provider that issues
// payment invoices and reports their status.
package acquiring

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotConfigured = errors.New("acquiring: provider token is not configured")

// ProviderStatus is the provider's invoice state, normalized at the boundary.
type ProviderStatus int

const (
	StatusUnknown ProviderStatus = iota
	StatusCreated
	StatusProcessing
	StatusHold
	StatusSuccess
	StatusFailure
	StatusReversed
	StatusExpired
)

func ParseStatus(s string) ProviderStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "created":
		return StatusCreated
	case "processing":
		return StatusProcessing
	case "hold":
		return StatusHold
	case "success":
		return StatusSuccess
	case "failure":
		return StatusFailure
	case "reversed":
		return StatusReversed
	case "expired":
		return StatusExpired
	}
	return StatusUnknown
}

func (s ProviderStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusProcessing:
		return "processing"
	case StatusHold:
		return "hold"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusReversed:
		return "reversed"
	case StatusExpired:
		return "expired"
	}
	return "unknown"
}

type InvoiceRequest struct {
	// Amount in minor units.
	Amount      int64
	Currency    string
	Reference   string
	Destination string
	RedirectURL string
	WebhookURL  string
}

type Invoice struct {
	ID      string
	PageURL string
}

type InvoiceStatus struct {
	InvoiceID   string
	Status      ProviderStatus
	Amount      int64
	FinalAmount int64
	Reference   string
}

// Error is a failed provider call. Body is kept for logs only.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("acquiring %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("acquiring %s: unexpected status %d", e.Op, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// currencyCode maps ISO 4217 alpha codes to the numeric codes the provider expects.
func currencyCode(c string) (int, error) {
	switch strings.ToUpper(c) {
	case "", "UAH":
		return 980, nil
	case "USD":
		return 840, nil
	case "EUR":
		return 978, nil
	}
	return 0, fmt.Errorf("acquiring: unsupported currency %q", c)
}
