package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentStatus_Transitions(t *testing.T) {
	all := []PaymentStatus{PaymentPending, PaymentCompleted, PaymentFailed, PaymentCancelled}

	for _, from := range all {
		for _, to := range all {
			want := from == PaymentPending && to != PaymentPending
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestPaymentStatus_Active(t *testing.T) {
	assert.True(t, PaymentPending.IsActive())
	assert.True(t, PaymentCompleted.IsActive())
	assert.False(t, PaymentFailed.IsActive())
	assert.False(t, PaymentCancelled.IsActive())
	assert.False(t, PaymentPending.IsTerminal())
}

func TestParsePaymentType(t *testing.T) {
	for in, want := range map[string]PaymentType{
		"cash":          PaymentCash,
		"Cash":          PaymentCash,
		"mono":          PaymentMono,
		"BankTransfer":  PaymentBankTransfer,
		"bank_transfer": PaymentBankTransfer,
	} {
		got, ok := ParsePaymentType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParsePaymentType("crypto")
	assert.False(t, ok)
}

func TestBookingReference_RoundTrip(t *testing.T) {
	ref := BookingReference(42)
	assert.Equal(t, "BOOKING-42", ref)

	id, ok := ParseBookingReference(ref)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "BOOKING-", "BOOKING-abc", "ORDER-42", "BOOKING--1", "BOOKING-0"} {
		_, ok := ParseBookingReference(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("2500.50")
	require.NoError(t, err)
	assert.Equal(t, int64(250050), got)

	got, err = ParseAmount("10")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got)

	for _, bad := range []string{"", "abc", "1.005", "-5", "0"} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "2500.50", FormatAmount(250050))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "-1.00", FormatAmount(-100))
}
