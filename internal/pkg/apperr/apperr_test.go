package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := NotFound("booking", 7)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestIs_BookingConflictIsBusinessRule(t *testing.T) {
	err := BookingConflict("taken", nil)

	assert.ErrorIs(t, err, ErrBookingConflict)
	assert.ErrorIs(t, err, ErrBusinessRule)
	assert.NotErrorIs(t, BusinessRule("X", "y"), ErrBookingConflict)
}

func TestIs_CodeSentinel(t *testing.T) {
	sentinel := &Error{Kind: KindBusinessRule, Code: "PAYMENT_NOT_PENDING"}

	assert.ErrorIs(t, BusinessRule("PAYMENT_NOT_PENDING", "x"), sentinel)
	assert.NotErrorIs(t, BusinessRule("OTHER", "x"), sentinel)
}

func TestAs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create booking: %w", Validation("INVALID_DATE_RANGE", "bad", nil))

	e, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "INVALID_DATE_RANGE", e.Code)
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestExternal_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := External("acquiring", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrExternal)
	assert.NotContains(t, err.Message, "dial tcp")
}
