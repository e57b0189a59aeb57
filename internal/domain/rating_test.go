package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneralRating_Mean(t *testing.T) {
	s := Scores{Staff: 10, Purity: 8, PriceQuality: 6, Comfort: 4, Facilities: 2, Location: 0}

	assert.Equal(t, 5.0, GeneralRating(s))
}

func TestRating_Recompute(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &Rating{Scores: Scores{Staff: 9, Purity: 9, PriceQuality: 9, Comfort: 9, Facilities: 9, Location: 3}, GeneralRating: 1}

	r.Recompute(now)

	assert.Equal(t, 8.0, r.GeneralRating)
	assert.Equal(t, now, r.UpdatedAt)
}

func TestAggregateRating_NoReviewsReturnsDefault(t *testing.T) {
	assert.Equal(t, 10.0, AggregateRating(nil, 10))

	agg := NewAggregate(nil, 10, time.Now())
	assert.Equal(t, 10.0, agg.GeneralRating)
	assert.Equal(t, 0, agg.ReviewCount)
}

func TestAggregateRating_MeanOfReviewRatings(t *testing.T) {
	reviews := []Review{
		{Scores: Scores{Staff: 10, Purity: 10, PriceQuality: 10, Comfort: 10, Facilities: 10, Location: 10}},
		{Scores: Scores{Staff: 6, Purity: 6, PriceQuality: 6, Comfort: 6, Facilities: 6, Location: 6}},
	}
	for i := range reviews {
		reviews[i].Recompute(time.Now())
	}

	assert.Equal(t, 8.0, AggregateRating(reviews, 10))

	agg := NewAggregate(reviews, 10, time.Now())
	assert.Equal(t, 8.0, agg.GeneralRating)
	assert.Equal(t, 8.0, agg.Staff)
	assert.Equal(t, 2, agg.ReviewCount)
}

func TestReviewTarget_ExactlyOne(t *testing.T) {
	apt, usr := int64(3), int64(9)

	target, err := NewReviewTarget(&apt, nil)
	require.NoError(t, err)
	assert.Equal(t, TargetsApartment(3), target)

	target, err = NewReviewTarget(nil, &usr)
	require.NoError(t, err)
	assert.Equal(t, TargetsUser(9), target)

	_, err = NewReviewTarget(&apt, &usr)
	assert.ErrorIs(t, err, ErrInvalidReviewTarget)

	_, err = NewReviewTarget(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidReviewTarget)

	assert.Error(t, ReviewTarget{}.Validate())
	assert.NoError(t, TargetsUser(1).Validate())
}
