package review

import (
	"fmt"
	"net/http"
	"testing"

	"staybook/internal/pkg/response"
	"staybook/internal/repository"
	"staybook/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerEnv(t *testing.T) (*testutil.Server, *testutil.Fixture, int64, int64) {
	t.Helper()
	db := testutil.NewDB(t)
	fx := testutil.Seed(t, db)
	first := testutil.NewBooking(t, db, fx.Tenant.ID, fx.Apartment.ID, "2024-03-01", "2024-03-05")
	second := testutil.NewBooking(t, db, fx.Outsider.ID, fx.Apartment.ID, "2024-03-10", "2024-03-12")

	svc := NewService(
		repository.NewReviewRepository(db),
		repository.NewRatingRepository(db),
		repository.NewBookingRepository(db),
		repository.NewTxManager(db),
		Options{},
	)
	srv := testutil.NewServer()
	NewHandler(svc).RegisterRoutes(srv.API)
	return srv, fx, first.ID, second.ID
}

func reviewBody(bookingID, apartmentID int64, score float64) map[string]any {
	return map[string]any{
		"bookingId":    bookingID,
		"apartmentId":  apartmentID,
		"staff":        score,
		"purity":       score,
		"priceQuality": score,
		"comfort":      score,
		"facilities":   score,
		"location":     score,
		"comment":      "ok",
	}
}

func TestHandler_ReviewsFeedApartmentRating(t *testing.T) {
	srv, fx, first, second := newHandlerEnv(t)
	ratingPath := fmt.Sprintf("/api/ratings?apartmentId=%d", fx.Apartment.ID)
	tenantToken := testutil.Token(t, srv.Tokens, fx.Tenant)

	w := testutil.Do(srv.Engine, http.MethodGet, ratingPath, nil, tenantToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 10.0, testutil.Decode[RatingResponse](t, w).GeneralRating)

	w = testutil.Do(srv.Engine, http.MethodPost, "/api/reviews", reviewBody(first, fx.Apartment.ID, 6), tenantToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := testutil.Decode[ReviewResponse](t, w)
	assert.Equal(t, 6.0, created.Rating)
	assert.Equal(t, "apartment", created.Target.Kind)

	w = testutil.Do(srv.Engine, http.MethodPost, "/api/reviews", reviewBody(second, fx.Apartment.ID, 9), testutil.Token(t, srv.Tokens, fx.Outsider))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = testutil.Do(srv.Engine, http.MethodGet, ratingPath, nil, tenantToken)
	require.Equal(t, http.StatusOK, w.Code)
	rating := testutil.Decode[RatingResponse](t, w)
	assert.Equal(t, 7.5, rating.GeneralRating)
	assert.Equal(t, 2, rating.ReviewCount)

	w = testutil.Do(srv.Engine, http.MethodGet, fmt.Sprintf("/api/reviews?apartmentId=%d", fx.Apartment.ID), nil, tenantToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), testutil.Decode[ReviewListResponse](t, w).Total)

	w = testutil.Do(srv.Engine, http.MethodDelete, fmt.Sprintf("/api/reviews/%d", created.ID), nil, tenantToken)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = testutil.Do(srv.Engine, http.MethodGet, ratingPath, nil, tenantToken)
	rating = testutil.Decode[RatingResponse](t, w)
	assert.Equal(t, 9.0, rating.GeneralRating)
	assert.Equal(t, 1, rating.ReviewCount)
}

func TestHandler_DuplicateAndTargetValidation(t *testing.T) {
	srv, fx, first, _ := newHandlerEnv(t)
	token := testutil.Token(t, srv.Tokens, fx.Tenant)

	w := testutil.Do(srv.Engine, http.MethodPost, "/api/reviews", reviewBody(first, fx.Apartment.ID, 8), token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = testutil.Do(srv.Engine, http.MethodPost, "/api/reviews", reviewBody(first, fx.Apartment.ID, 8), token)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "REVIEW_EXISTS", testutil.Decode[response.ErrorBody](t, w).ErrorCode)

	both := reviewBody(first, fx.Apartment.ID, 8)
	both["userId"] = fx.Landlord.ID
	w = testutil.Do(srv.Engine, http.MethodPost, "/api/reviews", both, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REVIEW_TARGET", testutil.Decode[response.ErrorBody](t, w).ErrorCode)

	// a second review of the same booking targeting the landlord is allowed
	landlordReview := reviewBody(first, 0, 7)
	delete(landlordReview, "apartmentId")
	landlordReview["userId"] = fx.Landlord.ID
	w = testutil.Do(srv.Engine, http.MethodPost, "/api/reviews", landlordReview, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = testutil.Do(srv.Engine, http.MethodGet, fmt.Sprintf("/api/ratings?userId=%d", fx.Landlord.ID), nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7.0, testutil.Decode[RatingResponse](t, w).GeneralRating)

	w = testutil.Do(srv.Engine, http.MethodGet, "/api/reviews", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad := reviewBody(first, fx.Apartment.ID, 8)
	bad["location"] = 12
	w = testutil.Do(srv.Engine, http.MethodPost, "/api/reviews", bad, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
