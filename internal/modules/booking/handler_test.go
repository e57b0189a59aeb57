package booking

import (
	"fmt"
	"net/http"
	"testing"

	"staybook/internal/domain"
	"staybook/internal/pkg/response"
	"staybook/internal/repository"
	"staybook/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newHandlerEnv(t *testing.T) (*testutil.Server, *testutil.Fixture, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	fx := testutil.Seed(t, db)

	svc := NewService(
		repository.NewBookingRepository(db),
		repository.NewApartmentRepository(db),
		repository.NewUserRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewReviewRepository(db),
		repository.NewTxManager(db),
		Options{},
	)
	srv := testutil.NewServer()
	NewHandler(svc).RegisterRoutes(srv.API)
	return srv, fx, db
}

func bookingBody(apartmentID int64, from, to string) map[string]any {
	return map[string]any{"apartmentId": apartmentID, "dateFrom": from, "dateTo": to}
}

func TestHandler_CreateConflictAndBackToBack(t *testing.T) {
	srv, fx, _ := newHandlerEnv(t)
	token := testutil.Token(t, srv.Tokens, fx.Tenant)

	w := testutil.Do(srv.Engine, http.MethodPost, "/api/bookings", bookingBody(fx.Apartment.ID, "2024-03-01", "2024-03-05"), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := testutil.Decode[BookingResponse](t, w)
	assert.Equal(t, fx.Tenant.ID, first.CustomerID)
	assert.Equal(t, "requested", first.Status)
	assert.False(t, first.IsCheckedIn)

	w = testutil.Do(srv.Engine, http.MethodPost, "/api/bookings", bookingBody(fx.Apartment.ID, "2024-03-04", "2024-03-06"), token)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	body := testutil.Decode[response.ErrorBody](t, w)
	assert.Equal(t, "BOOKING_CONFLICT", body.ErrorCode)
	assert.Equal(t, http.StatusConflict, body.StatusCode)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"bookingId":%d`, first.ID))

	w = testutil.Do(srv.Engine, http.MethodPost, "/api/bookings", bookingBody(fx.Apartment.ID, "2024-03-05", "2024-03-08"), token)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHandler_CreateValidation(t *testing.T) {
	srv, fx, _ := newHandlerEnv(t)
	token := testutil.Token(t, srv.Tokens, fx.Tenant)

	w := testutil.Do(srv.Engine, http.MethodPost, "/api/bookings", bookingBody(fx.Apartment.ID, "2024-03-05", "2024-03-05"), token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DATE_RANGE", testutil.Decode[response.ErrorBody](t, w).ErrorCode)

	w = testutil.Do(srv.Engine, http.MethodPost, "/api/bookings", bookingBody(fx.Apartment.ID, "05/03/2024", "2024-03-06"), token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", testutil.Decode[response.ErrorBody](t, w).ErrorCode)

	w = testutil.Do(srv.Engine, http.MethodPost, "/api/bookings", bookingBody(4242, "2024-03-01", "2024-03-02"), token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_RequiresAuth(t *testing.T) {
	srv, fx, _ := newHandlerEnv(t)

	w := testutil.Do(srv.Engine, http.MethodPost, "/api/bookings", bookingBody(fx.Apartment.ID, "2024-03-01", "2024-03-02"), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_CheckInIsIdempotent(t *testing.T) {
	srv, fx, db := newHandlerEnv(t)
	b := testutil.NewBooking(t, db, fx.Tenant.ID, fx.Apartment.ID, "2024-03-01", "2024-03-05")
	token := testutil.Token(t, srv.Tokens, fx.Landlord)
	path := fmt.Sprintf("/api/bookings/check-in/%d", b.ID)

	for i := 0; i < 2; i++ {
		w := testutil.Do(srv.Engine, http.MethodPatch, path, nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := testutil.Decode[BookingResponse](t, w)
		assert.True(t, got.IsCheckedIn)
		assert.Equal(t, "checked_in", got.Status)
	}

	w := testutil.Do(srv.Engine, http.MethodPatch, "/api/bookings/check-in/9999", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_CheckedInBookingCannotBeDeleted(t *testing.T) {
	srv, fx, db := newHandlerEnv(t)
	b := testutil.NewBooking(t, db, fx.Tenant.ID, fx.Apartment.ID, "2024-03-01", "2024-03-05")

	w := testutil.Do(srv.Engine, http.MethodPatch, fmt.Sprintf("/api/bookings/check-in/%d", b.ID), nil,
		testutil.Token(t, srv.Tokens, fx.Landlord))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	path := fmt.Sprintf("/api/bookings/%d", b.ID)
	for _, u := range []*domain.User{fx.Tenant, fx.Admin} {
		w = testutil.Do(srv.Engine, http.MethodDelete, path, nil, testutil.Token(t, srv.Tokens, u))
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.Equal(t, "BOOKING_CHECKED_IN", testutil.Decode[response.ErrorBody](t, w).ErrorCode)
	}

	w = testutil.Do(srv.Engine, http.MethodGet, path, nil, testutil.Token(t, srv.Tokens, fx.Tenant))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, testutil.Decode[BookingResponse](t, w).IsCheckedIn)
}

func TestHandler_UpdateKeepsCheckIn(t *testing.T) {
	srv, fx, db := newHandlerEnv(t)
	b := testutil.NewBooking(t, db, fx.Tenant.ID, fx.Apartment.ID, "2024-03-01", "2024-03-05")
	testutil.NewBooking(t, db, fx.Outsider.ID, fx.Apartment.ID, "2024-03-10", "2024-03-12")
	token := testutil.Token(t, srv.Tokens, fx.Tenant)

	w := testutil.Do(srv.Engine, http.MethodPatch, fmt.Sprintf("/api/bookings/check-in/%d", b.ID), nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	path := fmt.Sprintf("/api/bookings/%d", b.ID)
	w = testutil.Do(srv.Engine, http.MethodPut, path, bookingBody(fx.Apartment.ID, "2024-03-02", "2024-03-06"), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := testutil.Decode[BookingResponse](t, w)
	assert.True(t, got.IsCheckedIn)
	assert.Equal(t, "2024-03-06", got.DateTo.Format(dateLayout))

	w = testutil.Do(srv.Engine, http.MethodPut, path, bookingBody(fx.Apartment.ID, "2024-03-02", "2024-03-11"), token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutil.Do(srv.Engine, http.MethodPut, "/api/bookings/9999", bookingBody(fx.Apartment.ID, "2024-03-02", "2024-03-03"), token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_GetAndDelete(t *testing.T) {
	srv, fx, db := newHandlerEnv(t)
	b := testutil.NewBooking(t, db, fx.Tenant.ID, fx.Apartment.ID, "2024-03-01", "2024-03-05")
	path := fmt.Sprintf("/api/bookings/%d", b.ID)

	w := testutil.Do(srv.Engine, http.MethodGet, path, nil, testutil.Token(t, srv.Tokens, fx.Outsider))
	assert.Equal(t, http.StatusForbidden, w.Code)

	tenantToken := testutil.Token(t, srv.Tokens, fx.Tenant)
	w = testutil.Do(srv.Engine, http.MethodGet, path, nil, tenantToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, b.ID, testutil.Decode[BookingResponse](t, w).ID)

	w = testutil.Do(srv.Engine, http.MethodDelete, path, nil, tenantToken)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = testutil.Do(srv.Engine, http.MethodGet, path, nil, tenantToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = testutil.Do(srv.Engine, http.MethodDelete, path, nil, tenantToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the released range can be booked again
	w = testutil.Do(srv.Engine, http.MethodPost, "/api/bookings", bookingBody(fx.Apartment.ID, "2024-03-01", "2024-03-05"), tenantToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_ListAndAvailability(t *testing.T) {
	srv, fx, db := newHandlerEnv(t)
	testutil.NewBooking(t, db, fx.Tenant.ID, fx.Apartment.ID, "2024-03-01", "2024-03-05")
	testutil.NewBooking(t, db, fx.Outsider.ID, fx.Apartment.ID, "2024-03-08", "2024-03-12")

	w := testutil.Do(srv.Engine, http.MethodGet, "/api/bookings", nil, testutil.Token(t, srv.Tokens, fx.Tenant))
	require.Equal(t, http.StatusOK, w.Code)
	list := testutil.Decode[BookingListResponse](t, w)
	assert.Equal(t, int64(1), list.Total)

	w = testutil.Do(srv.Engine, http.MethodGet, fmt.Sprintf("/api/bookings?apartmentId=%d", fx.Apartment.ID), nil, testutil.Token(t, srv.Tokens, fx.Admin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), testutil.Decode[BookingListResponse](t, w).Total)

	token := testutil.Token(t, srv.Tokens, fx.Tenant)
	path := fmt.Sprintf("/api/apartments/%d/availability?startDate=2024-03-03&endDate=2024-03-10", fx.Apartment.ID)
	w = testutil.Do(srv.Engine, http.MethodGet, path, nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	avail := testutil.Decode[AvailabilityResponse](t, w)
	require.Len(t, avail.Booked, 2)
	assert.Equal(t, "2024-03-03", avail.Booked[0].DateFrom.Format(dateLayout))
	assert.Equal(t, "2024-03-10", avail.Booked[1].DateTo.Format(dateLayout))

	w = testutil.Do(srv.Engine, http.MethodGet, fmt.Sprintf("/api/apartments/%d/availability", fx.Apartment.ID), nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.Decode[AvailabilityResponse](t, w).Booked, 2)

	w = testutil.Do(srv.Engine, http.MethodGet, "/api/apartments/9999/availability", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
