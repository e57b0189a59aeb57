package apartment

import (
	"context"
	"testing"
	"time"

	"staybook/internal/domain"
	"staybook/internal/modules/image"
	"staybook/internal/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type txKey struct{}

// markingTx runs fn inline with a context that tells calls made inside the
// transaction apart from the rest.
type markingTx struct {
	calls int
}

func (m *markingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(context.WithValue(ctx, txKey{}, true))
}

var inTx = mock.MatchedBy(func(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
})

type mockApartmentRepo struct {
	mock.Mock
}

func (m *mockApartmentRepo) CreateEstablishment(ctx context.Context, e *domain.Establishment) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockApartmentRepo) GetEstablishment(ctx context.Context, id int64) (*domain.Establishment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Establishment), args.Error(1)
}

func (m *mockApartmentRepo) Create(ctx context.Context, a *domain.Apartment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockApartmentRepo) GetByID(ctx context.Context, id int64) (*domain.Apartment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Apartment), args.Error(1)
}

func (m *mockApartmentRepo) LockForUpdate(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockApartmentRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockFutureBookings struct {
	mock.Mock
}

func (m *mockFutureBookings) HasFutureBookings(ctx context.Context, apartmentID int64, now time.Time) (bool, error) {
	args := m.Called(ctx, apartmentID, now)
	return args.Bool(0), args.Error(1)
}

type mockImages struct {
	mock.Mock
}

func (m *mockImages) ListByApartment(ctx context.Context, apartmentID int64) ([]domain.Image, error) {
	args := m.Called(ctx, apartmentID)
	return args.Get(0).([]domain.Image), args.Error(1)
}

func (m *mockImages) ListByEstablishment(ctx context.Context, establishmentID int64) ([]domain.Image, error) {
	args := m.Called(ctx, establishmentID)
	return args.Get(0).([]domain.Image), args.Error(1)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, current []domain.Image, keep []int64, add []image.NewImage, attach func(*domain.Image)) ([]domain.Image, error) {
	args := m.Called(ctx, current, keep, add)
	return args.Get(0).([]domain.Image), args.Error(1)
}

type serviceMocks struct {
	apartments *mockApartmentRepo
	bookings   *mockFutureBookings
	images     *mockImages
	photos     *mockResolver
	tx         *markingTx
}

const aptID int64 = 3

var (
	landlordActor = domain.Actor{UserID: 2, Role: domain.RoleLandlord}
	ownedApt      = &domain.Apartment{ID: aptID, EstablishmentID: 1, Establishment: &domain.Establishment{ID: 1, OwnerID: 2}}
)

func newTestService() (*Service, *serviceMocks) {
	m := &serviceMocks{
		apartments: new(mockApartmentRepo),
		bookings:   new(mockFutureBookings),
		images:     new(mockImages),
		photos:     new(mockResolver),
		tx:         &markingTx{},
	}
	svc := NewService(m.apartments, m.bookings, m.images, nil, m.photos, m.tx, nil)
	return svc, m
}

func TestService_Delete_ChecksBookingsUnderLock(t *testing.T) {
	svc, m := newTestService()
	var order []string
	m.apartments.On("LockForUpdate", inTx, aptID).Return(nil).Run(func(mock.Arguments) { order = append(order, "lock") })
	m.apartments.On("GetByID", inTx, aptID).Return(ownedApt, nil)
	m.bookings.On("HasFutureBookings", inTx, aptID, mock.Anything).Return(false, nil).
		Run(func(mock.Arguments) { order = append(order, "check") })
	imgs := []domain.Image{{ID: 9, ObjectKey: "apartments/3/a.png"}}
	m.images.On("ListByApartment", inTx, aptID).Return(imgs, nil)
	m.photos.On("Resolve", inTx, imgs, []int64(nil), []image.NewImage(nil)).Return([]domain.Image{}, nil)
	m.apartments.On("Delete", inTx, aptID).Return(nil).Run(func(mock.Arguments) { order = append(order, "delete") })

	require.NoError(t, svc.Delete(context.Background(), landlordActor, aptID))

	assert.Equal(t, []string{"lock", "check", "delete"}, order)
	assert.Equal(t, 1, m.tx.calls)
	m.apartments.AssertExpectations(t)
	m.photos.AssertExpectations(t)
}

func TestService_Delete_FutureBookingKeepsApartment(t *testing.T) {
	svc, m := newTestService()
	m.apartments.On("LockForUpdate", inTx, aptID).Return(nil)
	m.apartments.On("GetByID", inTx, aptID).Return(ownedApt, nil)
	m.bookings.On("HasFutureBookings", inTx, aptID, mock.Anything).Return(true, nil)

	err := svc.Delete(context.Background(), landlordActor, aptID)

	assert.ErrorIs(t, err, &apperr.Error{Kind: apperr.KindBusinessRule, Code: "APARTMENT_HAS_FUTURE_BOOKINGS"})
	m.photos.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.apartments.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestService_Delete_MissingApartment(t *testing.T) {
	svc, m := newTestService()
	m.apartments.On("LockForUpdate", inTx, int64(404)).Return(gorm.ErrRecordNotFound)

	err := svc.Delete(context.Background(), landlordActor, 404)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	m.bookings.AssertNotCalled(t, "HasFutureBookings", mock.Anything, mock.Anything, mock.Anything)
}
