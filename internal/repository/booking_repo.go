package repository

import (
	"context"
	"time"

	"staybook/internal/domain"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID                 int64     `gorm:"column:id;primaryKey"`
	UserID             int64     `gorm:"column:user_id;not null;index"`
	ApartmentID        int64     `gorm:"column:apartment_id;not null;index"`
	DateFrom           time.Time `gorm:"column:date_from;not null"`
	DateTo             time.Time `gorm:"column:date_to;not null"`
	Status             string    `gorm:"column:status;type:varchar(20);not null;default:'requested'"`
	IsCheckedIn        bool      `gorm:"column:is_checked_in;not null;default:false"`
	AdditionalRequests *string   `gorm:"column:additional_requests;type:text"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (bookingModel) TableName() string { return "bookings" }

func toDomainBooking(m bookingModel) *domain.Booking {
	return &domain.Booking{
		ID:                 m.ID,
		UserID:             m.UserID,
		ApartmentID:        m.ApartmentID,
		DateFrom:           m.DateFrom.UTC(),
		DateTo:             m.DateTo.UTC(),
		Status:             domain.BookingStatus(m.Status),
		IsCheckedIn:        m.IsCheckedIn,
		AdditionalRequests: m.AdditionalRequests,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toBookingModel(b *domain.Booking) bookingModel {
	return bookingModel{
		ID:                 b.ID,
		UserID:             b.UserID,
		ApartmentID:        b.ApartmentID,
		DateFrom:           b.DateFrom,
		DateTo:             b.DateTo,
		Status:             string(b.Status),
		IsCheckedIn:        b.IsCheckedIn,
		AdditionalRequests: b.AdditionalRequests,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func toDomainBookings(ms []bookingModel) []domain.Booking {
	out := make([]domain.Booking, 0, len(ms))
	for _, m := range ms {
		out = append(out, *toDomainBooking(m))
	}
	return out
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	m := toBookingModel(b)
	tx := conn(ctx, r.db).Create(&m)
	if tx.Error != nil {
		if isExclusionViolation(tx.Error) {
			return ErrBookingOverlap
		}
		return tx.Error
	}
	*b = *toDomainBooking(m)
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var m bookingModel
	tx := conn(ctx, r.db).First(&m, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainBooking(m), nil
}

type BookingFilter struct {
	UserID      int64
	ApartmentID int64
	Limit       int
	Offset      int
}

func (r *BookingRepository) List(ctx context.Context, f BookingFilter) ([]domain.Booking, int64, error) {
	q := conn(ctx, r.db).Model(&bookingModel{})
	if f.UserID > 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ApartmentID > 0 {
		q = q.Where("apartment_id = ?", f.ApartmentID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var ms []bookingModel
	if err := q.Order("date_from ASC, id ASC").Limit(limit).Offset(f.Offset).Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return toDomainBookings(ms), total, nil
}

// ListByApartment returns every booking of the apartment except excludeID.
func (r *BookingRepository) ListByApartment(ctx context.Context, apartmentID, excludeID int64) ([]domain.Booking, error) {
	q := conn(ctx, r.db).Where("apartment_id = ?", apartmentID)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var ms []bookingModel
	if err := q.Order("date_from ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainBookings(ms), nil
}

// ListOverlapping returns the apartment's bookings intersecting [from, to).
func (r *BookingRepository) ListOverlapping(ctx context.Context, apartmentID int64, from, to time.Time) ([]domain.Booking, error) {
	var ms []bookingModel
	err := conn(ctx, r.db).
		Where("apartment_id = ? AND date_from < ? AND date_to > ?", apartmentID, to, from).
		Order("date_from ASC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return toDomainBookings(ms), nil
}

// UpdateDetails overwrites the editable fields. Owner, status, check-in flag
// and creation time are never touched here.
func (r *BookingRepository) UpdateDetails(ctx context.Context, b *domain.Booking) error {
	res := conn(ctx, r.db).Model(&bookingModel{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{
			"apartment_id":        b.ApartmentID,
			"date_from":           b.DateFrom,
			"date_to":             b.DateTo,
			"additional_requests": b.AdditionalRequests,
			"updated_at":          b.UpdatedAt,
		})
	if res.Error != nil {
		if isExclusionViolation(res.Error) {
			return ErrBookingOverlap
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *BookingRepository) MarkCheckedIn(ctx context.Context, id int64, at time.Time) error {
	res := conn(ctx, r.db).Model(&bookingModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_checked_in": true,
			"status":        string(domain.BookingCheckedIn),
			"updated_at":    at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ConfirmIfRequested moves a requested booking to confirmed. It reports
// whether a row changed.
func (r *BookingRepository) ConfirmIfRequested(ctx context.Context, id int64, at time.Time) (bool, error) {
	res := conn(ctx, r.db).Model(&bookingModel{}).
		Where("id = ? AND status = ?", id, string(domain.BookingRequested)).
		Updates(map[string]any{
			"status":     string(domain.BookingConfirmed),
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	res := conn(ctx, r.db).Delete(&bookingModel{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// HasFutureBookings reports whether the apartment has a booking ending after now.
func (r *BookingRepository) HasFutureBookings(ctx context.Context, apartmentID int64, now time.Time) (bool, error) {
	var cnt int64
	err := conn(ctx, r.db).Model(&bookingModel{}).
		Where("apartment_id = ? AND date_to > ?", apartmentID, now).
		Count(&cnt).Error
	return cnt > 0, err
}

// BookingParties identifies who stayed and who hosted.
type BookingParties struct {
	BookingID   int64
	TenantID    int64
	LandlordID  int64
	ApartmentID int64
}

func (r *BookingRepository) GetParties(ctx context.Context, bookingID int64) (*BookingParties, error) {
	var row struct {
		ID          int64
		UserID      int64
		ApartmentID int64
		OwnerID     int64
	}
	tx := conn(ctx, r.db).
		Table("bookings AS b").
		Select("b.id, b.user_id, b.apartment_id, e.owner_id").
		Joins("JOIN apartments a ON a.id = b.apartment_id").
		Joins("JOIN establishments e ON e.id = a.establishment_id").
		Where("b.id = ?", bookingID).
		Limit(1).
		Scan(&row)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &BookingParties{
		BookingID:   row.ID,
		TenantID:    row.UserID,
		LandlordID:  row.OwnerID,
		ApartmentID: row.ApartmentID,
	}, nil
}
