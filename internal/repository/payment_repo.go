package repository

import (
	"context"
	"time"

	"staybook/internal/domain"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return conn(ctx, r.db).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	var p domain.Payment
	if err := conn(ctx, r.db).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	var out []domain.Payment
	err := conn(ctx, r.db).Where("booking_id = ?", bookingID).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

// FindActiveByBooking returns the pending or completed payment of a booking.
func (r *PaymentRepository) FindActiveByBooking(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	var p domain.Payment
	err := conn(ctx, r.db).
		Where("booking_id = ? AND status IN ?", bookingID, domain.ActivePaymentStatuses).
		Order("id DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) FindByInvoiceID(ctx context.Context, invoiceID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := conn(ctx, r.db).Where("invoice_id = ?", invoiceID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) HasCompleted(ctx context.Context, bookingID int64) (bool, error) {
	var cnt int64
	err := conn(ctx, r.db).Model(&domain.Payment{}).
		Where("booking_id = ? AND status = ?", bookingID, domain.PaymentCompleted).
		Count(&cnt).Error
	return cnt > 0, err
}

// TransitionStatus applies from -> to only while the row is still in from.
// It reports whether the row changed.
func (r *PaymentRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.PaymentStatus, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if to == domain.PaymentCompleted {
		updates["paid_at"] = at
	}
	res := conn(ctx, r.db).Model(&domain.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepository) SetInvoice(ctx context.Context, id int64, invoiceID, invoiceURL string, at time.Time) error {
	res := conn(ctx, r.db).Model(&domain.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentPending).
		Updates(map[string]any{
			"invoice_id":  invoiceID,
			"invoice_url": invoiceURL,
			"updated_at":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteUnsettledByBooking removes every payment of the booking that is not completed.
func (r *PaymentRepository) DeleteUnsettledByBooking(ctx context.Context, bookingID int64) error {
	return conn(ctx, r.db).
		Where("booking_id = ? AND status <> ?", bookingID, domain.PaymentCompleted).
		Delete(&domain.Payment{}).Error
}
