package repository

import (
	"context"
	"time"

	"staybook/internal/domain"

	"gorm.io/gorm"
)

type ReviewRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create recomputes the review's overall rating before inserting it.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	rv.Recompute(r.now())
	return conn(ctx, r.db).Create(rv).Error
}

// Update recomputes the review's overall rating before saving it.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) error {
	rv.Recompute(r.now())
	res := conn(ctx, r.db).Model(&domain.Review{}).
		Where("id = ?", rv.ID).
		Updates(map[string]any{
			"staff":         rv.Staff,
			"purity":        rv.Purity,
			"price_quality": rv.PriceQuality,
			"comfort":       rv.Comfort,
			"facilities":    rv.Facilities,
			"location":      rv.Location,
			"rating":        rv.Rating,
			"comment":       rv.Comment,
			"updated_at":    rv.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	var rv domain.Review
	if err := conn(ctx, r.db).First(&rv, id).Error; err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	res := conn(ctx, r.db).Delete(&domain.Review{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ReviewRepository) ListByTarget(ctx context.Context, target domain.ReviewTarget, limit, offset int) ([]domain.Review, int64, error) {
	q := conn(ctx, r.db).Model(&domain.Review{}).
		Where("target_kind = ? AND target_id = ?", target.Kind, target.RefID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []domain.Review
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AllByTarget returns every review of the target, for aggregation.
func (r *ReviewRepository) AllByTarget(ctx context.Context, target domain.ReviewTarget) ([]domain.Review, error) {
	var out []domain.Review
	err := conn(ctx, r.db).
		Where("target_kind = ? AND target_id = ?", target.Kind, target.RefID).
		Find(&out).Error
	return out, err
}

func (r *ReviewRepository) CountByBooking(ctx context.Context, bookingID int64) (int64, error) {
	var cnt int64
	err := conn(ctx, r.db).Model(&domain.Review{}).Where("booking_id = ?", bookingID).Count(&cnt).Error
	return cnt, err
}

func (r *ReviewRepository) ExistsForBooking(ctx context.Context, bookingID, authorID int64, kind domain.TargetKind) (bool, error) {
	var cnt int64
	err := conn(ctx, r.db).Model(&domain.Review{}).
		Where("booking_id = ? AND author_id = ? AND target_kind = ?", bookingID, authorID, kind).
		Count(&cnt).Error
	return cnt > 0, err
}
