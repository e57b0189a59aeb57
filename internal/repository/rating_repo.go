package repository

import (
	"context"
	"fmt"
	"time"

	"staybook/internal/domain"

	"gorm.io/gorm"
)

type RatingRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *RatingRepository) GetByID(ctx context.Context, id int64) (*domain.Rating, error) {
	var rt domain.Rating
	if err := conn(ctx, r.db).First(&rt, id).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// Save recomputes GeneralRating and then inserts or updates the row.
func (r *RatingRepository) Save(ctx context.Context, rt *domain.Rating) error {
	rt.Recompute(r.now())
	if rt.ID == 0 {
		return conn(ctx, r.db).Create(rt).Error
	}
	return conn(ctx, r.db).Save(rt).Error
}

func targetTable(kind domain.TargetKind) (string, error) {
	switch kind {
	case domain.TargetApartment:
		return "apartments", nil
	case domain.TargetUser:
		return "users", nil
	}
	return "", fmt.Errorf("unknown review target kind %q", kind)
}

// RatingIDFor returns the rating attached to the target, if any.
func (r *RatingRepository) RatingIDFor(ctx context.Context, target domain.ReviewTarget) (*int64, error) {
	table, err := targetTable(target.Kind)
	if err != nil {
		return nil, err
	}
	var row struct {
		RatingID *int64
	}
	tx := conn(ctx, r.db).Table(table).Select("rating_id").Where("id = ?", target.RefID).Limit(1).Scan(&row)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return row.RatingID, nil
}

func (r *RatingRepository) Attach(ctx context.Context, target domain.ReviewTarget, ratingID int64) error {
	table, err := targetTable(target.Kind)
	if err != nil {
		return err
	}
	res := conn(ctx, r.db).Table(table).Where("id = ?", target.RefID).Update("rating_id", ratingID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
