package repository

import (
	"context"

	"staybook/internal/domain"

	"gorm.io/gorm"
)

type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Create(ctx context.Context, img *domain.Image) error {
	return conn(ctx, r.db).Create(img).Error
}

func (r *ImageRepository) ListByApartment(ctx context.Context, apartmentID int64) ([]domain.Image, error) {
	var out []domain.Image
	err := conn(ctx, r.db).Where("apartment_id = ?", apartmentID).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *ImageRepository) ListByEstablishment(ctx context.Context, establishmentID int64) ([]domain.Image, error) {
	var out []domain.Image
	err := conn(ctx, r.db).Where("establishment_id = ?", establishmentID).Order("id ASC").Find(&out).Error
	return out, err
}

// Delete is idempotent: a missing row is not an error.
func (r *ImageRepository) Delete(ctx context.Context, id int64) error {
	return conn(ctx, r.db).Delete(&domain.Image{}, id).Error
}
