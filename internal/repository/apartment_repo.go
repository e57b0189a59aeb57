package repository

import (
	"context"

	"staybook/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApartmentRepository struct {
	db *gorm.DB
}

func NewApartmentRepository(db *gorm.DB) *ApartmentRepository {
	return &ApartmentRepository{db: db}
}

func (r *ApartmentRepository) CreateEstablishment(ctx context.Context, e *domain.Establishment) error {
	return conn(ctx, r.db).Create(e).Error
}

func (r *ApartmentRepository) GetEstablishment(ctx context.Context, id int64) (*domain.Establishment, error) {
	var e domain.Establishment
	if err := conn(ctx, r.db).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ApartmentRepository) Create(ctx context.Context, a *domain.Apartment) error {
	return conn(ctx, r.db).Omit(clause.Associations).Create(a).Error
}

func (r *ApartmentRepository) GetByID(ctx context.Context, id int64) (*domain.Apartment, error) {
	var a domain.Apartment
	err := conn(ctx, r.db).
		Preload("Rating").
		Preload("Establishment").
		First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// LockForUpdate takes a row lock on the apartment for the surrounding
// transaction. Bookings of one apartment are created one at a time.
func (r *ApartmentRepository) LockForUpdate(ctx context.Context, id int64) error {
	var ids []int64
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Model(&domain.Apartment{}).
		Where("id = ?", id).
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ApartmentRepository) Delete(ctx context.Context, id int64) error {
	res := conn(ctx, r.db).Delete(&domain.Apartment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
