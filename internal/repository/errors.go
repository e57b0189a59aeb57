package repository

import (
	"errors"
	"strings"

	"staybook/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrBookingOverlap is returned when the store rejects an overlapping booking.
var ErrBookingOverlap = errors.New("booking overlaps an existing booking")

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation
}

// Models lists every persisted type, in dependency order, for migrations.
func Models() []any {
	return []any{
		&domain.Rating{},
		&domain.User{},
		&domain.Establishment{},
		&domain.Apartment{},
		&bookingModel{},
		&domain.Payment{},
		&domain.Review{},
		&domain.Image{},
	}
}
