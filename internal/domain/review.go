package domain

import (
	"errors"
	"time"
)

var ErrInvalidReviewTarget = errors.New("review target must be exactly one of apartment or user")

type TargetKind string

const (
	TargetApartment TargetKind = "apartment"
	TargetUser      TargetKind = "user"
)

// ReviewTarget is a tagged variant: a review targets an apartment or a user, never both.
type ReviewTarget struct {
	Kind  TargetKind `gorm:"column:target_kind;type:varchar(16);not null;index:idx_reviews_target;uniqueIndex:idx_reviews_booking_author_kind" json:"kind"`
	RefID int64      `gorm:"column:target_id;not null;index:idx_reviews_target" json:"id"`
}

func TargetsApartment(id int64) ReviewTarget {
	return ReviewTarget{Kind: TargetApartment, RefID: id}
}

func TargetsUser(id int64) ReviewTarget {
	return ReviewTarget{Kind: TargetUser, RefID: id}
}

// NewReviewTarget builds the variant from two optional ids, rejecting both and neither.
func NewReviewTarget(apartmentID, userID *int64) (ReviewTarget, error) {
	switch {
	case apartmentID != nil && userID == nil && *apartmentID > 0:
		return TargetsApartment(*apartmentID), nil
	case userID != nil && apartmentID == nil && *userID > 0:
		return TargetsUser(*userID), nil
	}
	return ReviewTarget{}, ErrInvalidReviewTarget
}

func (t ReviewTarget) Validate() error {
	if (t.Kind != TargetApartment && t.Kind != TargetUser) || t.RefID <= 0 {
		return ErrInvalidReviewTarget
	}
	return nil
}

type Review struct {
	ID        int64        `gorm:"primaryKey" json:"id"`
	BookingID int64        `gorm:"not null;uniqueIndex:idx_reviews_booking_author_kind" json:"booking_id"`
	AuthorID  int64        `gorm:"not null;uniqueIndex:idx_reviews_booking_author_kind" json:"author_id"`
	Target    ReviewTarget `gorm:"embedded" json:"target"`
	Scores    `gorm:"embedded"`
	// Rating is the mean of the review's own dimensions.
	Rating    float64   `gorm:"not null;default:0" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Review) Recompute(now time.Time) {
	r.Rating = GeneralRating(r.Scores)
	r.UpdatedAt = now
}
