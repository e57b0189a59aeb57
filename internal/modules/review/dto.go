package review

import (
	"time"

	"staybook/internal/domain"
)

type ScoresDTO struct {
	Staff        float64 `json:"staff" binding:"gte=0,lte=10" example:"9"`
	Purity       float64 `json:"purity" binding:"gte=0,lte=10" example:"10"`
	PriceQuality float64 `json:"priceQuality" binding:"gte=0,lte=10" example:"8"`
	Comfort      float64 `json:"comfort" binding:"gte=0,lte=10" example:"9"`
	Facilities   float64 `json:"facilities" binding:"gte=0,lte=10" example:"7"`
	Location     float64 `json:"location" binding:"gte=0,lte=10" example:"10"`
}

func (d ScoresDTO) toDomain() domain.Scores {
	return domain.Scores{
		Staff:        d.Staff,
		Purity:       d.Purity,
		PriceQuality: d.PriceQuality,
		Comfort:      d.Comfort,
		Facilities:   d.Facilities,
		Location:     d.Location,
	}
}

func scoresDTO(s domain.Scores) ScoresDTO {
	return ScoresDTO{
		Staff:        s.Staff,
		Purity:       s.Purity,
		PriceQuality: s.PriceQuality,
		Comfort:      s.Comfort,
		Facilities:   s.Facilities,
		Location:     s.Location,
	}
}

// CreateReviewRequest targets exactly one of apartmentId or userId.
type CreateReviewRequest struct {
	BookingID   int64  `json:"bookingId" binding:"required,gt=0" example:"42"`
	ApartmentID *int64 `json:"apartmentId,omitempty" example:"7"`
	UserID      *int64 `json:"userId,omitempty"`
	ScoresDTO
	Comment string `json:"comment,omitempty" binding:"max=2000"`
}

type UpdateReviewRequest struct {
	ScoresDTO
	Comment string `json:"comment,omitempty" binding:"max=2000"`
}

type TargetResponse struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

type ReviewResponse struct {
	ID        int64          `json:"id"`
	BookingID int64          `json:"bookingId"`
	AuthorID  int64          `json:"authorId"`
	Target    TargetResponse `json:"target"`
	ScoresDTO
	Rating    float64 `json:"rating"`
	Comment   string  `json:"comment,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

type ReviewListResponse struct {
	Items []ReviewResponse `json:"items"`
	Total int64            `json:"total"`
}

type RatingResponse struct {
	Target TargetResponse `json:"target"`
	ScoresDTO
	GeneralRating float64 `json:"generalRating"`
	ReviewCount   int     `json:"reviewCount"`
}

func toReviewResponse(rv *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:        rv.ID,
		BookingID: rv.BookingID,
		AuthorID:  rv.AuthorID,
		Target:    TargetResponse{Kind: string(rv.Target.Kind), ID: rv.Target.RefID},
		ScoresDTO: scoresDTO(rv.Scores),
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: rv.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func ToRatingResponse(target domain.ReviewTarget, rt *domain.Rating) RatingResponse {
	return RatingResponse{
		Target:        TargetResponse{Kind: string(target.Kind), ID: target.RefID},
		ScoresDTO:     scoresDTO(rt.Scores),
		GeneralRating: rt.GeneralRating,
		ReviewCount:   rt.ReviewCount,
	}
}
