package apartment

import (
	"time"

	"staybook/internal/domain"
	"staybook/internal/modules/review"
)

type CreateEstablishmentRequest struct {
	Name    string `json:"name" binding:"required,max=255" example:"Seaside Hotel"`
	Address string `json:"address" example:"Odesa, Frantsuzkyi blvd 1"`
	Vibe    string `json:"vibe,omitempty" example:"Beach"`
	OwnerID int64  `json:"ownerId,omitempty"`
}

type CreateApartmentRequest struct {
	Name     string `json:"name" binding:"required,max=255" example:"Sea view double"`
	Capacity int    `json:"capacity" binding:"required,gt=0" example:"2"`
	Price    string `json:"price" binding:"required" example:"1500.00"`
	Currency string `json:"currency,omitempty" example:"UAH"`
}

type ImageResponse struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

type EstablishmentResponse struct {
	ID        int64           `json:"id"`
	OwnerID   int64           `json:"ownerId"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	Vibe      string          `json:"vibe"`
	Images    []ImageResponse `json:"images"`
	CreatedAt string          `json:"createdAt"`
}

type ApartmentResponse struct {
	ID              int64                  `json:"id"`
	EstablishmentID int64                  `json:"establishmentId"`
	Name            string                 `json:"name"`
	Capacity        int                    `json:"capacity"`
	Price           string                 `json:"price"`
	PriceMinor      int64                  `json:"priceMinor"`
	Currency        string                 `json:"currency"`
	Rating          *review.RatingResponse `json:"rating,omitempty"`
	Images          []ImageResponse        `json:"images"`
	CreatedAt       string                 `json:"createdAt"`
}

func toImageResponses(imgs []domain.Image) []ImageResponse {
	out := make([]ImageResponse, 0, len(imgs))
	for _, img := range imgs {
		out = append(out, ImageResponse{ID: img.ID, URL: img.URL, ContentType: img.ContentType})
	}
	return out
}

func toEstablishmentResponse(e *domain.Establishment, imgs []domain.Image) EstablishmentResponse {
	return EstablishmentResponse{
		ID:        e.ID,
		OwnerID:   e.OwnerID,
		Name:      e.Name,
		Address:   e.Address,
		Vibe:      e.Vibe,
		Images:    toImageResponses(imgs),
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toApartmentResponse(a *domain.Apartment, rating *domain.Rating, imgs []domain.Image) ApartmentResponse {
	resp := ApartmentResponse{
		ID:              a.ID,
		EstablishmentID: a.EstablishmentID,
		Name:            a.Name,
		Capacity:        a.Capacity,
		Price:           domain.FormatAmount(a.Price),
		PriceMinor:      a.Price,
		Currency:        a.Currency,
		Images:          toImageResponses(imgs),
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if rating != nil {
		r := review.ToRatingResponse(domain.TargetsApartment(a.ID), rating)
		resp.Rating = &r
	}
	return resp
}
