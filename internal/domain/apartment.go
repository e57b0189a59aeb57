package domain

import (
	"strings"
	"time"
)

// Establishment groups apartments under one owner (a hotel, a house).
type Establishment struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	OwnerID   int64     `gorm:"index;not null" json:"owner_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Address   string    `gorm:"type:text" json:"address"`
	Vibe      string    `gorm:"type:varchar(64)" json:"vibe,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Apartment struct {
	ID              int64  `gorm:"primaryKey" json:"id"`
	EstablishmentID int64  `gorm:"index;not null" json:"establishment_id"`
	Name            string `gorm:"type:varchar(255);not null" json:"name"`
	Capacity        int    `gorm:"not null;default:1" json:"capacity"`
	// Price per night in minor currency units.
	Price     int64     `gorm:"not null;default:0" json:"price"`
	Currency  string    `gorm:"type:varchar(3);not null;default:'UAH'" json:"currency"`
	RatingID  *int64    `json:"rating_id,omitempty"`
	Rating    *Rating   `gorm:"foreignKey:RatingID" json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Establishment *Establishment `gorm:"foreignKey:EstablishmentID" json:"establishment,omitempty"`
}

// Vibes are the accepted establishment moods.
var Vibes = []string{"Beach", "Nature", "City", "Relax", "Mountains", "None"}

// NormalizeVibe matches v case-insensitively against Vibes. Empty means None.
func NormalizeVibe(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "None", true
	}
	for _, known := range Vibes {
		if strings.EqualFold(v, known) {
			return known, true
		}
	}
	return "", false
}
