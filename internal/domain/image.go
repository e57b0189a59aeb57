package domain

import "time"

// Image is the metadata row of a stored blob. Exactly one owner reference is set.
type Image struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	ApartmentID     *int64    `gorm:"index" json:"apartment_id,omitempty"`
	EstablishmentID *int64    `gorm:"index" json:"establishment_id,omitempty"`
	ObjectKey       string    `gorm:"type:varchar(512);not null" json:"object_key"`
	URL             string    `gorm:"type:text;not null" json:"url"`
	ContentType     string    `gorm:"type:varchar(100)" json:"content_type"`
	CreatedAt       time.Time `json:"created_at"`
}
