package domain

import "time"

// Scores holds the six rating dimensions, each on a 0..10 scale.
type Scores struct {
	Staff        float64 `gorm:"not null;default:0" json:"staff"`
	Purity       float64 `gorm:"not null;default:0" json:"purity"`
	PriceQuality float64 `gorm:"not null;default:0" json:"price_quality"`
	Comfort      float64 `gorm:"not null;default:0" json:"comfort"`
	Facilities   float64 `gorm:"not null;default:0" json:"facilities"`
	Location     float64 `gorm:"not null;default:0" json:"location"`
}

func (s Scores) Values() [6]float64 {
	return [6]float64{s.Staff, s.Purity, s.PriceQuality, s.Comfort, s.Facilities, s.Location}
}

func uniformScores(v float64) Scores {
	return Scores{Staff: v, Purity: v, PriceQuality: v, Comfort: v, Facilities: v, Location: v}
}

// GeneralRating is the arithmetic mean of the six dimensions.
func GeneralRating(s Scores) float64 {
	var sum float64
	for _, v := range s.Values() {
		sum += v
	}
	return sum / 6
}

// Rating is the aggregate attached to an apartment or a user.
// GeneralRating is only ever written by Recompute.
type Rating struct {
	ID            int64 `gorm:"primaryKey" json:"id"`
	Scores        `gorm:"embedded"`
	GeneralRating float64   `gorm:"not null;default:0" json:"general_rating"`
	ReviewCount   int       `gorm:"not null;default:0" json:"review_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (r *Rating) Recompute(now time.Time) {
	r.GeneralRating = GeneralRating(r.Scores)
	r.UpdatedAt = now
}

// AggregateDimensions averages each dimension across reviews. With no
// reviews every dimension equals defaultMax.
func AggregateDimensions(reviews []Review, defaultMax float64) Scores {
	if len(reviews) == 0 {
		return uniformScores(defaultMax)
	}
	var out Scores
	for _, rv := range reviews {
		out.Staff += rv.Staff
		out.Purity += rv.Purity
		out.PriceQuality += rv.PriceQuality
		out.Comfort += rv.Comfort
		out.Facilities += rv.Facilities
		out.Location += rv.Location
	}
	n := float64(len(reviews))
	out.Staff /= n
	out.Purity /= n
	out.PriceQuality /= n
	out.Comfort /= n
	out.Facilities /= n
	out.Location /= n
	return out
}

// AggregateRating is the mean of the reviews' overall ratings, or
// defaultMax when there are none.
func AggregateRating(reviews []Review, defaultMax float64) float64 {
	if len(reviews) == 0 {
		return defaultMax
	}
	var sum float64
	for _, rv := range reviews {
		sum += rv.Rating
	}
	return sum / float64(len(reviews))
}

// NewAggregate builds the stored rating for a target from its reviews.
func NewAggregate(reviews []Review, defaultMax float64, now time.Time) *Rating {
	r := &Rating{
		Scores:      AggregateDimensions(reviews, defaultMax),
		ReviewCount: len(reviews),
	}
	r.Recompute(now)
	return r
}
