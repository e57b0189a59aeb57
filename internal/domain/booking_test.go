package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRangesOverlap(t *testing.T) {
	tests := []struct {
		name string
		a    [2]string
		b    [2]string
		want bool
	}{
		{"identical", [2]string{"2024-03-01", "2024-03-05"}, [2]string{"2024-03-01", "2024-03-05"}, true},
		{"partial", [2]string{"2024-03-01", "2024-03-05"}, [2]string{"2024-03-04", "2024-03-06"}, true},
		{"contained", [2]string{"2024-03-01", "2024-03-10"}, [2]string{"2024-03-04", "2024-03-06"}, true},
		{"touching end", [2]string{"2024-03-01", "2024-03-05"}, [2]string{"2024-03-05", "2024-03-08"}, false},
		{"touching start", [2]string{"2024-03-05", "2024-03-08"}, [2]string{"2024-03-01", "2024-03-05"}, false},
		{"disjoint", [2]string{"2024-03-01", "2024-03-02"}, [2]string{"2024-04-01", "2024-04-02"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RangesOverlap(day(tt.a[0]), day(tt.a[1]), day(tt.b[0]), day(tt.b[1]))
			assert.Equal(t, tt.want, got)
		})
	}
}

// Two ranges overlap exactly when some night belongs to both.
func TestRangesOverlap_MatchesNightMembership(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := day("2024-01-01")

	for i := 0; i < 500; i++ {
		aFrom := rng.Intn(30)
		aTo := aFrom + 1 + rng.Intn(10)
		bFrom := rng.Intn(30)
		bTo := bFrom + 1 + rng.Intn(10)

		shared := false
		for n := aFrom; n < aTo; n++ {
			if n >= bFrom && n < bTo {
				shared = true
				break
			}
		}

		got := RangesOverlap(
			base.AddDate(0, 0, aFrom), base.AddDate(0, 0, aTo),
			base.AddDate(0, 0, bFrom), base.AddDate(0, 0, bTo),
		)
		assert.Equal(t, shared, got, "a=[%d,%d) b=[%d,%d)", aFrom, aTo, bFrom, bTo)
		assert.Equal(t, got, RangesOverlap(
			base.AddDate(0, 0, bFrom), base.AddDate(0, 0, bTo),
			base.AddDate(0, 0, aFrom), base.AddDate(0, 0, aTo),
		), "overlap must be symmetric")
	}
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	in := time.Date(2024, 3, 1, 23, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), DateOnly(in))
}

func TestBooking_CheckInIdempotent(t *testing.T) {
	b := &Booking{Status: BookingConfirmed}

	b.CheckIn()
	b.CheckIn()

	assert.True(t, b.IsCheckedIn)
	assert.Equal(t, BookingCheckedIn, b.Status)
}

func TestBooking_Confirm(t *testing.T) {
	b := &Booking{Status: BookingRequested}
	assert.True(t, b.Confirm())
	assert.False(t, b.Confirm())
	assert.Equal(t, BookingConfirmed, b.Status)

	checkedIn := &Booking{Status: BookingCheckedIn}
	assert.False(t, checkedIn.Confirm())
}

func TestBooking_Nights(t *testing.T) {
	b := &Booking{DateFrom: day("2024-03-01"), DateTo: day("2024-03-05")}
	assert.Equal(t, 4, b.Nights())
}
