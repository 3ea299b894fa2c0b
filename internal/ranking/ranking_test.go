package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestScore_Deterministic(t *testing.T) {
	createdAt := now.Add(-48 * time.Hour)

	a := Score(12, 3, 7, createdAt, ModeWeb, now)
	b := Score(12, 3, 7, createdAt, ModeWeb, now)
	assert.Equal(t, a, b)

	a = Score(12, 3, 7, createdAt, ModeAPI, now)
	b = Score(12, 3, 7, createdAt, ModeAPI, now)
	assert.Equal(t, a, b)
}

func TestFreshness_Tiers(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"brand new", 0, 1.0},
		{"six days", 6 * 24 * time.Hour, 1.0},
		{"exactly one week", 7 * 24 * time.Hour, 0.9},
		{"three weeks", 21 * 24 * time.Hour, 0.9},
		{"exactly one month", 30 * 24 * time.Hour, 0.8},
		{"two months", 60 * 24 * time.Hour, 0.7},
		{"five months", 150 * 24 * time.Hour, 0.4},
		{"very old floors at 0.1", 3000 * 24 * time.Hour, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Freshness(now.Add(-tt.age), now)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScore_WebFormula(t *testing.T) {
	createdAt := now.Add(-24 * time.Hour) // freshness 1.0

	// net=9, total=15, ratio=0.8: (9 + 0.5*4)*0.5 + 80*0.3 = 5.5 + 24 = 29.5
	got := Score(12, 3, 4, createdAt, ModeWeb, now)
	assert.InDelta(t, 29.5, got, 1e-9)
}

func TestScore_ControversyBonus(t *testing.T) {
	createdAt := now.Add(-24 * time.Hour)

	// total=11, ratio=6/11≈0.545: bonus applies
	withBonus := Score(6, 5, 0, createdAt, ModeWeb, now)
	// total=10, same-ish ratio: too few votes, no bonus
	few := Score(6, 4, 0, createdAt, ModeWeb, now)
	// total=20 but ratio exactly 0.6 is outside the open interval
	ratioSixTenths := Score(12, 8, 0, createdAt, ModeWeb, now)

	// with bonus: (1*0.5) + (6.0/11*100)*0.3 + 10
	wantBonus := 0.5 + (6.0/11.0*100)*0.3 + 10
	assert.InDelta(t, wantBonus, withBonus, 1e-9)

	// without: (2*0.5) + 60*0.3 + 0
	assert.InDelta(t, 1.0+18.0, few, 1e-9)

	// without: (4*0.5) + 60*0.3 + 0
	assert.InDelta(t, 2.0+18.0, ratioSixTenths, 1e-9)
}

func TestScore_APIFormula(t *testing.T) {
	createdAt := now.Add(-24 * time.Hour)

	// total=40 <= 50: no popularity bonus. net=20, ratio=0.75
	got := Score(30, 10, 0, createdAt, ModeAPI, now)
	assert.InDelta(t, 20*0.75*0.7, got, 1e-9)

	// total=60 > 50: bonus ln(60)*5. net=40, ratio=50/60
	got = Score(50, 10, 0, createdAt, ModeAPI, now)
	want := 40*(50.0/60.0)*0.7 + math.Log(60)*5
	assert.InDelta(t, want, got, 1e-9)
}

func TestScore_NoVotes(t *testing.T) {
	createdAt := now.Add(-24 * time.Hour)

	// ratio is 0 when nobody voted, not NaN
	got := Score(0, 0, 2, createdAt, ModeWeb, now)
	assert.False(t, math.IsNaN(got))
	assert.InDelta(t, 0.5, got, 1e-9) // comments*0.5*0.5

	got = Score(0, 0, 0, createdAt, ModeAPI, now)
	assert.Zero(t, got)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeAPI, ParseMode("api"))
	assert.Equal(t, ModeWeb, ParseMode("web"))
	assert.Equal(t, ModeWeb, ParseMode(""))
	assert.Equal(t, ModeWeb, ParseMode("bogus"))
}
