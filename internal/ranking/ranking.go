// Package ranking computes the relevance score used by the default post
// listing order. Scoring is a pure function of the vote counters, the
// comment count and the post age; callers pass an explicit "now" so two
// invocations over the same inputs return identical floats.
package ranking

import (
	"math"
	"time"
)

// Mode selects the scoring formula.
type Mode string

const (
	ModeWeb Mode = "web"
	ModeAPI Mode = "api"
)

// ParseMode maps a query parameter to a Mode, defaulting to web.
func ParseMode(s string) Mode {
	if s == string(ModeAPI) {
		return ModeAPI
	}
	return ModeWeb
}

const (
	week  = 7 * 24 * time.Hour
	month = 30 * 24 * time.Hour
)

// Freshness returns the age multiplier. The tiers are half-open: a post
// exactly one week old is already in the 0.9 tier.
func Freshness(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt)

	switch {
	case age < week:
		return 1.0
	case age < month:
		return 0.9
	default:
		monthsOld := math.Floor(float64(age) / float64(month))
		return math.Max(0.1, 0.8-(monthsOld-1)*0.1)
	}
}

// Score ranks a post; higher is more relevant.
//
// Web mode blends net engagement with vote quality and gives a flat bonus
// to contested posts. API mode weighs net votes by the approval ratio and
// rewards high-traffic posts logarithmically. Both decay with age.
func Score(upvotes, downvotes, comments int, createdAt time.Time, mode Mode, now time.Time) float64 {
	net := float64(upvotes - downvotes)
	total := float64(upvotes + downvotes)

	ratio := 0.0
	if total > 0 {
		ratio = float64(upvotes) / total
	}

	freshness := Freshness(createdAt, now)

	if mode == ModeAPI {
		quality := net * ratio
		popularityBonus := 0.0
		if total > 50 {
			popularityBonus = math.Log(total) * 5
		}
		return (quality*0.7 + popularityBonus) * freshness
	}

	engagement := net*1.0 + float64(comments)*0.5
	quality := ratio * 100
	controversyBonus := 0.0
	if total > 10 && ratio > 0.4 && ratio < 0.6 {
		controversyBonus = 10
	}
	return (engagement*0.5 + quality*0.3 + controversyBonus) * freshness
}
