package pipeline

import (
	"time"

	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
)

const (
	AgingAfter = 7 * 24 * time.Hour
	StaleAfter = 30 * 24 * time.Hour
	ColdAfter  = 90 * 24 * time.Hour
)

// ClassifyFreshness maps the time since a stage's last event onto a band.
// Bands are inclusive at their lower bound. Negative durations (clock skew)
// count as fresh.
func ClassifyFreshness(elapsed time.Duration) enums.FreshnessBand {
	switch {
	case elapsed < AgingAfter:
		return enums.FreshnessFresh
	case elapsed < StaleAfter:
		return enums.FreshnessAging
	case elapsed < ColdAfter:
		return enums.FreshnessStale
	default:
		return enums.FreshnessCold
	}
}

// FreshnessSince classifies last relative to now, returning FreshnessNone when
// the stage has no events.
func FreshnessSince(last *time.Time, now time.Time) enums.FreshnessBand {
	if last == nil || last.IsZero() {
		return enums.FreshnessNone
	}
	return ClassifyFreshness(now.Sub(*last))
}
