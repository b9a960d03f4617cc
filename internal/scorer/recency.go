// Package scorer computes recency-based priority scores for CRM contacts.
// A contact starts at 100 on signup day and loses a configurable number of
// points per elapsed day, clamped to [0,100].
package scorer

import (
	"time"
)

// DefaultDecayPerDay is the default number of points lost per elapsed day.
const DefaultDecayPerDay = 5.0

// Score maps a reference timestamp to a priority score in [0,100].
// A nil reference scores 0. Naive timestamps are assumed UTC. Deterministic
// given now.
func Score(ref *time.Time, decayPerDay float64, now time.Time) int {
	if ref == nil {
		return 0
	}

	daysOld := now.UTC().Sub(ref.UTC()).Seconds() / 86400
	score := 100 - daysOld*decayPerDay

	if score <= 0 {
		return 0
	}
	if score >= 100 {
		return 100
	}
	return int(score)
}

// timestampLayouts covers the store formats seen for signup dates.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a stored timestamp string, returning nil when the
// value is empty or unparseable. Callers treat nil as "score 0", never as an
// error.
func ParseTimestamp(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// Distribution tallies scores into the reporting tiers.
type Distribution struct {
	Hot      int // 90-100
	High     int // 75-89
	Medium   int // 50-74
	Low      int // 25-49
	VeryLow  int // 1-24
	Expired  int // 0
}

// Add records one score in the matching tier.
func (d *Distribution) Add(score int) {
	switch {
	case score >= 90:
		d.Hot++
	case score >= 75:
		d.High++
	case score >= 50:
		d.Medium++
	case score >= 25:
		d.Low++
	case score > 0:
		d.VeryLow++
	default:
		d.Expired++
	}
}
