package memory

import (
	"math"
	"strings"
	"time"
)

// DefaultDecayRate is the hourly decay applied when none is configured:
// (1-0.01)^hours halves a recency score roughly every 69 hours.
const DefaultDecayRate = 0.01

// similarityFromRank approximates a similarity score from a result's rank
// position. The backing index surfaces order, not scores, so position stands
// in for similarity magnitude: 1.0 for the first hit, falling linearly to 0.1
// for the last. Rounded to keep float noise out of sort comparisons.
func similarityFromRank(position, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	score := 1.0 - float64(position)*0.9/float64(total-1)
	return math.Round(score*1e10) / 1e10
}

// timeScore computes an item's recency score: (1-decayRate)^hours since the
// item was last touched. last_accessed_at wins over created_at. An item with
// neither — or with a timestamp that does not parse — scores 0.0, so one bad
// record never aborts a retrieval. Future timestamps are not clamped and
// score above 1.0.
func timeScore(it Item, now time.Time, decayRate float64) float64 {
	raw := it.MetaString(MetaLastAccessed)
	if raw == "" {
		raw = it.MetaString(MetaCreatedAt)
	}
	if raw == "" {
		return 0.0
	}

	ts, err := ParseTimestamp(raw)
	if err != nil {
		return 0.0
	}

	hours := now.Sub(ts).Hours()
	return math.Pow(1.0-decayRate, hours)
}

// timestampLayouts are tried in order. RFC 3339 covers "Z" and numeric
// offsets; the bare layouts cover naive strings written by older tooling.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 string the way scoring compares times:
// any offset is dropped and the wall-clock fields are read as UTC. Failures
// come back as KindTimestamp soft errors.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, softf(KindTimestamp, "empty timestamp")
	}
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	}
	return time.Time{}, softf(KindTimestamp, "unparseable timestamp %q", raw)
}

// FormatTimestamp renders a timestamp the way the system writes metadata.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
