package memory

import (
	"math"
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

// itemAgedBy returns an item whose created_at lies the given duration before
// testNow.
func itemAgedBy(id string, age time.Duration) Item {
	return Item{
		ID:      id,
		Content: "content of " + id,
		Metadata: map[string]any{
			MetaCreatedAt: FormatTimestamp(testNow.Add(-age)),
		},
	}
}

func TestSimilarityFromRankEndpoints(t *testing.T) {
	for _, total := range []int{2, 3, 5, 10, 20} {
		if got := similarityFromRank(0, total); got != 1.0 {
			t.Errorf("total=%d: first position = %v, want 1.0", total, got)
		}
		if got := similarityFromRank(total-1, total); got != 0.1 {
			t.Errorf("total=%d: last position = %v, want 0.1", total, got)
		}
	}
}

func TestSimilarityFromRankNonIncreasing(t *testing.T) {
	for _, total := range []int{2, 4, 7, 20} {
		prev := math.Inf(1)
		for pos := 0; pos < total; pos++ {
			got := similarityFromRank(pos, total)
			if got > prev {
				t.Errorf("total=%d: score increased at position %d: %v > %v", total, pos, got, prev)
			}
			prev = got
		}
	}
}

func TestSimilarityFromRankSingleCandidate(t *testing.T) {
	if got := similarityFromRank(0, 1); got != 1.0 {
		t.Errorf("single candidate = %v, want 1.0", got)
	}
	if got := similarityFromRank(0, 0); got != 1.0 {
		t.Errorf("empty set = %v, want 1.0", got)
	}
}

func TestTimeScoreDecay(t *testing.T) {
	fresh := itemAgedBy("fresh", 0)
	if got := timeScore(fresh, testNow, 0.01); got != 1.0 {
		t.Errorf("fresh item = %v, want 1.0", got)
	}

	aged := itemAgedBy("aged", 100*time.Hour)
	got := timeScore(aged, testNow, 0.01)
	want := 0.366 // (0.99)^100
	if math.Abs(got-want) > 1e-3 {
		t.Errorf("100h item = %v, want %v within 1e-3", got, want)
	}
}

func TestTimeScoreMissingTimestamps(t *testing.T) {
	item := Item{ID: "bare", Content: "no metadata at all"}
	if got := timeScore(item, testNow, 0.01); got != 0.0 {
		t.Errorf("item without timestamps = %v, want 0.0", got)
	}
}

func TestTimeScoreMalformedTimestamp(t *testing.T) {
	item := Item{
		ID:       "bad",
		Metadata: map[string]any{MetaCreatedAt: "not-a-date"},
	}
	if got := timeScore(item, testNow, 0.01); got != 0.0 {
		t.Errorf("malformed timestamp = %v, want 0.0", got)
	}

	// Non-string values are just as unparseable.
	item.Metadata[MetaCreatedAt] = 12345
	if got := timeScore(item, testNow, 0.01); got != 0.0 {
		t.Errorf("non-string timestamp = %v, want 0.0", got)
	}
}

func TestTimeScoreLastAccessedWins(t *testing.T) {
	item := Item{
		ID: "both",
		Metadata: map[string]any{
			MetaCreatedAt:    FormatTimestamp(testNow.Add(-30 * 24 * time.Hour)),
			MetaLastAccessed: FormatTimestamp(testNow.Add(-1 * time.Hour)),
		},
	}

	got := timeScore(item, testNow, 0.01)
	want := math.Pow(0.99, 1)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("score = %v, want %v (the 1-hour computation)", got, want)
	}
}

func TestTimeScoreDecayRateSeparation(t *testing.T) {
	fresh := itemAgedBy("fresh", 0)
	aged := itemAgedBy("aged", 50*time.Hour)

	gap := func(rate float64) float64 {
		return timeScore(fresh, testNow, rate) - timeScore(aged, testNow, rate)
	}

	if g1, g2 := gap(0.05), gap(0.01); g1 <= g2 {
		t.Errorf("gap under rate 0.05 = %v should exceed gap under 0.01 = %v", g1, g2)
	}
}

func TestTimeScoreFutureTimestampNotClamped(t *testing.T) {
	future := itemAgedBy("future", -10*time.Hour)
	if got := timeScore(future, testNow, 0.01); got <= 1.0 {
		t.Errorf("future item = %v, want > 1.0", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"utc z", "2025-03-15T10:30:00Z", time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"explicit offset keeps wall clock", "2025-03-15T10:30:00+05:00", time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"naive", "2025-03-15T10:30:00", time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"space separator", "2025-03-15 10:30:00", time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"date only", "2025-03-15", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"fractional", "2025-03-15T10:30:00.500Z", time.Date(2025, 3, 15, 10, 30, 0, 500000000, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if err != nil {
				t.Fatalf("ParseTimestamp(%q): %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTimestampFailure(t *testing.T) {
	for _, in := range []string{"", "not-a-date", "15/03/2025", "soon"} {
		_, err := ParseTimestamp(in)
		if err == nil {
			t.Errorf("ParseTimestamp(%q): expected error", in)
			continue
		}
		if !IsSoft(err, KindTimestamp) {
			t.Errorf("ParseTimestamp(%q): error %v is not a timestamp soft error", in, err)
		}
	}
}
