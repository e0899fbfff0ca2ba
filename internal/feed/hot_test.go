package feed

import (
	"math"
	"testing"
	"time"
)

func TestHotRankFormula(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	created := now.Add(-2 * time.Hour)

	// 10 / ((7200 + 100000) / 6)^(1/3)
	want := 10 / math.Cbrt(107200.0/6)
	if got := HotRank(10, created, now); math.Abs(got-want) > 1e-12 {
		t.Fatalf("HotRank = %v, want %v", got, want)
	}
	if got := HotRank(0, created, now); got != 0 {
		t.Fatalf("zero endorsements should rank 0, got %v", got)
	}
}

func TestHotRankNewerRanksAtLeastAsHigh(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	for _, count := range []int{0, 1, 5, 100, 10000} {
		prev := math.Inf(1)
		for _, age := range []time.Duration{0, time.Minute, time.Hour, 24 * time.Hour, 30 * 24 * time.Hour, 365 * 24 * time.Hour} {
			score := HotRank(count, now.Add(-age), now)
			if score > prev {
				t.Fatalf("count %d: older row (age %v) outranks newer one: %v > %v", count, age, score, prev)
			}
			prev = score
		}
	}
}

func TestHotRankMoreEndorsementsRankHigher(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	created := now.Add(-3 * time.Hour)
	if HotRank(5, created, now) <= HotRank(4, created, now) {
		t.Fatal("more endorsements at equal age must rank higher")
	}
}

func TestHotOrderSQLKeepsConstants(t *testing.T) {
	sql := hotOrderSQL("posts")
	for _, frag := range []string{"posts.endorsement_count", "+ 100000", "/ 6", "1.0 / 3", "EXTRACT(EPOCH FROM posts.created_at)"} {
		if !contains(sql, frag) {
			t.Errorf("hot order %q is missing %q", sql, frag)
		}
	}
}
