package feed

import (
	"math"
	"time"
)

// hotOffset and hotDivisor are part of the ranking contract, changing them
// reorders every feed.
const (
	hotOffset  = 100000
	hotDivisor = 6
)

// HotRank is endorsements / ((now - created + 100000) / 6)^(1/3), with
// times in epoch seconds. It is the Go mirror of hotOrderSQL.
func HotRank(endorsements int, createdAt, now time.Time) float64 {
	age := float64(now.Unix()-createdAt.Unix()) + hotOffset
	return float64(endorsements) / math.Cbrt(age/hotDivisor)
}

// hotOrderSQL orders table rows by HotRank. The single placeholder is the
// query's "now" in epoch seconds.
func hotOrderSQL(table string) string {
	return table + ".endorsement_count / POWER((? - EXTRACT(EPOCH FROM " + table + ".created_at) + 100000) / 6, 1.0 / 3) DESC"
}
