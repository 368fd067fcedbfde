// Package selection reduces a source's persisted pool to a bounded subset
// that favors the latest scrape batch without going all-flash-flood: 70% of
// the slots go to the fresh cohort, the rest are sampled evenly across the
// retention window's hourly buckets.
package selection

import (
	"math"
	"time"

	"pulsefeed/internal/model"
)

const (
	freshShare  = 0.7
	bucketCount = 6
)

// Select picks min(len(pool), limit) articles from pool. Pure: no I/O, deterministic
// given pool, limit and now. Output order is unspecified; callers sort by
// recency afterward.
func Select(pool []model.Article, limit int, now time.Time) []model.Article {
	if limit <= 0 || len(pool) == 0 {
		return nil
	}
	if len(pool) <= limit {
		return pool
	}

	latest := time.Time{}
	for _, a := range pool {
		if key := a.FreshnessKey(); key.After(latest) {
			latest = key
		}
	}

	var fresh, older []model.Article
	for _, a := range pool {
		if a.FreshnessKey().Equal(latest) {
			fresh = append(fresh, a)
		} else {
			older = append(older, a)
		}
	}

	freshTarget := int(math.Ceil(float64(limit) * freshShare))
	if freshTarget > len(fresh) {
		freshTarget = len(fresh)
	}

	selected := make([]model.Article, 0, limit)
	selected = append(selected, fresh[:freshTarget]...)
	selected = append(selected, balanceAcrossTime(older, limit-freshTarget, now)...)

	// A thin older pool leaves slots open; leftover fresh items take them so
	// the result is always min(len(pool), limit) articles.
	for i := freshTarget; i < len(fresh) && len(selected) < limit; i++ {
		selected = append(selected, fresh[i])
	}

	return selected
}

// balanceAcrossTime samples count articles spread over six one-hour buckets
// by age; anything five or more hours old lands in the last bucket. The
// per-bucket quota is count/6 with the remainder going to the earliest
// buckets; shortfall from thin buckets is backfilled from any unselected
// articles in input order.
func balanceAcrossTime(articles []model.Article, count int, now time.Time) []model.Article {
	if count <= 0 || len(articles) == 0 {
		return nil
	}
	if len(articles) <= count {
		return articles
	}

	buckets := make([][]int, bucketCount)
	for i, a := range articles {
		age := int(now.Sub(a.ReferenceTime()).Hours())
		if age < 0 {
			age = 0
		}
		if age > bucketCount-1 {
			age = bucketCount - 1
		}
		buckets[age] = append(buckets[age], i)
	}

	perBucket := count / bucketCount
	remainder := count % bucketCount

	picked := make([]bool, len(articles))
	selected := make([]model.Article, 0, count)

	for b, bucket := range buckets {
		take := perBucket
		if b < remainder {
			take++
		}
		for _, idx := range bucket {
			if take == 0 {
				break
			}
			selected = append(selected, articles[idx])
			picked[idx] = true
			take--
		}
	}

	for i, a := range articles {
		if len(selected) >= count {
			break
		}
		if !picked[i] {
			selected = append(selected, a)
			picked[i] = true
		}
	}

	return selected
}
