package model

import (
	"strconv"
	"time"
)

// Category groups sources into the three feeds the front end serves.
type Category string

const (
	CategoryCrypto  Category = "crypto"
	CategoryAI      Category = "ai"
	CategoryProduct Category = "product"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCrypto, CategoryAI, CategoryProduct:
		return true
	}
	return false
}

func Categories() []Category {
	return []Category{CategoryCrypto, CategoryAI, CategoryProduct}
}

// Article is the normalized unit every adapter emits and the store persists.
// ArticleURL is the identity key: the store enforces uniqueness on it.
type Article struct {
	ID              int64
	Title           string
	Excerpt         string
	ImageURL        string // empty means no image
	Source          string
	ArticleURL      string
	PublishedAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ScrapeBatchID   string
	ScrapeBatchTime time.Time
}

// FreshnessKey is the cohort timestamp the selection engine compares:
// the scrape batch time when set, otherwise the last update.
func (a Article) FreshnessKey() time.Time {
	if !a.ScrapeBatchTime.IsZero() {
		return a.ScrapeBatchTime
	}
	return a.UpdatedAt
}

// ReferenceTime is the timestamp used for hour-bucketing and recency sorts.
func (a Article) ReferenceTime() time.Time {
	if !a.UpdatedAt.IsZero() {
		return a.UpdatedAt
	}
	return a.PublishedAt
}

// BatchToken renders a cycle start time as the batch identifier shared by
// every row touched in that cycle. Millisecond precision keeps tokens from
// back-to-back cycles distinguishable.
func BatchToken(t time.Time) string {
	return "batch-" + strconv.FormatInt(t.UTC().UnixMilli(), 10)
}
