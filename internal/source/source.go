// Package source holds the per-site scraping adapters. Each adapter fetches
// one external site and emits normalized article candidates. Failures stay
// inside the adapter: a dead page or a garbled item costs only that item, the
// returned error is informational and the orchestrator absorbs it.
package source

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"pulsefeed/internal/model"
)

// Source is the adapter contract. Fetch returns whatever subset of the site
// it managed to scrape; an error means the site itself was unreachable.
type Source interface {
	Name() string
	Category() model.Category
	Fetch(ctx context.Context) ([]model.Article, error)
}

// Kind selects the shared engine a declarative descriptor runs on.
type Kind string

const (
	KindRSS  Kind = "rss"
	KindHTML Kind = "html"
)

// Descriptor configures one source for a shared engine. Sites whose shape
// fits RSS or a listing page are a table entry; sites needing bespoke logic
// (Firebase, Reddit JSON, GraphQL) implement Source directly.
type Descriptor struct {
	Name     string
	Category model.Category
	Kind     Kind
	URL      string // feed or listing page
	BaseURL  string // origin for resolving relative links

	// HTML engine: prioritized selector list, first one that matches wins.
	Selectors []string
	// HTML engine: candidate hrefs must contain this fragment.
	PathFilter string

	MaxItems int
	Enrich   bool // fetch article pages for og: metadata
}

func (d Descriptor) maxItems() int {
	if d.MaxItems > 0 {
		return d.MaxItems
	}
	return 15
}

const (
	maxTitleLen   = 300
	maxExcerptLen = 1000
)

// plausibleTitle rejects parsing garbage: too-short fragments from selector
// misses and runaway concatenations.
func plausibleTitle(title string, minLen int) bool {
	n := len([]rune(title))
	return n >= minLen && n <= maxTitleLen
}

// collapseSpace flattens runs of whitespace, including newlines inside
// scraped markup, into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// absolutize resolves href against base so relative listing links become
// usable identity keys. Returns "" when the result is not an http(s) URL.
func absolutize(href, base string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}

	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return ""
		}
		return ref.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return ""
	}

	return baseURL.ResolveReference(ref).String()
}

var imgSrcRe = regexp.MustCompile(`<img[^>]+src="([^">]+)"`)

// imgSrc pulls the first inline image URL out of a feed item's HTML body.
func imgSrc(html string) string {
	m := imgSrcRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return m[1]
}

// stampPublished backfills the scrape time as the publish date for articles
// neither their source nor enrichment could date. Runs after enrichment so a
// page's article:published_time wins over the placeholder.
func stampPublished(articles []model.Article) {
	now := time.Now().UTC()
	for i := range articles {
		if articles[i].PublishedAt.IsZero() {
			articles[i].PublishedAt = now
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
