package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SlyMarbo/rss"
	"github.com/charmbracelet/log"

	"pulsefeed/internal/fetchcache"
	"pulsefeed/internal/model"
)

// RSSSource runs any descriptor whose site publishes a feed. The feed body
// goes through the transport cache, so several cycles inside the TTL reuse
// one fetch.
type RSSSource struct {
	desc     Descriptor
	cache    *fetchcache.Cache
	enricher *enricher
	logger   *log.Logger
}

func NewRSSSource(desc Descriptor, cache *fetchcache.Cache, enricher *enricher, logger *log.Logger) *RSSSource {
	return &RSSSource{
		desc:     desc,
		cache:    cache,
		enricher: enricher,
		logger:   logger.With("source", desc.Name),
	}
}

func (s *RSSSource) Name() string { return s.desc.Name }

func (s *RSSSource) Category() model.Category { return s.desc.Category }

func (s *RSSSource) Fetch(ctx context.Context) ([]model.Article, error) {
	body, err := s.cache.Get(ctx, s.desc.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", s.desc.URL, err)
	}

	feed, err := rss.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", s.desc.URL, err)
	}

	items := feed.Items
	if len(items) > s.desc.maxItems() {
		items = items[:s.desc.maxItems()]
	}

	articles := make([]model.Article, 0, len(items))
	for _, item := range items {
		title := collapseSpace(item.Title)
		if !plausibleTitle(title, 10) {
			continue
		}

		link := absolutize(item.Link, s.desc.BaseURL)
		if link == "" {
			continue
		}

		excerpt := truncate(stripHTML(firstNonEmpty(item.Summary, item.Content)), maxExcerptLen)
		if excerpt == "" {
			excerpt = title
		}

		// Undated items stay zero here so enrichment can supply the real
		// date; stampPublished fills whatever is left.
		var published time.Time
		if !item.Date.IsZero() {
			published = item.Date.UTC()
		}

		articles = append(articles, model.Article{
			Title:       title,
			Excerpt:     excerpt,
			ImageURL:    s.itemImage(item),
			Source:      s.desc.Name,
			ArticleURL:  link,
			PublishedAt: published,
		})
	}

	if s.desc.Enrich && s.enricher != nil {
		s.enricher.fill(ctx, articles)
	}
	stampPublished(articles)

	s.logger.Info("scraped", "articles", len(articles))

	return articles, nil
}

// itemImage prefers the feed enclosure, then the first inline image in the
// item body. Anything further (og:image) is the enricher's job.
func (s *RSSSource) itemImage(item *rss.Item) string {
	for _, enc := range item.Enclosures {
		if enc.URL != "" && strings.HasPrefix(enc.Type, "image") {
			return enc.URL
		}
	}
	if src := imgSrc(firstNonEmpty(item.Content, item.Summary)); src != "" {
		return absolutize(src, s.desc.BaseURL)
	}
	return ""
}
