package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"pulsefeed/internal/fetchcache"
	"pulsefeed/internal/model"
)

// HTMLListingSource scrapes sites without a feed by walking their listing
// page. Descriptors carry a prioritized selector list because these sites
// restructure their markup without notice: the first selector that yields at
// least one candidate wins, the rest are fallbacks.
type HTMLListingSource struct {
	desc     Descriptor
	cache    *fetchcache.Cache
	enricher *enricher
	logger   *log.Logger
}

func NewHTMLListingSource(desc Descriptor, cache *fetchcache.Cache, enricher *enricher, logger *log.Logger) *HTMLListingSource {
	return &HTMLListingSource{
		desc:     desc,
		cache:    cache,
		enricher: enricher,
		logger:   logger.With("source", desc.Name),
	}
}

func (s *HTMLListingSource) Name() string { return s.desc.Name }

func (s *HTMLListingSource) Category() model.Category { return s.desc.Category }

func (s *HTMLListingSource) Fetch(ctx context.Context) ([]model.Article, error) {
	body, err := s.cache.Get(ctx, s.desc.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching listing %s: %w", s.desc.URL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing listing %s: %w", s.desc.URL, err)
	}

	var articles []model.Article
	for _, selector := range s.desc.Selectors {
		articles = s.collect(doc, selector)
		if len(articles) > 0 {
			break
		}
	}

	if s.desc.Enrich && s.enricher != nil {
		s.enricher.fill(ctx, articles)
	}
	stampPublished(articles)

	s.logger.Info("scraped", "articles", len(articles))

	return articles, nil
}

func (s *HTMLListingSource) collect(doc *goquery.Document, selector string) []model.Article {
	var articles []model.Article
	seen := make(map[string]bool)

	doc.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		href, ok := el.Attr("href")
		if !ok {
			return true
		}

		link := absolutize(href, s.desc.BaseURL)
		if link == "" || link == s.desc.URL {
			return true
		}
		if s.desc.PathFilter != "" && !strings.Contains(link, s.desc.PathFilter) {
			return true
		}
		if seen[link] {
			return true
		}
		seen[link] = true

		title := collapseSpace(el.Find("h1, h2, h3, h4").First().Text())
		if title == "" {
			title, _, _ = strings.Cut(strings.TrimSpace(el.Text()), "\n")
			title = collapseSpace(title)
		}
		title = truncate(title, maxTitleLen)
		if !plausibleTitle(title, 5) {
			return true
		}

		excerpt := truncate(collapseSpace(el.Find("p").First().Text()), maxExcerptLen)
		if excerpt == "" {
			excerpt = title
		}

		imageURL := ""
		if src, ok := el.Find("img").First().Attr("src"); ok {
			imageURL = absolutize(src, s.desc.BaseURL)
		}

		// Listing pages rarely expose dates; PublishedAt stays zero so
		// enrichment can refine it before stampPublished fills the rest.
		articles = append(articles, model.Article{
			Title:      title,
			Excerpt:    excerpt,
			ImageURL:   imageURL,
			Source:     s.desc.Name,
			ArticleURL: link,
		})

		return len(articles) < s.desc.maxItems()
	})

	return articles
}
