package source

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/charmbracelet/log"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"

	"pulsefeed/internal/fetchcache"
	"pulsefeed/internal/model"
)

type pageMeta struct {
	imageURL    string
	description string
	publishedAt time.Time
}

// enricher fills gaps (image, excerpt, publish date) by fetching the article
// page itself. Fetches run in parallel with an independent timeout each, so
// one slow page never stalls the rest of the batch. A shared rate limiter
// keeps the per-item fan-out polite toward remote hosts.
type enricher struct {
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *log.Logger
}

func newEnricher(timeout time.Duration, logger *log.Logger) *enricher {
	return &enricher{
		client:  fetchcache.NewHTTPClient(timeout),
		limiter: rate.NewLimiter(rate.Every(150*time.Millisecond), 4),
		timeout: timeout,
		logger:  logger,
	}
}

// fill enriches articles in place. Only articles missing an image or a
// publish date, or whose excerpt fell back to the title, are worth a page
// fetch.
func (e *enricher) fill(ctx context.Context, articles []model.Article) {
	var wg sync.WaitGroup

	for i := range articles {
		if articles[i].ImageURL != "" && articles[i].Excerpt != articles[i].Title && !articles[i].PublishedAt.IsZero() {
			continue
		}

		wg.Add(1)
		go func(a *model.Article) {
			defer wg.Done()

			if err := e.limiter.Wait(ctx); err != nil {
				return
			}

			itemCtx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			meta, err := fetchPageMeta(itemCtx, e.client, a.ArticleURL)
			if err != nil {
				e.logger.Debug("metadata fetch failed", "url", a.ArticleURL, "err", err)
				return
			}

			if a.ImageURL == "" && meta.imageURL != "" {
				a.ImageURL = meta.imageURL
			}
			if meta.description != "" && (a.Excerpt == a.Title || len(meta.description) > len(a.Excerpt)) {
				a.Excerpt = truncate(meta.description, maxExcerptLen)
			}
			if a.PublishedAt.IsZero() && !meta.publishedAt.IsZero() {
				a.PublishedAt = meta.publishedAt
			}
		}(&articles[i])
	}

	wg.Wait()
}

// fetchPageMeta scrapes Open Graph metadata from an article page, falling
// back to readability extraction when the page carries no usable description.
func fetchPageMeta(ctx context.Context, client *http.Client, pageURL string) (pageMeta, error) {
	body, err := fetchcache.FetchBody(ctx, client, pageURL)
	if err != nil {
		return pageMeta{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, err
	}

	var meta pageMeta

	meta.imageURL = firstNonEmpty(
		doc.Find(`meta[property="og:image"]`).AttrOr("content", ""),
		doc.Find(`meta[name="twitter:image"]`).AttrOr("content", ""),
	)

	meta.description = strings.TrimSpace(firstNonEmpty(
		doc.Find(`meta[property="og:description"]`).AttrOr("content", ""),
		doc.Find(`meta[name="description"]`).AttrOr("content", ""),
	))

	if published := doc.Find(`meta[property="article:published_time"]`).AttrOr("content", ""); published != "" {
		if t, err := dateparse.ParseAny(published); err == nil {
			meta.publishedAt = t.UTC()
		}
	}

	// Meta descriptions under ~100 chars are usually truncated teasers;
	// the article body gives a better excerpt.
	if len(meta.description) < 100 {
		if u, err := url.Parse(pageURL); err == nil {
			if article, err := readability.FromReader(bytes.NewReader(body), u); err == nil {
				text := collapseSpace(article.TextContent)
				if len(text) > len(meta.description) {
					meta.description = truncate(text, maxExcerptLen)
				}
			}
		}
	}

	return meta, nil
}
