package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"pulsefeed/internal/fetchcache"
	"pulsefeed/internal/model"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>test</description>
    <item>
      <title>Bitcoin climbs past another milestone</title>
      <link>https://example.com/articles/bitcoin-milestone</link>
      <description>&lt;p&gt;Markets reacted &lt;b&gt;strongly&lt;/b&gt; today.&lt;/p&gt;</description>
      <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Tiny</title>
      <link>https://example.com/articles/too-short</link>
      <description>should be skipped</description>
      <pubDate>Mon, 02 Jun 2025 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Ethereum upgrade ships on schedule</title>
      <link>/articles/eth-upgrade</link>
      <description></description>
      <pubDate>Mon, 02 Jun 2025 08:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestCache(t *testing.T) *fetchcache.Cache {
	t.Helper()
	return fetchcache.New(15*time.Minute, 5*time.Second, testLogger())
}

func TestRSSSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, testFeed)
	}))
	defer srv.Close()

	src := NewRSSSource(Descriptor{
		Name:     "Test Feed",
		Category: model.CategoryCrypto,
		Kind:     KindRSS,
		URL:      srv.URL,
		BaseURL:  "https://example.com",
	}, newTestCache(t), nil, testLogger())

	articles, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles (short title skipped), got %d", len(articles))
	}

	first := articles[0]
	if first.Title != "Bitcoin climbs past another milestone" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.Excerpt != "Markets reacted strongly today." {
		t.Errorf("expected stripped excerpt, got %q", first.Excerpt)
	}
	if first.Source != "Test Feed" {
		t.Errorf("unexpected source: %q", first.Source)
	}
	if first.PublishedAt.IsZero() {
		t.Error("expected published date from pubDate")
	}

	second := articles[1]
	if second.ArticleURL != "https://example.com/articles/eth-upgrade" {
		t.Errorf("relative link not resolved: %q", second.ArticleURL)
	}
	if second.Excerpt != second.Title {
		t.Errorf("empty description should fall back to title, got %q", second.Excerpt)
	}
}

func TestRSSSourceUnreachableFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewRSSSource(Descriptor{
		Name: "Dead Feed", Category: model.CategoryCrypto, Kind: KindRSS,
		URL: srv.URL, BaseURL: "https://example.com",
	}, newTestCache(t), nil, testLogger())

	articles, err := src.Fetch(context.Background())
	if err == nil {
		t.Error("expected an error for an unreachable feed")
	}
	if len(articles) != 0 {
		t.Errorf("expected no articles, got %d", len(articles))
	}
}

func TestRSSSourceMalformedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "this is not xml at all")
	}))
	defer srv.Close()

	src := NewRSSSource(Descriptor{
		Name: "Broken Feed", Category: model.CategoryCrypto, Kind: KindRSS,
		URL: srv.URL, BaseURL: "https://example.com",
	}, newTestCache(t), nil, testLogger())

	if _, err := src.Fetch(context.Background()); err == nil {
		t.Error("expected a parse error for a malformed feed")
	}
}

func TestRSSSourceReusesCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		io.WriteString(w, testFeed)
	}))
	defer srv.Close()

	cache := newTestCache(t)
	src := NewRSSSource(Descriptor{
		Name: "Cached Feed", Category: model.CategoryCrypto, Kind: KindRSS,
		URL: srv.URL, BaseURL: "https://example.com",
	}, cache, nil, testLogger())

	for i := 0; i < 3; i++ {
		if _, err := src.Fetch(context.Background()); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}

	if hits != 1 {
		t.Errorf("expected 1 upstream hit across 3 fetches, got %d", hits)
	}
}
