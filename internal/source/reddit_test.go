package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pulsefeed/internal/model"
)

const testRedditListing = `{
  "data": {
    "children": [
      {"data": {
        "title": "Daily discussion: where is the market heading?",
        "selftext": "Use this thread for general market talk.",
        "thumbnail": "self",
        "created_utc": 1748772000,
        "permalink": "/r/CryptoCurrency/comments/abc/daily/",
        "preview": {"images": [{"source": {"url": "https://preview.redd.it/pic.jpg?width=640&amp;format=pjpg"}}]}
      }},
      {"data": {
        "title": "ETF inflows hit a new weekly record",
        "selftext": "",
        "thumbnail": "https://b.thumbs.redditmedia.com/thumb.jpg",
        "created_utc": 1748768400,
        "permalink": "/r/CryptoCurrency/comments/def/etf/"
      }},
      {"data": {
        "title": "gm",
        "selftext": "",
        "thumbnail": "self",
        "created_utc": 1748764800,
        "permalink": "/r/CryptoCurrency/comments/ghi/gm/"
      }}
    ]
  }
}`

func TestRedditFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/CryptoCurrency/hot.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		io.WriteString(w, testRedditListing)
	}))
	defer srv.Close()

	src := NewRedditSource("Reddit", model.CategoryCrypto, "CryptoCurrency", 5*time.Second, testLogger())
	src.BaseURL = srv.URL

	articles, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles (short title dropped), got %d", len(articles))
	}

	self := articles[0]
	if self.Excerpt != "Use this thread for general market talk." {
		t.Errorf("self post should use selftext, got %q", self.Excerpt)
	}
	if self.ArticleURL != srv.URL+"/r/CryptoCurrency/comments/abc/daily/" {
		t.Errorf("unexpected url: %q", self.ArticleURL)
	}
	if strings.Contains(self.ImageURL, "&amp;") {
		t.Errorf("preview url should be unescaped, got %q", self.ImageURL)
	}
	if self.ImageURL != "https://preview.redd.it/pic.jpg?width=640&format=pjpg" {
		t.Errorf("unexpected preview image: %q", self.ImageURL)
	}

	link := articles[1]
	if link.Excerpt != link.Title {
		t.Errorf("link post should fall back to title excerpt, got %q", link.Excerpt)
	}
	if link.ImageURL != "https://b.thumbs.redditmedia.com/thumb.jpg" {
		t.Errorf("expected thumbnail image, got %q", link.ImageURL)
	}
}

func TestRedditPostImage(t *testing.T) {
	src := NewRedditSource("Reddit", model.CategoryCrypto, "CryptoCurrency", time.Second, testLogger())

	if got := src.postImage(redditPost{Thumbnail: "self"}); got != "" {
		t.Errorf("placeholder thumbnail should yield no image, got %q", got)
	}
	if got := src.postImage(redditPost{Thumbnail: "default"}); got != "" {
		t.Errorf("non-url thumbnail should yield no image, got %q", got)
	}
	if got := src.postImage(redditPost{Thumbnail: "https://x.test/t.jpg"}); got != "https://x.test/t.jpg" {
		t.Errorf("unexpected thumbnail: %q", got)
	}
}

func TestRedditUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewRedditSource("Reddit Product", model.CategoryProduct, "ProductManagement", 5*time.Second, testLogger())
	src.BaseURL = srv.URL

	if _, err := src.Fetch(context.Background()); err == nil {
		t.Error("expected an error for a rate-limited listing")
	}
}
