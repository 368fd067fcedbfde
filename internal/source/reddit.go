package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"pulsefeed/internal/fetchcache"
	"pulsefeed/internal/model"
)

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	SelfText   string  `json:"selftext"`
	Thumbnail  string  `json:"thumbnail"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
	Preview    struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

// RedditSource reads a subreddit's hot listing via the public JSON endpoint.
// Two instances exist in the registry: r/CryptoCurrency and
// r/ProductManagement.
type RedditSource struct {
	BaseURL   string
	name      string
	category  model.Category
	subreddit string
	client    *http.Client
	logger    *log.Logger
}

func NewRedditSource(name string, category model.Category, subreddit string, timeout time.Duration, logger *log.Logger) *RedditSource {
	return &RedditSource{
		BaseURL:   "https://www.reddit.com",
		name:      name,
		category:  category,
		subreddit: subreddit,
		client:    fetchcache.NewHTTPClient(timeout),
		logger:    logger.With("source", name),
	}
}

func (s *RedditSource) Name() string { return s.name }

func (s *RedditSource) Category() model.Category { return s.category }

func (s *RedditSource) Fetch(ctx context.Context) ([]model.Article, error) {
	url := fmt.Sprintf("%s/r/%s/hot.json?limit=15", s.BaseURL, s.subreddit)

	body, err := fetchcache.FetchBody(ctx, s.client, url)
	if err != nil {
		return nil, fmt.Errorf("fetching r/%s: %w", s.subreddit, err)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decoding r/%s: %w", s.subreddit, err)
	}

	articles := make([]model.Article, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		if !plausibleTitle(post.Title, 10) {
			continue
		}

		excerpt := post.Title
		if post.SelfText != "" {
			excerpt = truncate(strings.TrimSpace(post.SelfText), 500)
		}

		articles = append(articles, model.Article{
			Title:       collapseSpace(post.Title),
			Excerpt:     excerpt,
			ImageURL:    s.postImage(post),
			Source:      s.name,
			ArticleURL:  s.BaseURL + post.Permalink,
			PublishedAt: time.Unix(int64(post.CreatedUTC), 0).UTC(),
		})
	}

	s.logger.Info("scraped", "articles", len(articles))

	return articles, nil
}

func (s *RedditSource) postImage(post redditPost) string {
	if len(post.Preview.Images) > 0 && post.Preview.Images[0].Source.URL != "" {
		// Reddit HTML-escapes URLs inside its own JSON.
		return strings.ReplaceAll(post.Preview.Images[0].Source.URL, "&amp;", "&")
	}
	if strings.HasPrefix(post.Thumbnail, "http") && !strings.Contains(post.Thumbnail, "self") {
		return post.Thumbnail
	}
	return ""
}
