package source

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"pulsefeed/internal/fetchcache"
	"pulsefeed/internal/model"
)

const hackerNewsAPI = "https://hacker-news.firebaseio.com/v0"

type hnItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	Time        int64  `json:"time"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
}

// HackerNewsSource reads the Firebase API: one call for the top-story ids,
// then item details in parallel. A failed item fetch drops that story only.
type HackerNewsSource struct {
	BaseURL  string
	client   *http.Client
	logger   *log.Logger
	maxItems int
}

func NewHackerNewsSource(timeout time.Duration, logger *log.Logger) *HackerNewsSource {
	return &HackerNewsSource{
		BaseURL:  hackerNewsAPI,
		client:   fetchcache.NewHTTPClient(timeout),
		logger:   logger.With("source", "Hacker News"),
		maxItems: 15,
	}
}

func (s *HackerNewsSource) Name() string { return "Hacker News" }

func (s *HackerNewsSource) Category() model.Category { return model.CategoryAI }

func (s *HackerNewsSource) Fetch(ctx context.Context) ([]model.Article, error) {
	body, err := fetchcache.FetchBody(ctx, s.client, s.BaseURL+"/topstories.json")
	if err != nil {
		return nil, fmt.Errorf("fetching top stories: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("decoding top stories: %w", err)
	}
	if len(ids) > s.maxItems {
		ids = ids[:s.maxItems]
	}

	stories := make([]*hnItem, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()

			itemBody, err := fetchcache.FetchBody(ctx, s.client, fmt.Sprintf("%s/item/%d.json", s.BaseURL, id))
			if err != nil {
				s.logger.Debug("item fetch failed", "id", id, "err", err)
				return
			}

			var item hnItem
			if err := json.Unmarshal(itemBody, &item); err != nil {
				return
			}
			stories[i] = &item
		}(i, id)
	}
	wg.Wait()

	articles := make([]model.Article, 0, len(stories))
	for _, story := range stories {
		if story == nil || !plausibleTitle(story.Title, 10) {
			continue
		}

		articleURL := story.URL
		if articleURL == "" {
			articleURL = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", story.ID)
		}

		// Ask/Show posts carry their body in text; link posts get a
		// score summary instead.
		excerpt := fmt.Sprintf("%d points, %d comments", story.Score, story.Descendants)
		if story.Text != "" {
			excerpt = truncate(html.UnescapeString(stripHTML(story.Text)), maxExcerptLen)
		}

		articles = append(articles, model.Article{
			Title:       collapseSpace(story.Title),
			Excerpt:     excerpt,
			Source:      s.Name(),
			ArticleURL:  articleURL,
			PublishedAt: time.Unix(story.Time, 0).UTC(),
		})
	}

	s.logger.Info("scraped", "articles", len(articles))

	return articles, nil
}
