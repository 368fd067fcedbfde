package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/charmbracelet/log"

	"pulsefeed/internal/fetchcache"
	"pulsefeed/internal/model"
)

const productHuntQuery = `query {
  posts(first: 15) {
    edges {
      node {
        id
        name
        tagline
        description
        url
        votesCount
        thumbnail { url }
        createdAt
      }
    }
  }
}`

type phResponse struct {
	Data struct {
		Posts struct {
			Edges []struct {
				Node phPost `json:"node"`
			} `json:"edges"`
		} `json:"posts"`
	} `json:"data"`
}

type phPost struct {
	Name        string `json:"name"`
	Tagline     string `json:"tagline"`
	Description string `json:"description"`
	URL         string `json:"url"`
	VotesCount  int    `json:"votesCount"`
	Thumbnail   struct {
		URL string `json:"url"`
	} `json:"thumbnail"`
	CreatedAt string `json:"createdAt"`
}

// ProductHuntSource queries the public GraphQL API for today's launches.
type ProductHuntSource struct {
	BaseURL string
	client  *http.Client
	logger  *log.Logger
}

func NewProductHuntSource(timeout time.Duration, logger *log.Logger) *ProductHuntSource {
	return &ProductHuntSource{
		BaseURL: "https://api.producthunt.com/v2/api/graphql",
		client:  fetchcache.NewHTTPClient(timeout),
		logger:  logger.With("source", "Product Hunt"),
	}
}

func (s *ProductHuntSource) Name() string { return "Product Hunt" }

func (s *ProductHuntSource) Category() model.Category { return model.CategoryProduct }

func (s *ProductHuntSource) Fetch(ctx context.Context) ([]model.Article, error) {
	payload, err := json.Marshal(map[string]string{"query": productHuntQuery})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying product hunt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from product hunt", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var decoded phResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding product hunt response: %w", err)
	}

	articles := make([]model.Article, 0, len(decoded.Data.Posts.Edges))
	for _, edge := range decoded.Data.Posts.Edges {
		post := edge.Node
		title := collapseSpace(post.Name)
		if !plausibleTitle(title, 2) || post.URL == "" {
			continue
		}

		excerpt := firstNonEmpty(post.Description, post.Tagline)
		if excerpt == "" {
			excerpt = fmt.Sprintf("%d upvotes", post.VotesCount)
		}

		published := time.Now().UTC()
		if t, err := dateparse.ParseAny(post.CreatedAt); err == nil {
			published = t.UTC()
		}

		articles = append(articles, model.Article{
			Title:       title,
			Excerpt:     truncate(excerpt, maxExcerptLen),
			ImageURL:    post.Thumbnail.URL,
			Source:      s.Name(),
			ArticleURL:  post.URL,
			PublishedAt: published,
		})
	}

	s.logger.Info("scraped", "articles", len(articles))

	return articles, nil
}
