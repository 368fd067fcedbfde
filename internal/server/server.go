// Package server is the HTTP boundary. Every handler answers with a JSON
// envelope: {"success": true, ...} or {"success": false, "error": "..."} and
// a status code, never a stack trace.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"pulsefeed/internal/fetchcache"
	"pulsefeed/internal/fetcher"
	"pulsefeed/internal/model"
)

type ArticleStore interface {
	AllSince(ctx context.Context, sources []string, since time.Time) ([]model.Article, error)
	All(ctx context.Context) ([]model.Article, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type Scraper interface {
	RunCategory(ctx context.Context, cat model.Category) fetcher.Result
	RunAll(ctx context.Context) []fetcher.Result
}

type CacheInspector interface {
	Stats() fetchcache.Stats
}

// Options carries the serving knobs and secrets; secrets are validated at
// startup by config, the server only compares them.
type Options struct {
	AdminUsername string
	AdminPassword string
	CronSecret    string
	Window        time.Duration
	FeedLimit     int
	MaxPerSource  int
}

type Server struct {
	store   ArticleStore
	scraper Scraper
	cache   CacheInspector
	opts    Options
	logger  *log.Logger
	now     func() time.Time
}

func New(store ArticleStore, scraper Scraper, cache CacheInspector, opts Options, logger *log.Logger) *Server {
	if opts.FeedLimit <= 0 {
		opts.FeedLimit = 20
	}
	if opts.MaxPerSource <= 0 {
		opts.MaxPerSource = 3
	}
	if opts.Window <= 0 {
		opts.Window = 6 * time.Hour
	}

	return &Server{
		store:   store,
		scraper: scraper,
		cache:   cache,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/news/{category}", s.handleNews)
	mux.HandleFunc("POST /api/scrape/{category}", s.handleScrape)
	mux.HandleFunc("GET /api/scrape/{category}", s.handleScrape) // manual triggers
	mux.HandleFunc("GET /api/admin/articles", s.handleAdminArticles)
	mux.HandleFunc("POST /api/cleanup", s.handleCleanup)
	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)

	return mux
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("writing response", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, errorResponse{Success: false, Error: msg})
}

// articleJSON is the wire shape of an article. ImageURL is a pointer so a
// missing image serializes as null, matching what the front end expects.
type articleJSON struct {
	ID              int64          `json:"id,omitempty"`
	Title           string         `json:"title"`
	Excerpt         string         `json:"excerpt"`
	ImageURL        *string        `json:"image_url"`
	Source          string         `json:"source"`
	ArticleURL      string         `json:"article_url"`
	PublishedAt     time.Time      `json:"published_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	ScrapeBatchID   string         `json:"scrape_batch_id,omitempty"`
	ScrapeBatchTime *time.Time     `json:"scrape_batch_time,omitempty"`
	Category        model.Category `json:"category,omitempty"`
}

func toArticleJSON(a model.Article, category model.Category) articleJSON {
	out := articleJSON{
		ID:            a.ID,
		Title:         a.Title,
		Excerpt:       a.Excerpt,
		Source:        a.Source,
		ArticleURL:    a.ArticleURL,
		PublishedAt:   a.PublishedAt,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		ScrapeBatchID: a.ScrapeBatchID,
		Category:      category,
	}
	if a.ImageURL != "" {
		out.ImageURL = &a.ImageURL
	}
	if !a.ScrapeBatchTime.IsZero() {
		t := a.ScrapeBatchTime
		out.ScrapeBatchTime = &t
	}
	return out
}
