package server

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"pulsefeed/internal/fetcher"
	"pulsefeed/internal/model"
	"pulsefeed/internal/selection"
	"pulsefeed/internal/source"
)

type feedResponse struct {
	Success bool          `json:"success"`
	Data    []articleJSON `json:"data"`
	Count   int           `json:"count"`
}

// handleNews serves one category's feed: read the retention window, run the
// selection engine per source pool, cap per source, sort by recency.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	cat := model.Category(r.PathValue("category"))
	if !cat.Valid() {
		s.respondError(w, http.StatusBadRequest, "unknown category")
		return
	}

	maxPerSource := s.opts.MaxPerSource
	if v := r.URL.Query().Get("maxPerSource"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxPerSource = n
		}
	}

	feedLimit := s.opts.FeedLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			feedLimit = n
		}
	}

	now := s.now()
	articles, err := s.store.AllSince(r.Context(), source.Names(cat), now.Add(-s.opts.Window))
	if err != nil {
		s.logger.Error("feed query failed", "category", cat, "err", err)
		s.respondError(w, http.StatusInternalServerError, "failed to fetch news")
		return
	}

	// Group by source, keeping the store's newest-first order per pool.
	pools := make(map[string][]model.Article)
	var order []string
	for _, a := range articles {
		if _, ok := pools[a.Source]; !ok {
			order = append(order, a.Source)
		}
		pools[a.Source] = append(pools[a.Source], a)
	}

	var result []model.Article
	for _, src := range order {
		selected := selection.Select(pools[src], feedLimit, now)
		sortByRecency(selected)
		if len(selected) > maxPerSource {
			selected = selected[:maxPerSource]
		}
		result = append(result, selected...)
	}

	sortByRecency(result)

	data := make([]articleJSON, 0, len(result))
	for _, a := range result {
		data = append(data, toArticleJSON(a, ""))
	}

	s.respond(w, http.StatusOK, feedResponse{Success: true, Data: data, Count: len(data)})
}

func sortByRecency(articles []model.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return recencyKey(articles[i]).After(recencyKey(articles[j]))
	})
}

func recencyKey(a model.Article) time.Time {
	if !a.CreatedAt.IsZero() {
		return a.CreatedAt
	}
	return a.PublishedAt
}

type scrapeResponse struct {
	Success bool             `json:"success"`
	Results []fetcher.Result `json:"results"`
}

// handleScrape is the trigger endpoint the external scheduler calls. When a
// cron secret is configured, the caller must present it as a bearer token.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if s.opts.CronSecret != "" {
		if r.Header.Get("Authorization") != "Bearer "+s.opts.CronSecret {
			s.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}

	name := r.PathValue("category")

	var results []fetcher.Result
	if name == "all" {
		results = s.scraper.RunAll(r.Context())
	} else {
		cat := model.Category(name)
		if !cat.Valid() {
			s.respondError(w, http.StatusBadRequest, "unknown category")
			return
		}
		results = []fetcher.Result{s.scraper.RunCategory(r.Context(), cat)}
	}

	success := true
	for _, res := range results {
		if res.Err != "" {
			success = false
		}
	}

	status := http.StatusOK
	if !success {
		status = http.StatusInternalServerError
	}

	s.respond(w, status, scrapeResponse{Success: success, Results: results})
}

type adminResponse struct {
	Success  bool          `json:"success"`
	Count    int           `json:"count"`
	Articles []articleJSON `json:"articles"`
}

// handleAdminArticles lists every row with its derived category. Credentials
// arrive as "Bearer username:password"; split on the first colon so
// passwords may contain colons.
func (s *Server) handleAdminArticles(w http.ResponseWriter, r *http.Request) {
	credentials := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	username, password, ok := strings.Cut(credentials, ":")
	if !ok || username != s.opts.AdminUsername || password != s.opts.AdminPassword {
		s.respondError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	articles, err := s.store.All(r.Context())
	if err != nil {
		s.logger.Error("admin query failed", "err", err)
		s.respondError(w, http.StatusInternalServerError, "failed to fetch articles")
		return
	}

	data := make([]articleJSON, 0, len(articles))
	for _, a := range articles {
		data = append(data, toArticleJSON(a, source.CategoryOf(a.Source)))
	}

	s.respond(w, http.StatusOK, adminResponse{Success: true, Count: len(data), Articles: data})
}

type cleanupResponse struct {
	Success      bool  `json:"success"`
	DeletedCount int64 `json:"deleted_count"`
}

// handleCleanup wipes the article table unconditionally.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeleteAll(r.Context())
	if err != nil {
		s.logger.Error("cleanup failed", "err", err)
		s.respondError(w, http.StatusInternalServerError, "failed to cleanup database")
		return
	}

	s.logger.Info("cleanup", "deleted", deleted)
	s.respond(w, http.StatusOK, cleanupResponse{Success: true, DeletedCount: deleted})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.cache.Stats())
}
