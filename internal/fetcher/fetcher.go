package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"pulsefeed/internal/model"
	"pulsefeed/internal/source"
)

type ArticleStorage interface {
	Upsert(ctx context.Context, articles []model.Article, batchID string, batchTime time.Time) (int, error)
	DeleteOlderThan(ctx context.Context, sources []string, cutoff time.Time) (int64, error)
}

// Result is a cycle's aggregate stats. Err carries a store-stage failure as
// data; RunCategory itself never panics or propagates an error upward.
type Result struct {
	Category       model.Category `json:"category"`
	BatchID        string         `json:"batch_id"`
	PerSource      map[string]int `json:"per_source"`
	Deleted        int64          `json:"deleted"`
	Upserted       int            `json:"upserted"`
	DurationMillis int64          `json:"duration_ms"`
	Err            string         `json:"error,omitempty"`
}

type Fetcher struct {
	articles ArticleStorage
	sources  []source.Source
	window   time.Duration
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time
}

func New(articles ArticleStorage, sources []source.Source, window, interval time.Duration, logger *log.Logger) *Fetcher {
	return &Fetcher{
		articles: articles,
		sources:  sources,
		window:   window,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run drives periodic scrape cycles for self-hosted scheduling; deployments
// with an external cron hit the scrape endpoint instead.
func (f *Fetcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.RunAll(ctx)
		}
	}
}

// RunAll runs one cycle per category and returns all results.
func (f *Fetcher) RunAll(ctx context.Context) []Result {
	results := make([]Result, 0, len(model.Categories()))
	for _, cat := range model.Categories() {
		results = append(results, f.RunCategory(ctx, cat))
	}
	return results
}

// RunCategory executes one scrape cycle: sweep expired rows for the
// category's sources, fan out its adapters concurrently, then persist the
// combined candidates tagged with this cycle's batch.
//
// The sweep runs strictly before the adapters so rows written in this cycle
// can never be deleted by it.
func (f *Fetcher) RunCategory(ctx context.Context, cat model.Category) Result {
	batchTime := f.now().UTC()
	result := Result{
		Category:  cat,
		BatchID:   model.BatchToken(batchTime),
		PerSource: make(map[string]int),
	}

	deleted, err := f.articles.DeleteOlderThan(ctx, source.Names(cat), batchTime.Add(-f.window))
	if err != nil {
		// A failed sweep only delays retention; the scrape still runs.
		f.logger.Error("retention sweep failed", "category", cat, "err", err)
	}
	result.Deleted = deleted

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		candidates []model.Article
	)

	for _, src := range f.sources {
		if src.Category() != cat {
			continue
		}
		result.PerSource[src.Name()] = 0

		wg.Add(1)
		go func(src source.Source) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					f.logger.Error("adapter panic recovered", "source", src.Name(), "panic", p)
				}
			}()

			articles, err := src.Fetch(ctx)
			if err != nil {
				f.logger.Warn("adapter failed", "source", src.Name(), "err", err)
			}

			mu.Lock()
			defer mu.Unlock()
			result.PerSource[src.Name()] = len(articles)
			candidates = append(candidates, articles...)
		}(src)
	}

	wg.Wait()

	upserted, err := f.articles.Upsert(ctx, candidates, result.BatchID, batchTime)
	result.Upserted = upserted
	if err != nil {
		result.Err = err.Error()
		f.logger.Error("persist failed", "category", cat, "persisted", upserted, "err", err)
	}

	duration := f.now().Sub(batchTime)
	result.DurationMillis = duration.Milliseconds()

	f.logger.Info("scrape cycle done",
		"category", cat,
		"batch", result.BatchID,
		"candidates", len(candidates),
		"upserted", result.Upserted,
		"deleted", result.Deleted,
		"duration", duration.Round(time.Millisecond),
	)

	return result
}
