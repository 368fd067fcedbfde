package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"pulsefeed/internal/model"
)

// upsertChunkSize bounds how many rows go into one multi-row INSERT. Keeps
// statements under Postgres' parameter limit and latency per round trip low.
const upsertChunkSize = 50

type ArticlePostgresStorage struct {
	db *sqlx.DB
}

type dbArticle struct {
	ID              int64          `db:"id"`
	Title           string         `db:"title"`
	Excerpt         string         `db:"excerpt"`
	ImageURL        sql.NullString `db:"image_url"`
	Source          string         `db:"source"`
	ArticleURL      string         `db:"article_url"`
	PublishedAt     time.Time      `db:"published_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	ScrapeBatchID   sql.NullString `db:"scrape_batch_id"`
	ScrapeBatchTime sql.NullTime   `db:"scrape_batch_time"`
}

func NewArticleStorage(db *sqlx.DB) *ArticlePostgresStorage {
	return &ArticlePostgresStorage{db: db}
}

// EnsureSchema creates the articles table and its uniqueness constraint.
// The article_url unique index is the store-level dedup guarantee.
func (s *ArticlePostgresStorage) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS articles (
			id                BIGSERIAL PRIMARY KEY,
			title             TEXT NOT NULL,
			excerpt           TEXT NOT NULL DEFAULT '',
			image_url         TEXT,
			source            TEXT NOT NULL,
			article_url       TEXT NOT NULL UNIQUE,
			published_at      TIMESTAMPTZ NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			scrape_batch_id   TEXT,
			scrape_batch_time TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles (created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_articles_source ON articles (source);
	`)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// Upsert persists candidates in chunks, keyed on article_url. An existing row
// keeps its created_at; everything else, including the batch fields, is
// refreshed. Returns how many rows were written even when a later chunk
// fails, so a partial batch reports its partial progress.
func (s *ArticlePostgresStorage) Upsert(ctx context.Context, articles []model.Article, batchID string, batchTime time.Time) (int, error) {
	// A duplicate URL inside one statement would make ON CONFLICT touch
	// the same row twice, which Postgres rejects.
	articles = lo.UniqBy(articles, func(a model.Article) string { return a.ArticleURL })
	if len(articles) == 0 {
		return 0, nil
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	total := 0
	for start := 0; start < len(articles); start += upsertChunkSize {
		chunk := articles[start:min(start+upsertChunkSize, len(articles))]

		query, args := buildUpsert(chunk, batchID, batchTime)

		res, execErr := conn.ExecContext(ctx, query, args...)
		if execErr != nil {
			return total, fmt.Errorf("upserting chunk at %d: %w", start, execErr)
		}

		if n, affErr := res.RowsAffected(); affErr == nil {
			total += int(n)
		} else {
			total += len(chunk)
		}
	}

	return total, nil
}

func buildUpsert(chunk []model.Article, batchID string, batchTime time.Time) (string, []any) {
	var (
		placeholders = make([]string, 0, len(chunk))
		args         = make([]any, 0, len(chunk)*8)
	)

	for i, a := range chunk {
		base := i * 8
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))

		var imageURL sql.NullString
		if a.ImageURL != "" {
			imageURL = sql.NullString{String: a.ImageURL, Valid: true}
		}

		args = append(args,
			a.Title,
			a.Excerpt,
			imageURL,
			a.Source,
			a.ArticleURL,
			a.PublishedAt.UTC(),
			batchID,
			batchTime.UTC(),
		)
	}

	query := `INSERT INTO articles
		(title, excerpt, image_url, source, article_url, published_at, scrape_batch_id, scrape_batch_time)
		VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (article_url) DO UPDATE SET
			title = EXCLUDED.title,
			excerpt = EXCLUDED.excerpt,
			image_url = EXCLUDED.image_url,
			published_at = EXCLUDED.published_at,
			updated_at = now(),
			scrape_batch_id = EXCLUDED.scrape_batch_id,
			scrape_batch_time = EXCLUDED.scrape_batch_time;`

	return query, args
}

// DeleteOlderThan is the retention sweep: rows from the given sources whose
// created_at fell behind the cutoff are removed.
func (s *ArticlePostgresStorage) DeleteOlderThan(ctx context.Context, sources []string, cutoff time.Time) (int64, error) {
	if len(sources) == 0 {
		return 0, nil
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	query, args, err := sqlx.In(
		`DELETE FROM articles WHERE created_at < ? AND source IN (?)`,
		cutoff.UTC(), sources,
	)
	if err != nil {
		return 0, err
	}

	res, err := conn.ExecContext(ctx, conn.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("deleting expired articles: %w", err)
	}

	return res.RowsAffected()
}

// DeleteAll wipes the table unconditionally; the cleanup endpoint's backing.
func (s *ArticlePostgresStorage) DeleteAll(ctx context.Context) (int64, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, `DELETE FROM articles`)
	if err != nil {
		return 0, fmt.Errorf("deleting all articles: %w", err)
	}

	return res.RowsAffected()
}

// AllSince returns the retention window's rows for a source set, newest
// first by created_at.
func (s *ArticlePostgresStorage) AllSince(ctx context.Context, sources []string, since time.Time) ([]model.Article, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query, args, err := sqlx.In(
		`SELECT * FROM articles WHERE created_at >= ? AND source IN (?) ORDER BY created_at DESC`,
		since.UTC(), sources,
	)
	if err != nil {
		return nil, err
	}

	var rows []dbArticle
	if err := conn.SelectContext(ctx, &rows, conn.Rebind(query), args...); err != nil {
		return nil, err
	}

	return lo.Map(rows, toModel), nil
}

// All returns every row, newest first; the admin listing's backing.
func (s *ArticlePostgresStorage) All(ctx context.Context) ([]model.Article, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var rows []dbArticle
	if err := conn.SelectContext(ctx, &rows, `SELECT * FROM articles ORDER BY created_at DESC`); err != nil {
		return nil, err
	}

	return lo.Map(rows, toModel), nil
}

// ExistingLinks reports which of the given URLs already have rows; the
// lookup an insert-only policy needs from the store interface.
func (s *ArticlePostgresStorage) ExistingLinks(ctx context.Context, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query, args, err := sqlx.In(`SELECT article_url FROM articles WHERE article_url IN (?)`, urls)
	if err != nil {
		return nil, err
	}

	var existing []string
	if err := conn.SelectContext(ctx, &existing, conn.Rebind(query), args...); err != nil {
		return nil, err
	}

	return lo.SliceToMap(existing, func(u string) (string, bool) { return u, true }), nil
}

func toModel(row dbArticle, _ int) model.Article {
	return model.Article{
		ID:              row.ID,
		Title:           row.Title,
		Excerpt:         row.Excerpt,
		ImageURL:        row.ImageURL.String,
		Source:          row.Source,
		ArticleURL:      row.ArticleURL,
		PublishedAt:     row.PublishedAt,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		ScrapeBatchID:   row.ScrapeBatchID.String,
		ScrapeBatchTime: row.ScrapeBatchTime.Time,
	}
}
