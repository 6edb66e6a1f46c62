// Package storage provides data persistence for the pipeline.
// It implements model.Store on SQLite: pages, structured content,
// classifications and run metadata.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/masahif/campuscrawl/internal/model"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements model.Store using SQLite
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

var _ model.Store = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	storage := &SQLiteStorage{db: db, now: time.Now}

	// Initialize schema
	if err := storage.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// InitSchema creates the database schema
func (s *SQLiteStorage) InitSchema() error {
	// Enable foreign keys and WAL mode for better performance
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000",  // 30 second timeout for locks
		"PRAGMA locking_mode = NORMAL", // Allow external monitoring processes
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	// Create schema
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

const pageColumns = `id, url, title, raw_content, source, discovered_at, updated_at, classified`

// FindPage returns the page stored under url.
func (s *SQLiteStorage) FindPage(ctx context.Context, url string) (*model.PageRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE url = ?`, url)
	return scanPage(row)
}

// FindPageByID returns the page with the given id.
func (s *SQLiteStorage) FindPageByID(ctx context.Context, id int64) (*model.PageRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
	return scanPage(row)
}

// UpsertPage inserts page or updates the row with the same URL. The
// original discovery time is kept on update. page.ID is set on return.
func (s *SQLiteStorage) UpsertPage(ctx context.Context, page *model.PageRecord) error {
	now := s.now().UTC()
	discovered := page.DiscoveredAt
	if discovered.IsZero() {
		discovered = now
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO pages (url, title, raw_content, source, discovered_at, updated_at, classified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			raw_content = excluded.raw_content,
			source = excluded.source,
			updated_at = excluded.updated_at,
			classified = excluded.classified
		RETURNING id
	`,
		page.URL,
		page.Title,
		page.RawContent,
		page.Source,
		formatTime(discovered),
		formatTime(now),
		page.Classified,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to upsert page %s: %w", page.URL, err)
	}

	page.ID = id
	page.UpdatedAt = now
	if page.DiscoveredAt.IsZero() {
		page.DiscoveredAt = discovered
	}
	return nil
}

// DeletePage removes a page together with its structured content and
// classification.
func (s *SQLiteStorage) DeletePage(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM classifications WHERE page_id = ?`,
		`DELETE FROM structured_contents WHERE page_id = ?`,
		`DELETE FROM pages WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete page %d: %w", id, err)
		}
	}

	return tx.Commit()
}

const contentColumns = `page_id, url, headers, paragraphs, links, images, lists, clean_text, word_count, language, extracted_at`

// FindStructuredContent returns the structured content of a page.
func (s *SQLiteStorage) FindStructuredContent(ctx context.Context, pageID int64) (*model.StructuredContent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM structured_contents WHERE page_id = ?`, pageID)
	return scanContent(row)
}

// UpsertStructuredContent inserts or replaces the structured content of
// content.PageID. Content whose word count is below model.MinWordCount
// or differs from the words in its clean text is rejected with
// model.ErrInsufficientContent.
func (s *SQLiteStorage) UpsertStructuredContent(ctx context.Context, content *model.StructuredContent) error {
	if words := len(strings.Fields(content.CleanText)); content.WordCount < model.MinWordCount || content.WordCount != words {
		return fmt.Errorf("%w: page %d has word count %d for %d words", model.ErrInsufficientContent, content.PageID, content.WordCount, words)
	}

	encoded, err := encodeAll(content.Headers, content.Paragraphs, content.Links, content.Images, content.Lists)
	if err != nil {
		return fmt.Errorf("failed to encode structured content of page %d: %w", content.PageID, err)
	}

	extracted := content.ExtractedAt
	if extracted.IsZero() {
		extracted = s.now().UTC()
	}
	lang := content.Language
	if lang == "" {
		lang = model.DefaultLanguage
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO structured_contents (`+contentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(page_id) DO UPDATE SET
			url = excluded.url,
			headers = excluded.headers,
			paragraphs = excluded.paragraphs,
			links = excluded.links,
			images = excluded.images,
			lists = excluded.lists,
			clean_text = excluded.clean_text,
			word_count = excluded.word_count,
			language = excluded.language,
			extracted_at = excluded.extracted_at
	`,
		content.PageID,
		content.URL,
		encoded[0], encoded[1], encoded[2], encoded[3], encoded[4],
		content.CleanText,
		content.WordCount,
		string(lang),
		formatTime(extracted),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert structured content of page %d: %w", content.PageID, err)
	}
	return nil
}

// DeleteStructuredContent removes the structured content of a page.
func (s *SQLiteStorage) DeleteStructuredContent(ctx context.Context, pageID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM structured_contents WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("failed to delete structured content of page %d: %w", pageID, err)
	}
	return nil
}

const classificationColumns = `page_id, category, confidence, sentiment, sentiment_score, keywords, method, token_count, language, model, classified_at`

// FindClassification returns the classification of a page.
func (s *SQLiteStorage) FindClassification(ctx context.Context, pageID int64) (*model.Classification, error) {
	var (
		c            model.Classification
		category     string
		sentiment    string
		keywordsJSON string
		method       string
		language     string
		classifiedAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+classificationColumns+` FROM classifications WHERE page_id = ?`, pageID).Scan(
		&c.PageID, &category, &c.Confidence, &sentiment, &c.SentimentScore,
		&keywordsJSON, &method, &c.TokenCount, &language, &c.Model, &classifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query classification of page %d: %w", pageID, err)
	}

	if err := json.Unmarshal([]byte(keywordsJSON), &c.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords of page %d: %w", pageID, err)
	}
	c.Category = model.Category(category)
	c.Sentiment = model.Sentiment(sentiment)
	c.Method = model.Method(method)
	c.Language = model.Language(language)
	if c.ClassifiedAt, err = parseTime(classifiedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertClassification stores c and marks the page classified in the
// same transaction.
func (s *SQLiteStorage) UpsertClassification(ctx context.Context, c *model.Classification) error {
	keywords := c.Keywords
	if keywords == nil {
		keywords = []model.Keyword{}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}

	classifiedAt := c.ClassifiedAt
	if classifiedAt.IsZero() {
		classifiedAt = s.now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE pages SET classified = 1, updated_at = ? WHERE id = ?`,
		formatTime(s.now().UTC()), c.PageID)
	if err != nil {
		return fmt.Errorf("failed to mark page %d classified: %w", c.PageID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("page %d: %w", c.PageID, model.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO classifications (`+classificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(page_id) DO UPDATE SET
			category = excluded.category,
			confidence = excluded.confidence,
			sentiment = excluded.sentiment,
			sentiment_score = excluded.sentiment_score,
			keywords = excluded.keywords,
			method = excluded.method,
			token_count = excluded.token_count,
			language = excluded.language,
			model = excluded.model,
			classified_at = excluded.classified_at
	`,
		c.PageID,
		string(c.Category),
		c.Confidence,
		string(c.Sentiment),
		c.SentimentScore,
		string(keywordsJSON),
		string(c.Method),
		c.TokenCount,
		string(c.Language),
		c.Model,
		formatTime(classifiedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert classification of page %d: %w", c.PageID, err)
	}

	return tx.Commit()
}

// ListUnextractedPages returns pages without structured content, oldest first.
func (s *SQLiteStorage) ListUnextractedPages(ctx context.Context, limit int) ([]model.PageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.url, p.title, p.raw_content, p.source, p.discovered_at, p.updated_at, p.classified
		FROM pages p
		LEFT JOIN structured_contents sc ON sc.page_id = p.id
		WHERE sc.page_id IS NULL
		ORDER BY p.id ASC
		LIMIT ?
	`, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query unextracted pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []model.PageRecord
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, rows.Err()
}

// ListUnclassifiedContent returns eligible structured content (at least
// model.MinWordCount words, non-empty clean text) with no classification.
func (s *SQLiteStorage) ListUnclassifiedContent(ctx context.Context, limit int) ([]model.StructuredContent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sc.page_id, sc.url, sc.headers, sc.paragraphs, sc.links, sc.images, sc.lists,
			sc.clean_text, sc.word_count, sc.language, sc.extracted_at
		FROM structured_contents sc
		LEFT JOIN classifications c ON c.page_id = sc.page_id
		WHERE c.page_id IS NULL
			AND sc.word_count >= ?
			AND sc.clean_text != ''
		ORDER BY sc.page_id ASC
		LIMIT ?
	`, model.MinWordCount, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query unclassified content: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contents []model.StructuredContent
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, *content)
	}
	return contents, rows.Err()
}

// ListTrainingItems returns every structured content with clean text
// joined to its page.
func (s *SQLiteStorage) ListTrainingItems(ctx context.Context) ([]model.TrainingItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sc.page_id, p.url, p.title, sc.clean_text, sc.word_count, sc.headers, sc.links
		FROM structured_contents sc
		JOIN pages p ON p.id = sc.page_id
		WHERE sc.clean_text != ''
		ORDER BY sc.page_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query training items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.TrainingItem
	for rows.Next() {
		var (
			item        model.TrainingItem
			wordCount   sql.NullInt64
			headersJSON string
			linksJSON   string
		)
		if err := rows.Scan(&item.PageID, &item.URL, &item.Title, &item.CleanText, &wordCount, &headersJSON, &linksJSON); err != nil {
			return nil, fmt.Errorf("failed to scan training item: %w", err)
		}
		if wordCount.Valid {
			item.WordCount = int(wordCount.Int64)
			item.HasWordCount = true
		}
		if err := json.Unmarshal([]byte(headersJSON), &item.Headers); err != nil {
			return nil, fmt.Errorf("failed to decode headers of page %d: %w", item.PageID, err)
		}
		if err := json.Unmarshal([]byte(linksJSON), &item.Links); err != nil {
			return nil, fmt.Errorf("failed to decode links of page %d: %w", item.PageID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Stats returns counts for every pipeline stage.
func (s *SQLiteStorage) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM pages),
			(SELECT COUNT(*) FROM structured_contents),
			(SELECT COUNT(*) FROM classifications),
			(SELECT COUNT(*)
				FROM structured_contents sc
				LEFT JOIN classifications c ON c.page_id = sc.page_id
				WHERE c.page_id IS NULL AND sc.word_count >= ? AND sc.clean_text != '')
	`, model.MinWordCount).Scan(&stats.TotalPages, &stats.ExtractedPages, &stats.ClassifiedPages, &stats.Unclassified)
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) AS n, AVG(confidence)
		FROM classifications
		GROUP BY category
		ORDER BY n DESC, category ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category stats: %w", err)
	}
	for rows.Next() {
		var st model.CategoryStat
		var category string
		if err := rows.Scan(&category, &st.Count, &st.AvgConfidence); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan category stats: %w", err)
		}
		st.Category = model.Category(category)
		stats.Categories = append(stats.Categories, st)
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT sentiment, COUNT(*) AS n, AVG(sentiment_score)
		FROM classifications
		GROUP BY sentiment
		ORDER BY n DESC, sentiment ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sentiment stats: %w", err)
	}
	for rows.Next() {
		var st model.SentimentStat
		var sentiment string
		if err := rows.Scan(&sentiment, &st.Count, &st.AvgScore); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan sentiment stats: %w", err)
		}
		st.Sentiment = model.Sentiment(sentiment)
		stats.Sentiments = append(stats.Sentiments, st)
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT language, COUNT(*) AS n
		FROM classifications
		GROUP BY language
		ORDER BY n DESC, language ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query language stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var st model.LanguageStat
		var language string
		if err := rows.Scan(&language, &st.Count); err != nil {
			return nil, fmt.Errorf("failed to scan language stats: %w", err)
		}
		st.Language = model.Language(language)
		stats.Languages = append(stats.Languages, st)
	}

	return stats, rows.Err()
}

// GetMeta retrieves a metadata value
func (s *SQLiteStorage) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM run_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a metadata value
func (s *SQLiteStorage) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner) (*model.PageRecord, error) {
	var (
		page                  model.PageRecord
		discovered, updatedAt string
	)
	err := row.Scan(&page.ID, &page.URL, &page.Title, &page.RawContent, &page.Source, &discovered, &updatedAt, &page.Classified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan page: %w", err)
	}
	if page.DiscoveredAt, err = parseTime(discovered); err != nil {
		return nil, err
	}
	if page.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &page, nil
}

func scanContent(row scanner) (*model.StructuredContent, error) {
	var (
		content                                   model.StructuredContent
		headers, paragraphs, links, images, lists string
		wordCount                                 sql.NullInt64
		language, extractedAt                     string
	)
	err := row.Scan(&content.PageID, &content.URL, &headers, &paragraphs, &links, &images, &lists,
		&content.CleanText, &wordCount, &language, &extractedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan structured content: %w", err)
	}

	targets := []struct {
		raw string
		dst any
	}{
		{headers, &content.Headers},
		{paragraphs, &content.Paragraphs},
		{links, &content.Links},
		{images, &content.Images},
		{lists, &content.Lists},
	}
	for _, t := range targets {
		if err := json.Unmarshal([]byte(t.raw), t.dst); err != nil {
			return nil, fmt.Errorf("failed to decode structured content of page %d: %w", content.PageID, err)
		}
	}

	content.WordCount = int(wordCount.Int64)
	content.Language = model.Language(language)
	if content.ExtractedAt, err = parseTime(extractedAt); err != nil {
		return nil, err
	}
	return &content, nil
}

// encodeAll marshals each value to a JSON string; nil slices become "[]".
func encodeAll(values ...any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if string(b) == "null" {
			b = []byte("[]")
		}
		out[i] = string(b)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", s, err)
	}
	return t, nil
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
