package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"radar/internal/core"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// DBFileName is the SQLite database file created inside the data directory.
const DBFileName = "radar.db"

// Store is the SQLite-backed article store shared by every pipeline stage.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the store inside dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFileName)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return s, nil
}

// initialize creates the articles table. Rows are created by collection with
// metadata only; later stages fill in their own columns in place.
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		url TEXT UNIQUE NOT NULL,
		source TEXT,
		date TEXT,
		search_type TEXT NOT NULL,
		snippet TEXT,
		query TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		text TEXT,
		scraped_at TIMESTAMP,
		scrape_status TEXT,
		summary TEXT,
		summarized_at TIMESTAMP,
		summary_status TEXT,
		batch_id TEXT,
		filter_batch_id TEXT,
		cultural_relevant INTEGER,
		topic INTEGER
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create articles table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// InsertArticle inserts a collected article, returning false when a row with
// the same URL already exists. No existing row is ever modified here; the
// URL-uniqueness invariant makes collection idempotent.
func (s *Store) InsertArticle(a core.Article) (bool, error) {
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO articles (title, url, source, date, search_type, snippet, query)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.URL, a.Source, a.Date, a.SearchType, a.Snippet, a.Query)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListUnscraped returns rows whose text has not been retrieved yet. Rows in
// an error state are included so an interrupted or failed run can be retried
// by simply rerunning the stage.
func (s *Store) ListUnscraped() ([]core.Article, error) {
	rows, err := s.db.Query(`
		SELECT id, url, title
		FROM articles
		WHERE text IS NULL OR text = ''
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unscraped articles: %w", err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		var a core.Article
		if err := rows.Scan(&a.ID, &a.URL, &a.Title); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// MarkScraped records a successful text retrieval for the row.
func (s *Store) MarkScraped(id int64, text string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE articles
		SET text = ?, scraped_at = ?, scrape_status = 'success'
		WHERE id = ?`,
		text, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark article %d scraped: %w", id, err)
	}
	return nil
}

// MarkScrapeStatus records a non-success scrape outcome (no_content or an
// error marker) without touching the text column.
func (s *Store) MarkScrapeStatus(id int64, status string) error {
	_, err := s.db.Exec(`UPDATE articles SET scrape_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set scrape status for article %d: %w", id, err)
	}
	return nil
}

// ListToSummarize returns rows with substantial text and no summary yet.
func (s *Store) ListToSummarize(minChars int) ([]core.Article, error) {
	rows, err := s.db.Query(`
		SELECT id, title, text, url
		FROM articles
		WHERE text IS NOT NULL
		  AND text != ''
		  AND LENGTH(text) > ?
		  AND (summary IS NULL OR summary = '')
		ORDER BY id`, minChars)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles to summarize: %w", err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		var a core.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Text, &a.URL); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// MarkSummarized records a successful summary for the row.
func (s *Store) MarkSummarized(id int64, summary string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE articles
		SET summary = ?, summarized_at = ?, summary_status = 'success'
		WHERE id = ?`,
		summary, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark article %d summarized: %w", id, err)
	}
	return nil
}

// MarkSummaryStatus records a non-success summarization outcome.
func (s *Store) MarkSummaryStatus(id int64, status string) error {
	_, err := s.db.Exec(`UPDATE articles SET summary_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set summary status for article %d: %w", id, err)
	}
	return nil
}

// MarkSummaryBatchSubmitted stamps the batch id onto every row eligible for
// summarization and returns the number of rows marked.
func (s *Store) MarkSummaryBatchSubmitted(batchID string, minChars int) (int64, error) {
	res, err := s.db.Exec(`
		UPDATE articles
		SET batch_id = ?, summary_status = 'batch_submitted'
		WHERE (summary IS NULL OR summary = '')
		  AND text IS NOT NULL
		  AND text != ''
		  AND LENGTH(text) > ?`,
		batchID, minChars)
	if err != nil {
		return 0, fmt.Errorf("failed to mark batch submitted: %w", err)
	}
	return res.RowsAffected()
}

// LatestSummaryBatchID returns the most recently recorded summarization
// batch id, or "" when none has been submitted.
func (s *Store) LatestSummaryBatchID() (string, error) {
	return s.latestBatchID("batch_id")
}

// LatestFilterBatchID returns the most recently recorded relevance-filter
// batch id, or "" when none has been submitted.
func (s *Store) LatestFilterBatchID() (string, error) {
	return s.latestBatchID("filter_batch_id")
}

func (s *Store) latestBatchID(column string) (string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM articles
		WHERE %s IS NOT NULL
		ORDER BY %s DESC LIMIT 1`, column, column, column)

	var id string
	err := s.db.QueryRow(query).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest batch id: %w", err)
	}
	return id, nil
}

// ListToFilter returns summarized rows that have not been relevance-filtered.
func (s *Store) ListToFilter() ([]core.Article, error) {
	rows, err := s.db.Query(`
		SELECT id, title, summary
		FROM articles
		WHERE summary IS NOT NULL
		  AND summary != ''
		  AND LENGTH(summary) > 50
		  AND cultural_relevant IS NULL
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles to filter: %w", err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		var a core.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// MarkFilterBatchSubmitted stamps the filter batch id onto every row
// eligible for relevance filtering and returns the number of rows marked.
func (s *Store) MarkFilterBatchSubmitted(batchID string) (int64, error) {
	res, err := s.db.Exec(`
		UPDATE articles
		SET filter_batch_id = ?
		WHERE summary IS NOT NULL
		  AND summary != ''
		  AND LENGTH(summary) > 50
		  AND cultural_relevant IS NULL`,
		batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark filter batch submitted: %w", err)
	}
	return res.RowsAffected()
}

// SetRelevance records the cultural-relevance decision for the row.
func (s *Store) SetRelevance(id int64, relevant bool) error {
	value := 0
	if relevant {
		value = 1
	}
	_, err := s.db.Exec(`UPDATE articles SET cultural_relevant = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("failed to set relevance for article %d: %w", id, err)
	}
	return nil
}

// ListForTopics returns the topic-modeling input: summarized rows that are
// culturally relevant or not yet filtered. Rows explicitly marked not
// relevant are excluded.
func (s *Store) ListForTopics() ([]core.Article, error) {
	rows, err := s.db.Query(`
		SELECT id, title, summary, url, source, date, search_type
		FROM articles
		WHERE summary IS NOT NULL
		  AND summary != ''
		  AND LENGTH(summary) > 50
		  AND (cultural_relevant = 1 OR cultural_relevant IS NULL)
		ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic-model input: %w", err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		var a core.Article
		var source, date sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary, &a.URL, &source, &date, &a.SearchType); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.Source = source.String
		a.Date = date.String
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// SetTopic records the topic assignment for the row.
func (s *Store) SetTopic(id int64, topic int) error {
	_, err := s.db.Exec(`UPDATE articles SET topic = ? WHERE id = ?`, topic, id)
	if err != nil {
		return fmt.Errorf("failed to set topic for article %d: %w", id, err)
	}
	return nil
}

// ListByTopic returns summarized rows assigned to the given topic.
func (s *Store) ListByTopic(topic int) ([]core.Article, error) {
	rows, err := s.db.Query(`
		SELECT id, title, summary
		FROM articles
		WHERE summary IS NOT NULL
		  AND summary != ''
		  AND topic = ?
		ORDER BY id`, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic %d articles: %w", topic, err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		var a core.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		topicCopy := topic
		a.Topic = &topicCopy
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// AssignedTopics returns the distinct non-outlier topic ids present in the
// store, ascending.
func (s *Store) AssignedTopics() ([]int, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT topic FROM articles
		WHERE topic IS NOT NULL AND topic != ?
		ORDER BY topic`, core.TopicOutlier)
	if err != nil {
		return nil, fmt.Errorf("failed to query assigned topics: %w", err)
	}
	defer rows.Close()

	var topics []int
	for rows.Next() {
		var t int
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// Count returns the total number of rows.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// CountWhere returns the number of rows matching a fixed predicate.
func (s *Store) CountWhere(predicate string, args ...any) (int, error) {
	var n int
	query := "SELECT COUNT(*) FROM articles WHERE " + predicate
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// StatusBreakdown returns value -> row count for a status column. NULL
// values are reported under the "pending" key.
func (s *Store) StatusBreakdown(column string) (map[string]int, error) {
	switch column {
	case "scrape_status", "summary_status", "search_type":
	default:
		return nil, fmt.Errorf("unsupported breakdown column %q", column)
	}

	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT %s, COUNT(*) FROM articles GROUP BY %s`, column, column))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s breakdown: %w", column, err)
	}
	defer rows.Close()

	breakdown := make(map[string]int)
	for rows.Next() {
		var value sql.NullString
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return nil, err
		}
		key := value.String
		if !value.Valid || key == "" {
			key = "pending"
		}
		breakdown[key] += count
	}
	return breakdown, rows.Err()
}

// Filter narrows dashboard queries. Zero values mean "no constraint".
type Filter struct {
	From       string // inclusive lower bound on date (RFC 3339 prefix compare)
	To         string // inclusive upper bound on date
	SearchType string
	Topic      *int
	Limit      uint64
	Offset     uint64
}

func (f Filter) apply(b sq.SelectBuilder) sq.SelectBuilder {
	if f.From != "" {
		b = b.Where(sq.GtOrEq{"date": f.From})
	}
	if f.To != "" {
		b = b.Where(sq.LtOrEq{"date": f.To})
	}
	if f.SearchType != "" {
		b = b.Where(sq.Eq{"search_type": f.SearchType})
	}
	if f.Topic != nil {
		b = b.Where(sq.Eq{"topic": *f.Topic})
	}
	return b
}

// QueryArticles returns dashboard article rows matching the filter, most
// recent first.
func (s *Store) QueryArticles(f Filter) ([]core.Article, error) {
	b := sq.Select("id", "title", "url", "source", "date", "search_type", "summary", "topic").
		From("articles").
		Where("summary IS NOT NULL AND summary != ''").
		Where(sq.Or{sq.Eq{"cultural_relevant": 1}, sq.Eq{"cultural_relevant": nil}}).
		OrderBy("date DESC")
	b = f.apply(b)
	if f.Limit > 0 {
		b = b.Limit(f.Limit).Offset(f.Offset)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build article query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		var a core.Article
		var source, date, summary sql.NullString
		var topic sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &source, &date, &a.SearchType, &summary, &topic); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.Source = source.String
		a.Date = date.String
		a.Summary = summary.String
		if topic.Valid {
			t := int(topic.Int64)
			a.Topic = &t
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// TopicCounts returns topic id -> article count for rows matching the
// filter, excluding unassigned rows.
func (s *Store) TopicCounts(f Filter) (map[int]int, error) {
	b := sq.Select("topic", "COUNT(*)").
		From("articles").
		Where("topic IS NOT NULL").
		GroupBy("topic")
	b = f.apply(b)

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build topic count query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var topic, count int
		if err := rows.Scan(&topic, &count); err != nil {
			return nil, err
		}
		counts[topic] = count
	}
	return counts, rows.Err()
}

// MonthlyCounts returns "YYYY-MM" -> article count for rows matching the
// filter. Rows whose date is not ISO-formatted are skipped.
func (s *Store) MonthlyCounts(f Filter) (map[string]int, error) {
	b := sq.Select("substr(date, 1, 7) AS month", "COUNT(*)").
		From("articles").
		Where("date IS NOT NULL AND LENGTH(date) >= 7").
		Where("date GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]*'").
		GroupBy("month")
	b = f.apply(b)

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build monthly count query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var month string
		var count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, err
		}
		counts[month] = count
	}
	return counts, rows.Err()
}

// AllArticles returns every row with every column populated, for export.
func (s *Store) AllArticles() ([]core.Article, error) {
	rows, err := s.db.Query(`
		SELECT id, title, url, source, date, search_type, snippet, query,
		       text, scraped_at, scrape_status,
		       summary, summarized_at, summary_status, batch_id,
		       filter_batch_id, cultural_relevant, topic
		FROM articles
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all articles: %w", err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		a, err := scanFullRow(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// GetArticle returns the row with the given id, or nil when absent.
func (s *Store) GetArticle(id int64) (*core.Article, error) {
	row := s.db.QueryRow(`
		SELECT id, title, url, source, date, search_type, snippet, query,
		       text, scraped_at, scrape_status,
		       summary, summarized_at, summary_status, batch_id,
		       filter_batch_id, cultural_relevant, topic
		FROM articles WHERE id = ?`, id)

	a, err := scanFullRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFullRow(row scanner) (core.Article, error) {
	var a core.Article
	var source, date, snippet, query, text, scrapeStatus sql.NullString
	var summary, summaryStatus, batchID, filterBatchID sql.NullString
	var scrapedAt, summarizedAt sql.NullTime
	var relevant, topic sql.NullInt64

	err := row.Scan(&a.ID, &a.Title, &a.URL, &source, &date, &a.SearchType, &snippet, &query,
		&text, &scrapedAt, &scrapeStatus,
		&summary, &summarizedAt, &summaryStatus, &batchID,
		&filterBatchID, &relevant, &topic)
	if err != nil {
		return core.Article{}, err
	}

	a.Source = source.String
	a.Date = date.String
	a.Snippet = snippet.String
	a.Query = query.String
	a.Text = text.String
	a.ScrapeStatus = scrapeStatus.String
	a.Summary = summary.String
	a.SummaryStatus = summaryStatus.String
	a.BatchID = batchID.String
	a.FilterBatchID = filterBatchID.String
	if scrapedAt.Valid {
		t := scrapedAt.Time
		a.ScrapedAt = &t
	}
	if summarizedAt.Valid {
		t := summarizedAt.Time
		a.SummarizedAt = &t
	}
	if relevant.Valid {
		r := relevant.Int64 == 1
		a.CulturalRelevant = &r
	}
	if topic.Valid {
		t := int(topic.Int64)
		a.Topic = &t
	}
	return a, nil
}
