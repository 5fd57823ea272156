package store

import (
	"testing"
	"time"

	"radar/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedArticle(t *testing.T, s *Store, a core.Article) int64 {
	t.Helper()
	inserted, err := s.InsertArticle(a)
	if err != nil {
		t.Fatalf("InsertArticle() error = %v", err)
	}
	if !inserted {
		t.Fatalf("InsertArticle() inserted = false, want true")
	}
	var id int64
	if err := s.db.QueryRow(`SELECT id FROM articles WHERE url = ?`, a.URL).Scan(&id); err != nil {
		t.Fatalf("failed to look up seeded article: %v", err)
	}
	return id
}

func TestInsertArticleDeduplicatesByURL(t *testing.T) {
	s := newTestStore(t)

	a := core.Article{Title: "First", URL: "https://example.com/a", SearchType: core.SearchTypeGoogleNews}
	inserted, err := s.InsertArticle(a)
	if err != nil {
		t.Fatalf("InsertArticle() error = %v", err)
	}
	if !inserted {
		t.Error("first insert should report inserted = true")
	}

	dup := core.Article{Title: "Duplicate", URL: "https://example.com/a", SearchType: core.SearchTypeGoogleAll}
	inserted, err = s.InsertArticle(dup)
	if err != nil {
		t.Fatalf("InsertArticle() duplicate error = %v", err)
	}
	if inserted {
		t.Error("duplicate URL insert should report inserted = false")
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}

	// The original row must be untouched.
	got, err := s.GetArticle(1)
	if err != nil {
		t.Fatalf("GetArticle() error = %v", err)
	}
	if got == nil || got.Title != "First" {
		t.Errorf("existing row was modified by duplicate insert: %+v", got)
	}
}

func TestScrapeStageIdempotence(t *testing.T) {
	s := newTestStore(t)

	id1 := seedArticle(t, s, core.Article{Title: "A", URL: "https://example.com/1", SearchType: core.SearchTypeGoogleNews})
	id2 := seedArticle(t, s, core.Article{Title: "B", URL: "https://example.com/2", SearchType: core.SearchTypeGoogleNews})

	pending, err := s.ListUnscraped()
	if err != nil {
		t.Fatalf("ListUnscraped() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("ListUnscraped() = %d rows, want 2", len(pending))
	}

	if err := s.MarkScraped(id1, "some long article body", time.Now()); err != nil {
		t.Fatalf("MarkScraped() error = %v", err)
	}
	if err := s.MarkScrapeStatus(id2, "no_content"); err != nil {
		t.Fatalf("MarkScrapeStatus() error = %v", err)
	}

	pending, err = s.ListUnscraped()
	if err != nil {
		t.Fatalf("ListUnscraped() error = %v", err)
	}
	// Rows with a failure status but no text remain retryable.
	if len(pending) != 1 || pending[0].ID != id2 {
		t.Errorf("ListUnscraped() after scrape = %+v, want only article %d", pending, id2)
	}
}

func TestListToSummarizeThreshold(t *testing.T) {
	s := newTestStore(t)

	short := seedArticle(t, s, core.Article{Title: "Short", URL: "https://example.com/s", SearchType: core.SearchTypeGoogleNews})
	long := seedArticle(t, s, core.Article{Title: "Long", URL: "https://example.com/l", SearchType: core.SearchTypeGoogleNews})
	done := seedArticle(t, s, core.Article{Title: "Done", URL: "https://example.com/d", SearchType: core.SearchTypeGoogleNews})

	longText := make([]byte, 300)
	for i := range longText {
		longText[i] = 'x'
	}
	if err := s.MarkScraped(short, "tiny", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkScraped(long, string(longText), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkScraped(done, string(longText), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkSummarized(done, "already summarized text that is plenty long enough here", time.Now()); err != nil {
		t.Fatal(err)
	}

	todo, err := s.ListToSummarize(200)
	if err != nil {
		t.Fatalf("ListToSummarize() error = %v", err)
	}
	if len(todo) != 1 || todo[0].ID != long {
		t.Errorf("ListToSummarize() = %+v, want only article %d", todo, long)
	}
}

func TestBatchMarkingAndLatestID(t *testing.T) {
	s := newTestStore(t)

	longText := make([]byte, 300)
	for i := range longText {
		longText[i] = 'x'
	}
	id := seedArticle(t, s, core.Article{Title: "A", URL: "https://example.com/1", SearchType: core.SearchTypeGoogleNews})
	if err := s.MarkScraped(id, string(longText), time.Now()); err != nil {
		t.Fatal(err)
	}

	latest, err := s.LatestSummaryBatchID()
	if err != nil {
		t.Fatalf("LatestSummaryBatchID() error = %v", err)
	}
	if latest != "" {
		t.Errorf("LatestSummaryBatchID() before submit = %q, want empty", latest)
	}

	n, err := s.MarkSummaryBatchSubmitted("batch_abc123", 200)
	if err != nil {
		t.Fatalf("MarkSummaryBatchSubmitted() error = %v", err)
	}
	if n != 1 {
		t.Errorf("MarkSummaryBatchSubmitted() marked %d rows, want 1", n)
	}

	latest, err = s.LatestSummaryBatchID()
	if err != nil {
		t.Fatalf("LatestSummaryBatchID() error = %v", err)
	}
	if latest != "batch_abc123" {
		t.Errorf("LatestSummaryBatchID() = %q, want batch_abc123", latest)
	}

	got, err := s.GetArticle(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.SummaryStatus != "batch_submitted" {
		t.Errorf("summary_status = %q, want batch_submitted", got.SummaryStatus)
	}
}

func TestFilterEligibilityAndRelevance(t *testing.T) {
	s := newTestStore(t)

	longSummary := "A sufficiently long summary about discoverability of cultural content online."
	eligible := seedArticle(t, s, core.Article{Title: "A", URL: "https://example.com/1", SearchType: core.SearchTypeGoogleNews})
	tooShort := seedArticle(t, s, core.Article{Title: "B", URL: "https://example.com/2", SearchType: core.SearchTypeGoogleNews})
	decided := seedArticle(t, s, core.Article{Title: "C", URL: "https://example.com/3", SearchType: core.SearchTypeGoogleNews})

	if err := s.MarkSummarized(eligible, longSummary, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkSummarized(tooShort, "too short", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkSummarized(decided, longSummary, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRelevance(decided, false); err != nil {
		t.Fatal(err)
	}

	todo, err := s.ListToFilter()
	if err != nil {
		t.Fatalf("ListToFilter() error = %v", err)
	}
	if len(todo) != 1 || todo[0].ID != eligible {
		t.Errorf("ListToFilter() = %+v, want only article %d", todo, eligible)
	}
}

func TestListForTopicsExcludesIrrelevant(t *testing.T) {
	s := newTestStore(t)

	longSummary := "A sufficiently long summary about discoverability of cultural content online."
	relevant := seedArticle(t, s, core.Article{Title: "A", URL: "https://example.com/1", SearchType: core.SearchTypeGoogleNews})
	unfiltered := seedArticle(t, s, core.Article{Title: "B", URL: "https://example.com/2", SearchType: core.SearchTypeGoogleNews})
	irrelevant := seedArticle(t, s, core.Article{Title: "C", URL: "https://example.com/3", SearchType: core.SearchTypeGoogleNews})

	for _, id := range []int64{relevant, unfiltered, irrelevant} {
		if err := s.MarkSummarized(id, longSummary, time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetRelevance(relevant, true); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRelevance(irrelevant, false); err != nil {
		t.Fatal(err)
	}

	docs, err := s.ListForTopics()
	if err != nil {
		t.Fatalf("ListForTopics() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("ListForTopics() = %d rows, want 2", len(docs))
	}
	for _, d := range docs {
		if d.ID == irrelevant {
			t.Errorf("ListForTopics() included article %d marked not relevant", irrelevant)
		}
	}
}

func TestTopicAssignmentAndLookups(t *testing.T) {
	s := newTestStore(t)

	longSummary := "A sufficiently long summary about discoverability of cultural content online."
	a := seedArticle(t, s, core.Article{Title: "A", URL: "https://example.com/1", SearchType: core.SearchTypeGoogleNews})
	b := seedArticle(t, s, core.Article{Title: "B", URL: "https://example.com/2", SearchType: core.SearchTypeGoogleNews})
	c := seedArticle(t, s, core.Article{Title: "C", URL: "https://example.com/3", SearchType: core.SearchTypeGoogleNews})

	for _, id := range []int64{a, b, c} {
		if err := s.MarkSummarized(id, longSummary, time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetTopic(a, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTopic(b, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTopic(c, core.TopicOutlier); err != nil {
		t.Fatal(err)
	}

	topics, err := s.AssignedTopics()
	if err != nil {
		t.Fatalf("AssignedTopics() error = %v", err)
	}
	if len(topics) != 1 || topics[0] != 0 {
		t.Errorf("AssignedTopics() = %v, want [0]", topics)
	}

	members, err := s.ListByTopic(0)
	if err != nil {
		t.Fatalf("ListByTopic() error = %v", err)
	}
	if len(members) != 2 {
		t.Errorf("ListByTopic(0) = %d rows, want 2", len(members))
	}
}

func TestQueryArticlesFilters(t *testing.T) {
	s := newTestStore(t)

	longSummary := "A sufficiently long summary about discoverability of cultural content online."
	seed := func(url, date, searchType string, topic int) int64 {
		id := seedArticle(t, s, core.Article{
			Title: "Article " + url, URL: url, Date: date, SearchType: searchType,
		})
		if err := s.MarkSummarized(id, longSummary, time.Now()); err != nil {
			t.Fatal(err)
		}
		if err := s.SetTopic(id, topic); err != nil {
			t.Fatal(err)
		}
		return id
	}

	seed("https://example.com/1", "2025-01-15T00:00:00Z", core.SearchTypeGoogleNews, 0)
	seed("https://example.com/2", "2025-03-10T00:00:00Z", core.SearchTypeGoogleAll, 1)
	seed("https://example.com/3", "2025-06-01T00:00:00Z", core.SearchTypeMediaCloud, 0)

	got, err := s.QueryArticles(Filter{From: "2025-02-01", To: "2025-12-31"})
	if err != nil {
		t.Fatalf("QueryArticles() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("date-range filter returned %d rows, want 2", len(got))
	}

	got, err = s.QueryArticles(Filter{SearchType: core.SearchTypeGoogleAll})
	if err != nil {
		t.Fatalf("QueryArticles() error = %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://example.com/2" {
		t.Errorf("search-type filter = %+v, want only example.com/2", got)
	}

	topic := 0
	got, err = s.QueryArticles(Filter{Topic: &topic})
	if err != nil {
		t.Fatalf("QueryArticles() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("topic filter returned %d rows, want 2", len(got))
	}

	counts, err := s.TopicCounts(Filter{})
	if err != nil {
		t.Fatalf("TopicCounts() error = %v", err)
	}
	if counts[0] != 2 || counts[1] != 1 {
		t.Errorf("TopicCounts() = %v, want map[0:2 1:1]", counts)
	}

	monthly, err := s.MonthlyCounts(Filter{})
	if err != nil {
		t.Fatalf("MonthlyCounts() error = %v", err)
	}
	if monthly["2025-01"] != 1 || monthly["2025-03"] != 1 || monthly["2025-06"] != 1 {
		t.Errorf("MonthlyCounts() = %v", monthly)
	}
}

// Filters must constrain marked-relevant rows too, and rows without a
// summary stay out even when they match the filter.
func TestQueryArticlesRelevantRowsObeyFilters(t *testing.T) {
	s := newTestStore(t)

	longSummary := "A sufficiently long summary about discoverability of cultural content online."

	old := seedArticle(t, s, core.Article{
		Title: "Old relevant", URL: "https://example.com/old",
		Date: "2020-05-01T00:00:00Z", SearchType: core.SearchTypeGoogleNews,
	})
	if err := s.MarkSummarized(old, longSummary, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRelevance(old, true); err != nil {
		t.Fatal(err)
	}

	seedArticle(t, s, core.Article{
		Title: "Unsummarized", URL: "https://example.com/raw",
		Date: "2025-03-10T00:00:00Z", SearchType: core.SearchTypeGoogleNews,
	})

	keep := seedArticle(t, s, core.Article{
		Title: "Recent relevant", URL: "https://example.com/recent",
		Date: "2025-03-12T00:00:00Z", SearchType: core.SearchTypeGoogleNews,
	})
	if err := s.MarkSummarized(keep, longSummary, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRelevance(keep, true); err != nil {
		t.Fatal(err)
	}

	got, err := s.QueryArticles(Filter{From: "2025-01-01", To: "2025-12-31"})
	if err != nil {
		t.Fatalf("QueryArticles() error = %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://example.com/recent" {
		t.Fatalf("QueryArticles() = %+v, want only example.com/recent", got)
	}

	// Rows explicitly marked not relevant never appear, filtered or not.
	if err := s.SetRelevance(keep, false); err != nil {
		t.Fatal(err)
	}
	got, err = s.QueryArticles(Filter{From: "2025-01-01", To: "2025-12-31"})
	if err != nil {
		t.Fatalf("QueryArticles() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("QueryArticles() after rejection = %+v, want none", got)
	}
}

func TestStatusBreakdown(t *testing.T) {
	s := newTestStore(t)

	a := seedArticle(t, s, core.Article{Title: "A", URL: "https://example.com/1", SearchType: core.SearchTypeGoogleNews})
	seedArticle(t, s, core.Article{Title: "B", URL: "https://example.com/2", SearchType: core.SearchTypeGoogleNews})

	if err := s.MarkScraped(a, "body text", time.Now()); err != nil {
		t.Fatal(err)
	}

	breakdown, err := s.StatusBreakdown("scrape_status")
	if err != nil {
		t.Fatalf("StatusBreakdown() error = %v", err)
	}
	if breakdown["success"] != 1 || breakdown["pending"] != 1 {
		t.Errorf("StatusBreakdown() = %v, want success:1 pending:1", breakdown)
	}

	if _, err := s.StatusBreakdown("topic; DROP TABLE articles"); err == nil {
		t.Error("StatusBreakdown() with unsupported column should fail")
	}
}
