package core

import "time"

// Search type values recorded on collected articles.
const (
	SearchTypeGoogleNews = "google_news" // Google news-tab search results
	SearchTypeGoogleAll  = "google_all"  // Google organic search results
	SearchTypeMediaCloud = "media_cloud" // Media Cloud export rows
)

// TopicOutlier is the topic id assigned to articles the clustering step
// could not place in any topic.
const TopicOutlier = -1

// Article is the single row type of the pipeline. It is created by the
// collection stage with metadata only and mutated in place by later stages,
// each stage writing only its own columns.
type Article struct {
	ID         int64  `json:"id"`          // Row id, also the batch request custom_id
	Title      string `json:"title"`       // Title as reported by the collection source
	URL        string `json:"url"`         // Unique key across all collection runs
	Source     string `json:"source"`      // Publisher/outlet name
	Date       string `json:"date"`        // RFC 3339 where parseable, raw source string otherwise
	SearchType string `json:"search_type"` // One of the SearchType constants
	Snippet    string `json:"snippet"`     // Collection-time snippet, may be empty
	Query      string `json:"query"`       // Originating search query, may be empty

	Text         string     `json:"text"`          // Scraped article body
	ScrapedAt    *time.Time `json:"scraped_at"`    // When scraping succeeded
	ScrapeStatus string     `json:"scrape_status"` // success | no_content | error: ...

	Summary       string     `json:"summary"`        // LLM summary of Text
	SummarizedAt  *time.Time `json:"summarized_at"`  // When summarization succeeded
	SummaryStatus string     `json:"summary_status"` // success | batch_submitted | error: ...
	BatchID       string     `json:"batch_id"`       // Summarization batch job id

	FilterBatchID    string `json:"filter_batch_id"`   // Relevance batch job id
	CulturalRelevant *bool  `json:"cultural_relevant"` // nil until filtered

	Topic *int `json:"topic"` // nil until assigned; TopicOutlier for noise
}

// Scraped reports whether the article has a usable body.
func (a *Article) Scraped() bool {
	return a.Text != ""
}

// Summarized reports whether the summarization stage completed for this row.
func (a *Article) Summarized() bool {
	return a.Summary != ""
}

// BatchState is the lifecycle state of an external batch job, mirrored from
// the service's reported status.
type BatchState string

const (
	BatchNotSubmitted BatchState = "not_submitted"
	BatchValidating   BatchState = "validating"
	BatchInProgress   BatchState = "in_progress"
	BatchFinalizing   BatchState = "finalizing"
	BatchCompleted    BatchState = "completed"
	BatchFailed       BatchState = "failed"
	BatchExpired      BatchState = "expired"
	BatchCancelled    BatchState = "cancelled"
)

// Terminal reports whether the state ends the job. A terminal non-completed
// job requires a full resubmission from the prepare step.
func (s BatchState) Terminal() bool {
	switch s {
	case BatchCompleted, BatchFailed, BatchExpired, BatchCancelled:
		return true
	}
	return false
}

// Topic is one cluster produced by the topic-modeling stage. Topics live in
// the topics artifact, not the relational store; articles carry only the
// integer topic id.
type Topic struct {
	ID       int       `json:"topic_id"`
	Label    string    `json:"label"`    // LLM-generated short label
	Keywords []string  `json:"keywords"` // c-TF-IDF terms, highest weight first
	Size     int       `json:"size"`     // Number of member articles
	Created  time.Time `json:"created"`
}

// TopicDescription is the long-form LLM description of a topic, generated
// from a sample of member articles.
type TopicDescription struct {
	TopicID      int    `json:"topic_id"`
	Label        string `json:"label"`
	Keywords     string `json:"keywords"`
	ArticleCount int    `json:"article_count"`
	Description  string `json:"description"`
	SampleSize   int    `json:"sample_size"`
}
