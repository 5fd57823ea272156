package batch

import (
	"strconv"
	"time"

	"radar/internal/llm"
	"radar/internal/store"
)

// errorStatusLimit caps recorded error messages, matching the scrape stage.
const errorStatusLimit = 200

func truncateError(err error) string {
	msg := "error: " + err.Error()
	if len(msg) > errorStatusLimit {
		msg = msg[:errorStatusLimit]
	}
	return msg
}

// SummaryTask is the batch summarization stage: rows with substantial text
// and no summary get the discoverability summary prompt.
type SummaryTask struct {
	Model       string
	Temperature float64
	MaxTokens   int
	MinChars    int
}

func (t SummaryTask) Name() string        { return "summarize" }
func (t SummaryTask) RequestFile() string { return "batch_requests.jsonl" }

func (t SummaryTask) BuildRequests(s *store.Store) ([]Request, error) {
	articles, err := s.ListToSummarize(t.MinChars)
	if err != nil {
		return nil, err
	}

	requests := make([]Request, 0, len(articles))
	for _, a := range articles {
		requests = append(requests, Request{
			CustomID: strconv.FormatInt(a.ID, 10),
			Method:   "POST",
			URL:      "/v1/chat/completions",
			Body: llm.ChatRequest{
				Model: t.Model,
				Messages: []llm.Message{
					{Role: "system", Content: llm.SummarySystemPrompt},
					{Role: "user", Content: llm.SummaryUserPrompt(a.Title, a.URL, a.Text)},
				},
				Temperature: t.Temperature,
				MaxTokens:   t.MaxTokens,
			},
		})
	}
	return requests, nil
}

func (t SummaryTask) MarkSubmitted(s *store.Store, batchID string) (int64, error) {
	return s.MarkSummaryBatchSubmitted(batchID, t.MinChars)
}

func (t SummaryTask) LatestBatchID(s *store.Store) (string, error) {
	return s.LatestSummaryBatchID()
}

func (t SummaryTask) Apply(s *store.Store, id int64, content string, apiErr error) error {
	if apiErr != nil {
		return s.MarkSummaryStatus(id, truncateError(apiErr))
	}
	return s.MarkSummarized(id, content, time.Now())
}

// FilterTask is the cultural-relevance stage: summarized rows get a YES/NO
// classification. Failed requests keep the article (relevant = true) so an
// API hiccup never silently drops data.
type FilterTask struct {
	Model string
}

func (t FilterTask) Name() string        { return "filter" }
func (t FilterTask) RequestFile() string { return "filter_requests.jsonl" }

func (t FilterTask) BuildRequests(s *store.Store) ([]Request, error) {
	articles, err := s.ListToFilter()
	if err != nil {
		return nil, err
	}

	requests := make([]Request, 0, len(articles))
	for _, a := range articles {
		requests = append(requests, Request{
			CustomID: strconv.FormatInt(a.ID, 10),
			Method:   "POST",
			URL:      "/v1/chat/completions",
			Body: llm.ChatRequest{
				Model: t.Model,
				Messages: []llm.Message{
					{Role: "system", Content: llm.FilterSystemPrompt},
					{Role: "user", Content: llm.FilterUserPrompt(a.Title, a.Summary)},
				},
				Temperature: 0.1,
				MaxTokens:   10,
			},
		})
	}
	return requests, nil
}

func (t FilterTask) MarkSubmitted(s *store.Store, batchID string) (int64, error) {
	return s.MarkFilterBatchSubmitted(batchID)
}

func (t FilterTask) LatestBatchID(s *store.Store) (string, error) {
	return s.LatestFilterBatchID()
}

func (t FilterTask) Apply(s *store.Store, id int64, content string, apiErr error) error {
	if apiErr != nil {
		return s.SetRelevance(id, true)
	}
	return s.SetRelevance(id, llm.ParseYesNo(content))
}
