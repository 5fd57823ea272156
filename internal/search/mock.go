package search

import "context"

// MockProvider is a fixed-result provider for tests and dry runs.
type MockProvider struct {
	Results []Result
	Err     error
	Queries []string
}

// NewMockProvider creates a mock provider with a small canned result set.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Results: []Result{
			{
				Title:   "Streaming quotas and the discoverability of local content",
				URL:     "https://example.com/streaming-quotas",
				Source:  "Example News",
				Date:    "2 days ago",
				Snippet: "Regulators debate how platforms surface domestic productions.",
			},
			{
				Title:   "How recommendation engines shape cultural consumption",
				URL:     "https://example.com/recommendation-engines",
				Source:  "Example Journal",
				Date:    "Mar 12, 2025",
				Snippet: "A look at algorithmic curation of creative works.",
			},
		},
	}
}

// GetName returns the name of this provider.
func (m *MockProvider) GetName() string {
	return "Mock"
}

// Search records the query and returns the canned results.
func (m *MockProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results, nil
}
