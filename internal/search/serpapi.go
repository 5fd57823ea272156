package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"radar/internal/logger"
)

const pageSize = 10

// SerpAPIProvider implements Provider using SerpAPI, following pagination
// until the service stops returning a next page.
type SerpAPIProvider struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	rateLimit time.Duration
	lastCall  time.Time
}

// NewSerpAPIProvider creates a new SerpAPI search provider.
func NewSerpAPIProvider(apiKey string) *SerpAPIProvider {
	return &SerpAPIProvider{
		apiKey:  apiKey,
		baseURL: "https://serpapi.com/search",
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		rateLimit: 1 * time.Second,
	}
}

// GetName returns the name of this provider.
func (s *SerpAPIProvider) GetName() string {
	return "SerpAPI"
}

type serpAPIResponse struct {
	NewsResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Source  string `json:"source"`
		Date    string `json:"date"`
		Snippet string `json:"snippet"`
	} `json:"news_results"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Source  string `json:"source"`
		Date    string `json:"date"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	Pagination struct {
		Next string `json:"next"`
	} `json:"serpapi_pagination"`
	Error string `json:"error"`
}

// Search runs the paginated search, advancing the start offset by one page
// at a time until the response carries no next page (or MaxPages is hit).
func (s *SerpAPIProvider) Search(ctx context.Context, query string, config Config) ([]Result, error) {
	var results []Result

	start := 0
	page := 0
	for {
		page++
		resp, err := s.fetchPage(ctx, query, config, start)
		if err != nil {
			return results, fmt.Errorf("page %d: %w", page, err)
		}

		pageResults := resp.pageResults(config.Engine)
		results = append(results, pageResults...)
		logger.Info("search page fetched",
			"engine", string(config.Engine), "page", page, "results", len(pageResults))

		if resp.Pagination.Next == "" || len(pageResults) == 0 {
			break
		}
		if config.MaxPages > 0 && page >= config.MaxPages {
			break
		}
		start += pageSize
	}

	logger.Info("search completed",
		"engine", string(config.Engine), "query", query, "results", len(results))
	return results, nil
}

func (s *SerpAPIProvider) fetchPage(ctx context.Context, query string, config Config, start int) (*serpAPIResponse, error) {
	if elapsed := time.Since(s.lastCall); elapsed < s.rateLimit {
		time.Sleep(s.rateLimit - elapsed)
	}
	s.lastCall = time.Now()

	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google")
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(pageSize))
	if start > 0 {
		params.Set("start", strconv.Itoa(start))
	}
	if config.Engine == EngineNews {
		params.Set("tbm", "nws")
	}
	if config.Location != "" {
		params.Set("location", config.Location)
	}
	if config.GoogleDomain != "" {
		params.Set("google_domain", config.GoogleDomain)
	}
	if config.Country != "" {
		params.Set("gl", config.Country)
	}
	if config.Language != "" {
		params.Set("hl", config.Language)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create SerpAPI request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SerpAPI request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SerpAPI request failed with status: %d", resp.StatusCode)
	}

	var apiResponse serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse SerpAPI response: %w", err)
	}
	if apiResponse.Error != "" {
		return nil, fmt.Errorf("SerpAPI error: %s", apiResponse.Error)
	}
	return &apiResponse, nil
}

func (r *serpAPIResponse) pageResults(engine Engine) []Result {
	var results []Result
	if engine == EngineNews {
		for _, item := range r.NewsResults {
			if item.Link == "" {
				continue
			}
			results = append(results, Result{
				Title:   item.Title,
				URL:     item.Link,
				Source:  item.Source,
				Date:    item.Date,
				Snippet: item.Snippet,
			})
		}
		return results
	}
	for _, item := range r.OrganicResults {
		if item.Link == "" {
			continue
		}
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.Link,
			Source:  item.Source,
			Date:    item.Date,
			Snippet: item.Snippet,
		})
	}
	return results
}
