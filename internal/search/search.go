package search

import (
	"context"
	"errors"
)

// Provider defines the unified interface for search providers.
type Provider interface {
	// Search runs one full paginated search and returns every result.
	Search(ctx context.Context, query string, config Config) ([]Result, error)

	// GetName returns the name of the search provider.
	GetName() string
}

// Engine selects which result surface a search hits.
type Engine string

const (
	EngineNews    Engine = "news"    // news-tab results
	EngineOrganic Engine = "organic" // regular web results
)

// Config holds configuration for search requests.
type Config struct {
	Engine       Engine
	Location     string // e.g. "Austin, Texas, United States"
	GoogleDomain string // e.g. "google.com"
	Country      string // gl parameter, e.g. "us"
	Language     string // hl parameter, e.g. "en"
	MaxPages     int    // 0 = follow pagination to the end
}

// Result is one collected search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Date    string `json:"date"` // raw provider string, normalized by the caller
	Snippet string `json:"snippet"`
}

// ProviderType represents the type of search provider.
type ProviderType string

const (
	ProviderTypeSerpAPI ProviderType = "serpapi"
	ProviderTypeMock    ProviderType = "mock"
)

var (
	ErrMissingAPIKey       = errors.New("search provider requires an API key")
	ErrUnsupportedProvider = errors.New("unsupported search provider")
)

// ProviderFactory creates search providers based on type and configuration.
type ProviderFactory struct{}

// NewProviderFactory creates a new provider factory.
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{}
}

// CreateProvider creates a search provider of the specified type.
func (f *ProviderFactory) CreateProvider(providerType ProviderType, config map[string]string) (Provider, error) {
	switch providerType {
	case ProviderTypeSerpAPI:
		apiKey, exists := config["api_key"]
		if !exists || apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewSerpAPIProvider(apiKey), nil
	case ProviderTypeMock:
		return NewMockProvider(), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// GetAvailableProviders returns a list of available provider types.
func (f *ProviderFactory) GetAvailableProviders() []ProviderType {
	return []ProviderType{ProviderTypeSerpAPI, ProviderTypeMock}
}
