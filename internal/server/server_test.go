package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"radar/internal/config"
	"radar/internal/core"
	"radar/internal/store"
	"radar/internal/topics"
)

func newTestServer(t *testing.T) (*Server, *store.Store, string) {
	t.Helper()
	dataDir := t.TempDir()
	s, err := store.Open(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	srv := New(s, dataDir, config.Server{Host: "127.0.0.1", Port: 0, CORS: true})
	return srv, s, dataDir
}

func seedDashboardData(t *testing.T, s *store.Store) {
	t.Helper()
	longSummary := "A sufficiently long summary about discoverability of cultural content online."

	rows := []struct {
		url, date, searchType string
		topic                 int
	}{
		{"https://example.com/1", "2025-01-10T00:00:00Z", core.SearchTypeGoogleNews, 0},
		{"https://example.com/2", "2025-02-20T00:00:00Z", core.SearchTypeGoogleAll, 0},
		{"https://example.com/3", "2025-02-25T00:00:00Z", core.SearchTypeMediaCloud, core.TopicOutlier},
	}
	for _, row := range rows {
		if _, err := s.InsertArticle(core.Article{
			Title: "Article " + row.url, URL: row.url, Date: row.date,
			Source: "Outlet", SearchType: row.searchType,
		}); err != nil {
			t.Fatal(err)
		}
	}
	all, err := s.AllArticles()
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range all {
		if err := s.MarkSummarized(a.ID, longSummary, time.Now()); err != nil {
			t.Fatal(err)
		}
		if err := s.SetTopic(a.ID, rows[i].topic); err != nil {
			t.Fatal(err)
		}
	}
}

func getJSON(t *testing.T, srv *Server, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s = %d, body: %s", path, rec.Code, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("GET %s: bad JSON: %v", path, err)
		}
	}
	return rec
}

func TestArticlesEndpointRenamesGoogleAll(t *testing.T) {
	srv, s, _ := newTestServer(t)
	seedDashboardData(t, s)

	var resp struct {
		Articles []articleView `json:"articles"`
		Count    int           `json:"count"`
	}
	getJSON(t, srv, "/api/articles", &resp)

	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3", resp.Count)
	}
	for _, a := range resp.Articles {
		if a.SearchType == core.SearchTypeGoogleAll {
			t.Errorf("article %d still shows google_all", a.ID)
		}
		if a.URL == "https://example.com/2" && a.SearchType != "google_search" {
			t.Errorf("google_all row shown as %q, want google_search", a.SearchType)
		}
	}
}

func TestArticlesEndpointFilters(t *testing.T) {
	srv, s, _ := newTestServer(t)
	seedDashboardData(t, s)

	var resp struct {
		Count int `json:"count"`
	}

	getJSON(t, srv, "/api/articles?from=2025-02-01&to=2025-02-28", &resp)
	if resp.Count != 2 {
		t.Errorf("date filter count = %d, want 2", resp.Count)
	}

	// The display name maps back to the stored search type.
	getJSON(t, srv, "/api/articles?source=google_search", &resp)
	if resp.Count != 1 {
		t.Errorf("source filter count = %d, want 1", resp.Count)
	}

	getJSON(t, srv, "/api/articles?topic=0", &resp)
	if resp.Count != 2 {
		t.Errorf("topic filter count = %d, want 2", resp.Count)
	}
}

func TestTopicsEndpointUsesArtifacts(t *testing.T) {
	srv, s, dataDir := newTestServer(t)
	seedDashboardData(t, s)

	if err := topics.SaveTopics(filepath.Join(dataDir, topics.TopicsFile), []core.Topic{
		{ID: 0, Label: "Streaming Discoverability", Keywords: []string{"streaming", "platform"}, Size: 2},
	}); err != nil {
		t.Fatal(err)
	}
	if err := topics.SaveDescriptions(filepath.Join(dataDir, topics.DescriptionsFile), map[int]core.TopicDescription{
		0: {TopicID: 0, Label: "Streaming Discoverability", Description: "About streaming."},
	}); err != nil {
		t.Fatal(err)
	}

	var resp struct {
		Topics []topicView `json:"topics"`
	}
	getJSON(t, srv, "/api/topics", &resp)

	if len(resp.Topics) != 2 {
		t.Fatalf("topics = %+v, want 2 entries", resp.Topics)
	}
	byID := make(map[int]topicView)
	for _, tv := range resp.Topics {
		byID[tv.ID] = tv
	}
	if byID[0].Label != "Streaming Discoverability" || byID[0].Description != "About streaming." {
		t.Errorf("topic 0 = %+v", byID[0])
	}
	if byID[core.TopicOutlier].Label != "Outliers" {
		t.Errorf("outlier topic = %+v", byID[core.TopicOutlier])
	}
}

func TestTrendsEndpoint(t *testing.T) {
	srv, s, _ := newTestServer(t)
	seedDashboardData(t, s)

	var resp struct {
		Monthly map[string]int `json:"monthly"`
	}
	getJSON(t, srv, "/api/trends", &resp)
	if resp.Monthly["2025-01"] != 1 || resp.Monthly["2025-02"] != 2 {
		t.Errorf("monthly = %v", resp.Monthly)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, s, _ := newTestServer(t)
	seedDashboardData(t, s)

	var resp map[string]any
	getJSON(t, srv, "/api/stats", &resp)
	if resp["total"].(float64) != 3 {
		t.Errorf("total = %v, want 3", resp["total"])
	}
	types := resp["search_type"].(map[string]any)
	if _, ok := types["google_all"]; ok {
		t.Errorf("stats still report google_all: %v", types)
	}
	if types["google_search"].(float64) != 1 {
		t.Errorf("search types = %v", types)
	}
}

func TestDashboardPageRenders(t *testing.T) {
	srv, s, dataDir := newTestServer(t)
	seedDashboardData(t, s)
	if err := topics.SaveTopics(filepath.Join(dataDir, topics.TopicsFile), []core.Topic{
		{ID: 0, Label: "Streaming Discoverability", Keywords: []string{"streaming"}, Size: 2},
	}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Culture Radar") {
		t.Error("page missing heading")
	}
	if !strings.Contains(body, "Streaming Discoverability") {
		t.Error("page missing topic label")
	}
	if !strings.Contains(body, "google_search") || strings.Contains(body, "google_all") {
		t.Error("page should show google_search instead of google_all")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var resp map[string]string
	getJSON(t, srv, "/health", &resp)
	if resp["status"] != "ok" {
		t.Errorf("health = %v", resp)
	}
}
