// Package server is the read-only dashboard over the article store and the
// topic artifacts.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"radar/internal/config"
	"radar/internal/core"
	"radar/internal/logger"
	"radar/internal/store"
	"radar/internal/topics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server represents the dashboard HTTP server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	store      *store.Store
	dataDir    string
	config     config.Server
}

// New creates a dashboard server over the store and data directory.
func New(s *store.Store, dataDir string, cfg config.Server) *Server {
	srv := &Server{
		router:  chi.NewRouter(),
		store:   s,
		dataDir: dataDir,
		config:  cfg,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.config.CORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleDashboard)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/articles", s.handleArticles)
		r.Get("/topics", s.handleTopics)
		r.Get("/trends", s.handleTrends)
		r.Get("/stats", s.handleStats)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// displaySearchType maps stored search types to dashboard names.
func displaySearchType(searchType string) string {
	if searchType == core.SearchTypeGoogleAll {
		return "google_search"
	}
	return searchType
}

// parseFilter reads the common filter query parameters.
func parseFilter(r *http.Request) store.Filter {
	q := r.URL.Query()
	f := store.Filter{
		From:       q.Get("from"),
		To:         q.Get("to"),
		SearchType: q.Get("source"),
	}
	// The dashboard exposes the display name; map it back for the query.
	if f.SearchType == "google_search" {
		f.SearchType = core.SearchTypeGoogleAll
	}
	if v := q.Get("topic"); v != "" {
		if topic, err := strconv.Atoi(v); err == nil {
			f.Topic = &topic
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.ParseUint(v, 10, 32); err == nil {
			f.Limit = limit
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err := strconv.ParseUint(v, 10, 32); err == nil {
			f.Offset = offset
		}
	}
	return f
}

type articleView struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Source     string `json:"source"`
	Date       string `json:"date"`
	SearchType string `json:"search_type"`
	Summary    string `json:"summary"`
	Topic      *int   `json:"topic"`
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)
	if f.Limit == 0 {
		f.Limit = 100
	}

	articles, err := s.store.QueryArticles(f)
	if err != nil {
		s.serverError(w, "failed to query articles", err)
		return
	}

	views := make([]articleView, 0, len(articles))
	for _, a := range articles {
		views = append(views, articleView{
			ID:         a.ID,
			Title:      a.Title,
			URL:        a.URL,
			Source:     a.Source,
			Date:       a.Date,
			SearchType: displaySearchType(a.SearchType),
			Summary:    a.Summary,
			Topic:      a.Topic,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"articles": views,
		"count":    len(views),
	})
}

type topicView struct {
	ID          int    `json:"topic_id"`
	Label       string `json:"label"`
	Keywords    string `json:"keywords"`
	Count       int    `json:"count"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.TopicCounts(parseFilter(r))
	if err != nil {
		s.serverError(w, "failed to query topic counts", err)
		return
	}

	topicList, err := topics.LoadTopics(filepath.Join(s.dataDir, topics.TopicsFile))
	if err != nil {
		logger.Warn("topics artifact unreadable", "error", err.Error())
	}
	descriptions, err := topics.LoadDescriptions(filepath.Join(s.dataDir, topics.DescriptionsFile))
	if err != nil {
		logger.Warn("descriptions artifact unreadable", "error", err.Error())
	}

	labels := make(map[int]core.Topic, len(topicList))
	for _, t := range topicList {
		labels[t.ID] = t
	}

	views := make([]topicView, 0, len(counts))
	for id, count := range counts {
		view := topicView{ID: id, Count: count}
		if id == core.TopicOutlier {
			view.Label = "Outliers"
		} else if info, ok := labels[id]; ok {
			view.Label = info.Label
			view.Keywords = joinKeywords(info.Keywords)
		} else {
			view.Label = fmt.Sprintf("Topic %d", id)
		}
		if d, ok := descriptions[id]; ok {
			view.Description = d.Description
		}
		views = append(views, view)
	}
	sortTopicViews(views)

	writeJSON(w, http.StatusOK, map[string]any{"topics": views})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	monthly, err := s.store.MonthlyCounts(parseFilter(r))
	if err != nil {
		s.serverError(w, "failed to query trends", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"monthly": monthly})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.Count()
	if err != nil {
		s.serverError(w, "failed to count articles", err)
		return
	}

	stats := map[string]any{"total": total}
	for _, column := range []string{"search_type", "scrape_status", "summary_status"} {
		breakdown, err := s.store.StatusBreakdown(column)
		if err != nil {
			s.serverError(w, "failed to query breakdown", err)
			return
		}
		if column == "search_type" {
			renamed := make(map[string]int, len(breakdown))
			for k, v := range breakdown {
				renamed[displaySearchType(k)] += v
			}
			breakdown = renamed
		}
		stats[column] = breakdown
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	logger.Error(msg, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", err)
	}
}

func joinKeywords(keywords []string) string {
	out := ""
	for i, k := range keywords {
		if i > 0 {
			out += ", "
		}
		out += k
	}
	return out
}

func sortTopicViews(views []topicView) {
	sort.Slice(views, func(i, j int) bool { return views[i].Count > views[j].Count })
}
