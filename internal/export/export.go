// Package export writes the article table to CSV for external analysis.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"radar/internal/store"
)

var header = []string{
	"id", "title", "url", "source", "date", "search_type",
	"created_text_chars", "scrape_status", "scraped_at",
	"summary", "summary_status", "summarized_at",
	"cultural_relevant", "topic",
}

// WriteCSV writes every article row to w.
func WriteCSV(s *store.Store, w io.Writer) (int, error) {
	articles, err := s.AllArticles()
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	for _, a := range articles {
		relevant := ""
		if a.CulturalRelevant != nil {
			if *a.CulturalRelevant {
				relevant = "1"
			} else {
				relevant = "0"
			}
		}
		topic := ""
		if a.Topic != nil {
			topic = strconv.Itoa(*a.Topic)
		}
		record := []string{
			strconv.FormatInt(a.ID, 10),
			a.Title,
			a.URL,
			a.Source,
			a.Date,
			a.SearchType,
			strconv.Itoa(len(a.Text)),
			a.ScrapeStatus,
			formatTime(a.ScrapedAt),
			a.Summary,
			a.SummaryStatus,
			formatTime(a.SummarizedAt),
			relevant,
			topic,
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write article %d: %w", a.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}
	return len(articles), nil
}

// WriteFile exports the table to path.
func WriteFile(s *store.Store, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()
	return WriteCSV(s, f)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
