package handlers

import (
	"fmt"
	"time"

	"radar/internal/config"
	"radar/internal/fetch"
	"radar/internal/logger"

	"github.com/spf13/cobra"
)

// scrapeErrorLimit caps the error text recorded in scrape_status.
const scrapeErrorLimit = 200

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch article pages and extract their main text",
		Long: `Downloads every article that has no text yet and extracts the readable
body. Articles yielding more than the configured minimum characters are
marked success; shorter extractions are marked no_content and fetch errors
are recorded on the row. Failed rows are retried on the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get().Scrape

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			pending, err := s.ListUnscraped()
			if err != nil {
				return err
			}
			if limit > 0 && len(pending) > limit {
				pending = pending[:limit]
			}
			if len(pending) == 0 {
				fmt.Println("Nothing to scrape")
				return nil
			}
			fmt.Printf("Scraping %d articles\n", len(pending))

			fetcher := fetch.NewFetcher(parseDuration(cfg.Timeout, 30*time.Second))
			delay := parseDuration(cfg.Delay, 500*time.Millisecond)

			success, noContent, failed := 0, 0, 0
			for i, article := range pending {
				text, err := fetcher.Fetch(cmd.Context(), article.URL)
				switch {
				case err != nil:
					status := "error: " + err.Error()
					if len(status) > scrapeErrorLimit {
						status = status[:scrapeErrorLimit]
					}
					if err := s.MarkScrapeStatus(article.ID, status); err != nil {
						return err
					}
					failed++
				case len(text) > cfg.MinChars:
					if err := s.MarkScraped(article.ID, text, time.Now()); err != nil {
						return err
					}
					success++
				default:
					if err := s.MarkScrapeStatus(article.ID, "no_content"); err != nil {
						return err
					}
					noContent++
				}

				if (i+1)%50 == 0 {
					logger.Info("scrape progress", "done", i+1, "total", len(pending),
						"success", success, "no_content", noContent, "errors", failed)
				}

				if i < len(pending)-1 {
					time.Sleep(delay)
				}
			}

			fmt.Printf("Done: %d success, %d no content, %d errors\n", success, noContent, failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "scrape at most this many articles (0 = all)")
	return cmd
}
