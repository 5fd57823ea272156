package handlers

import (
	"fmt"
	"time"

	"radar/internal/config"
	"radar/internal/core"
	"radar/internal/dates"
	"radar/internal/logger"
	"radar/internal/mediacloud"
	"radar/internal/search"
	"radar/internal/store"

	"github.com/spf13/cobra"
)

// NewCollectCmd creates the collect command group.
func NewCollectCmd() *cobra.Command {
	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect article metadata into the store",
	}
	collectCmd.AddCommand(newCollectSearchCmd())
	collectCmd.AddCommand(newCollectMediaCloudCmd())
	return collectCmd
}

func newCollectSearchCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run the Google news and web searches and store the results",
		Long: `Runs the configured search query through both the news and the regular
result surfaces, following pagination to the end. Result URLs already in the
store are skipped, so repeated runs only add what is new.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get().Search
			if query == "" {
				query = cfg.Query
			}

			factory := search.NewProviderFactory()
			provider, err := factory.CreateProvider(search.ProviderType(cfg.Provider), map[string]string{
				"api_key": cfg.APIKey,
			})
			if err != nil {
				return err
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			engines := []struct {
				engine     search.Engine
				searchType string
			}{
				{search.EngineNews, core.SearchTypeGoogleNews},
				{search.EngineOrganic, core.SearchTypeGoogleAll},
			}

			totalAdded, totalSkipped := 0, 0
			for _, e := range engines {
				results, err := provider.Search(cmd.Context(), query, search.Config{
					Engine:       e.engine,
					Location:     cfg.Location,
					GoogleDomain: cfg.GoogleDomain,
					Country:      cfg.Country,
					Language:     cfg.Language,
					MaxPages:     cfg.MaxPages,
				})
				if err != nil {
					return fmt.Errorf("%s search failed: %w", e.engine, err)
				}

				added, skipped, err := storeResults(s, results, e.searchType, query)
				if err != nil {
					return err
				}
				totalAdded += added
				totalSkipped += skipped
				fmt.Printf("%s: %d results, %d added, %d duplicates\n",
					e.searchType, len(results), added, skipped)
			}

			fmt.Printf("Done: %d new articles, %d duplicates skipped\n", totalAdded, totalSkipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search query (default from config)")
	return cmd
}

func storeResults(s *store.Store, results []search.Result, searchType, query string) (added, skipped int, err error) {
	now := time.Now()
	for _, r := range results {
		date, parsed := dates.Normalize(r.Date, now)
		if r.Date != "" && !parsed {
			logger.Debug("unparseable result date kept raw", "date", r.Date, "url", r.URL)
		}

		inserted, err := s.InsertArticle(core.Article{
			Title:      r.Title,
			URL:        r.URL,
			Source:     r.Source,
			Date:       date,
			SearchType: searchType,
			Snippet:    r.Snippet,
			Query:      query,
		})
		if err != nil {
			return added, skipped, err
		}
		if inserted {
			added++
		} else {
			skipped++
		}
	}
	return added, skipped, nil
}

func newCollectMediaCloudCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mediacloud <export.csv>",
		Short: "Import a Media Cloud CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, skippedNoURL, err := mediacloud.ReadFile(args[0])
			if err != nil {
				return err
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			now := time.Now()
			added, duplicates := 0, 0
			for _, row := range rows {
				date, _ := dates.Normalize(row.PublishDate, now)
				inserted, err := s.InsertArticle(core.Article{
					Title:      row.Title,
					URL:        row.URL,
					Source:     row.MediaName,
					Date:       date,
					SearchType: core.SearchTypeMediaCloud,
				})
				if err != nil {
					return err
				}
				if inserted {
					added++
				} else {
					duplicates++
				}
			}

			fmt.Printf("Imported %d articles (%d duplicates, %d rows without URL)\n",
				added, duplicates, skippedNoURL)
			return nil
		},
	}
}
