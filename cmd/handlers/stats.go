package handlers

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-stage progress across the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			total, err := s.Count()
			if err != nil {
				return err
			}
			fmt.Printf("Articles: %d\n", total)

			sections := []struct {
				title  string
				column string
			}{
				{"By source", "search_type"},
				{"Scrape status", "scrape_status"},
				{"Summary status", "summary_status"},
			}
			for _, section := range sections {
				breakdown, err := s.StatusBreakdown(section.column)
				if err != nil {
					return err
				}
				fmt.Printf("\n%s:\n", section.title)
				keys := make([]string, 0, len(breakdown))
				for k := range breakdown {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("  %-20s %d\n", k, breakdown[k])
				}
			}

			filtered, err := s.CountWhere("cultural_relevant IS NOT NULL")
			if err != nil {
				return err
			}
			relevant, err := s.CountWhere("cultural_relevant = 1")
			if err != nil {
				return err
			}
			clustered, err := s.CountWhere("topic IS NOT NULL")
			if err != nil {
				return err
			}
			fmt.Printf("\nRelevance: %d filtered, %d relevant\n", filtered, relevant)
			fmt.Printf("Topics: %d articles assigned\n", clustered)
			return nil
		},
	}
}
