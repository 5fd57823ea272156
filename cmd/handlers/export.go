package handlers

import (
	"fmt"

	"radar/internal/export"

	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the article table to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := export.WriteFile(s, output)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d articles to %s\n", n, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "articles.csv", "output file path")
	return cmd
}
