package handlers

import (
	"fmt"

	"radar/internal/config"
	"radar/internal/embed"
	"radar/internal/topics"

	"github.com/spf13/cobra"
)

func newModeler() (*topics.Modeler, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}

	cfg := config.Get()
	return &topics.Modeler{
		Store: s,
		Embedder: embed.NewClient(cfg.Voyage.APIKey, cfg.Voyage.BaseURL,
			cfg.Voyage.Model, cfg.Voyage.BatchSize),
		LLM:     newLLMClient(),
		DataDir: cfg.App.DataDir,
		Config: topics.Config{
			MinClusterSize: cfg.Topics.MinClusterSize,
			MinDocuments:   cfg.Topics.MinDocuments,
			KeywordCount:   cfg.Topics.KeywordCount,
			SampleSize:     cfg.Topics.SampleSize,
			LabelModel:     cfg.OpenAI.LabelModel,
			DescribeModel:  cfg.OpenAI.DescribeModel,
		},
	}, nil
}

// NewTopicsCmd creates the topics command group.
func NewTopicsCmd() *cobra.Command {
	topicsCmd := &cobra.Command{
		Use:   "topics",
		Short: "Cluster article summaries into topics and describe them",
	}

	topicsCmd.AddCommand(&cobra.Command{
		Use:   "model",
		Short: "Embed, cluster, and label the filtered summaries",
		Long: `Embeds every relevant (or not-yet-filtered) summary, clusters the
embeddings, and writes a topic id onto each row. Outliers get topic -1.
Keywords, labels, and merge suggestions are written to artifacts in the
data directory. The embedding matrix is cached and reused while the row
set is unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newModeler()
			if err != nil {
				return err
			}
			defer m.Store.Close()

			result, err := m.Model(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Modeled %d documents into %d topics (%d outliers)\n",
				result.Documents, len(result.Topics), result.Outliers)
			for _, t := range result.Topics {
				fmt.Printf("  Topic %d: %s (%d articles)\n", t.ID, t.Label, t.Size)
			}
			return nil
		},
	})

	topicsCmd.AddCommand(&cobra.Command{
		Use:   "describe",
		Short: "Generate long-form descriptions for every topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newModeler()
			if err != nil {
				return err
			}
			defer m.Store.Close()

			descriptions, err := m.Describe(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Generated %d topic descriptions\n", len(descriptions))
			return nil
		},
	})

	return topicsCmd
}
