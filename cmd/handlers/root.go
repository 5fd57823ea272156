package handlers

import (
	"fmt"
	"os"
	"time"

	"radar/internal/config"
	"radar/internal/llm"
	"radar/internal/store"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "radar",
		Short: "Radar collects and analyzes news coverage of cultural content discoverability.",
		Long: `Radar is a data collection and analysis pipeline for studying the
discoverability of cultural content. Each subcommand is one pipeline stage;
stages share a single SQLite store and can be re-run safely, picking up only
the rows they have not completed yet.

Typical order: collect, scrape, summarize, filter, topics, serve.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.radar.yaml)")

	rootCmd.AddCommand(NewCollectCmd())
	rootCmd.AddCommand(NewScrapeCmd())
	rootCmd.AddCommand(NewSummarizeCmd())
	rootCmd.AddCommand(NewFilterCmd())
	rootCmd.AddCommand(NewTopicsCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewExportCmd())
	rootCmd.AddCommand(NewStatsCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the shared article store under the configured data dir.
func openStore() (*store.Store, error) {
	return store.Open(config.Get().App.DataDir)
}

// newLLMClient builds the OpenAI client from configuration.
func newLLMClient() *llm.Client {
	cfg := config.Get().OpenAI
	return llm.NewClient(cfg.APIKey, cfg.BaseURL, parseDuration(cfg.RequestTimeout, 120*time.Second))
}

// parseDuration parses a config duration string, falling back on def.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
