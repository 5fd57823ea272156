package handlers

import (
	"fmt"
	"strings"
	"time"

	"radar/internal/batch"
	"radar/internal/config"
	"radar/internal/core"
	"radar/internal/llm"
	"radar/internal/logger"

	"github.com/spf13/cobra"
)

// summarizeMinChars is the text-length floor below which an article is not
// worth summarizing.
const summarizeMinChars = 200

func newSummaryTask() batch.SummaryTask {
	cfg := config.Get().OpenAI
	return batch.SummaryTask{
		Model:       cfg.SummaryModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		MinChars:    summarizeMinChars,
	}
}

func newBatchRunner() (*batch.Runner, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	return &batch.Runner{
		Store:            s,
		Client:           newLLMClient(),
		DataDir:          config.Get().App.DataDir,
		CompletionWindow: config.Get().Batch.CompletionWindow,
	}, nil
}

// NewSummarizeCmd creates the summarize command group.
func NewSummarizeCmd() *cobra.Command {
	summarizeCmd := &cobra.Command{
		Use:   "summarize",
		Short: "Generate discoverability-focused article summaries",
	}
	summarizeCmd.AddCommand(newSummarizeRunCmd())
	summarizeCmd.AddCommand(newBatchLifecycleCmd("batch",
		"Manage the asynchronous summarization batch job",
		func() (batch.Task, error) { return newSummaryTask(), nil }))
	return summarizeCmd
}

func newSummarizeRunCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Summarize articles synchronously, one API call per row",
		Long: `The synchronous fallback path. The batch subcommands cost half as much
and should be preferred for large backlogs; this path is useful for small
increments and for retrying rows a batch job failed on.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get().OpenAI

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			pending, err := s.ListToSummarize(summarizeMinChars)
			if err != nil {
				return err
			}
			if limit > 0 && len(pending) > limit {
				pending = pending[:limit]
			}
			if len(pending) == 0 {
				fmt.Println("Nothing to summarize")
				return nil
			}
			fmt.Printf("Summarizing %d articles\n", len(pending))

			client := newLLMClient()
			success, failed := 0, 0
			for i, article := range pending {
				summary, err := client.ChatCompletion(cmd.Context(), llm.ChatRequest{
					Model: cfg.SummaryModel,
					Messages: []llm.Message{
						{Role: "system", Content: llm.SummarySystemPrompt},
						{Role: "user", Content: llm.SummaryUserPrompt(article.Title, article.URL, article.Text)},
					},
					Temperature: cfg.Temperature,
					MaxTokens:   cfg.MaxTokens,
				})
				if err != nil {
					if strings.Contains(err.Error(), "rate_limit") {
						// Leave the row pending; it is picked up on the next run.
						logger.Warn("rate limited, backing off", "article_id", article.ID)
						time.Sleep(20 * time.Second)
						failed++
						continue
					}
					status := "error: " + err.Error()
					if len(status) > scrapeErrorLimit {
						status = status[:scrapeErrorLimit]
					}
					if err := s.MarkSummaryStatus(article.ID, status); err != nil {
						return err
					}
					failed++
					continue
				}

				if err := s.MarkSummarized(article.ID, summary, time.Now()); err != nil {
					return err
				}
				success++

				if (i+1)%50 == 0 {
					logger.Info("summarize progress", "done", i+1, "total", len(pending))
				}
			}

			fmt.Printf("Done: %d summarized, %d errors\n", success, failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "summarize at most this many articles (0 = all)")
	return cmd
}

// newBatchLifecycleCmd builds the prepare/submit/status/process subtree
// shared by the summarize and filter stages.
func newBatchLifecycleCmd(use, short string, taskFn func() (batch.Task, error)) *cobra.Command {
	lifecycleCmd := &cobra.Command{Use: use, Short: short}

	lifecycleCmd.AddCommand(&cobra.Command{
		Use:   "prepare",
		Short: "Write the batch request file for the eligible rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := taskFn()
			if err != nil {
				return err
			}
			r, err := newBatchRunner()
			if err != nil {
				return err
			}
			defer r.Store.Close()

			count, path, err := r.Prepare(task)
			if err != nil {
				return err
			}
			if count == 0 {
				fmt.Println("No eligible rows; nothing to prepare")
				return nil
			}
			fmt.Printf("Prepared %d requests in %s\n", count, path)
			return nil
		},
	})

	lifecycleCmd.AddCommand(&cobra.Command{
		Use:   "submit",
		Short: "Upload the request file and create the batch job",
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := taskFn()
			if err != nil {
				return err
			}
			r, err := newBatchRunner()
			if err != nil {
				return err
			}
			defer r.Store.Close()

			job, marked, err := r.Submit(cmd.Context(), task)
			if err != nil {
				return err
			}
			fmt.Printf("Submitted batch %s (%s), %d rows marked\n", job.ID, job.Status, marked)
			return nil
		},
	})

	lifecycleCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the state of the last submitted batch job",
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := taskFn()
			if err != nil {
				return err
			}
			r, err := newBatchRunner()
			if err != nil {
				return err
			}
			defer r.Store.Close()

			job, state, err := r.Status(cmd.Context(), task)
			if err != nil {
				return err
			}
			if job == nil {
				fmt.Println("No batch submitted yet")
				return nil
			}
			fmt.Printf("Batch %s: %s\n", job.ID, state)
			fmt.Printf("Requests: %d total, %d completed, %d failed\n",
				job.RequestCounts.Total, job.RequestCounts.Completed, job.RequestCounts.Failed)
			if state.Terminal() && state != core.BatchCompleted {
				fmt.Println("The job is terminal; resubmit from prepare to retry the remaining rows.")
			}
			return nil
		},
	})

	lifecycleCmd.AddCommand(&cobra.Command{
		Use:   "process",
		Short: "Download the completed batch results and apply them",
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := taskFn()
			if err != nil {
				return err
			}
			r, err := newBatchRunner()
			if err != nil {
				return err
			}
			defer r.Store.Close()

			outcome, err := r.Process(cmd.Context(), task)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d results (%d failures), backup saved to %s\n",
				outcome.Applied, outcome.Failed, outcome.BackupPath)
			return nil
		},
	})

	return lifecycleCmd
}
