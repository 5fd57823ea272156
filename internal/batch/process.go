package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"radar/internal/core"
	"radar/internal/llm"
	"radar/internal/logger"

	"github.com/google/uuid"
)

// resultLine is one line of a batch output file.
type resultLine struct {
	CustomID string `json:"custom_id"`
	Response *struct {
		StatusCode int              `json:"status_code"`
		Body       llm.ChatResponse `json:"body"`
	} `json:"response"`
	Error *llm.APIError `json:"error"`
}

// Outcome summarizes one process run.
type Outcome struct {
	State      core.BatchState
	Applied    int
	Failed     int
	BackupPath string
}

// Process downloads the completed job's results and applies each line to
// its row. Jobs in any other state are refused; rows with no result line
// keep their pre-batch status.
func (r *Runner) Process(ctx context.Context, task Task) (*Outcome, error) {
	job, state, err := r.Status(ctx, task)
	if err != nil {
		return nil, err
	}
	if state == core.BatchNotSubmitted {
		return nil, fmt.Errorf("no %s batch has been submitted", task.Name())
	}
	if state != core.BatchCompleted {
		return &Outcome{State: state}, fmt.Errorf("batch %s is %s, not completed", job.ID, state)
	}
	if job.OutputFileID == "" {
		return nil, fmt.Errorf("batch %s completed without an output file", job.ID)
	}

	content, err := r.Client.FileContent(ctx, job.OutputFileID)
	if err != nil {
		return nil, fmt.Errorf("failed to download batch results: %w", err)
	}

	backup := filepath.Join(r.DataDir,
		fmt.Sprintf("%s_results_%s_%s.jsonl", task.Name(),
			time.Now().UTC().Format("20060102_150405"), uuid.NewString()[:8]))
	if err := os.WriteFile(backup, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to save results backup: %w", err)
	}

	outcome := &Outcome{State: state, BackupPath: backup}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var result resultLine
		if err := json.Unmarshal(line, &result); err != nil {
			logger.Warn("skipping unparseable result line", "task", task.Name(), "error", err.Error())
			outcome.Failed++
			continue
		}

		id, err := strconv.ParseInt(result.CustomID, 10, 64)
		if err != nil {
			logger.Warn("skipping result with bad custom_id", "custom_id", result.CustomID)
			outcome.Failed++
			continue
		}

		text, apiErr := extractResult(&result)
		if applyErr := task.Apply(r.Store, id, text, apiErr); applyErr != nil {
			logger.Error("failed to apply batch result", applyErr, "article_id", id)
			outcome.Failed++
			continue
		}
		if apiErr != nil {
			logger.Warn("batch request failed for row", "article_id", id, "error", apiErr.Error())
			outcome.Failed++
			continue
		}
		outcome.Applied++
	}
	if err := scanner.Err(); err != nil {
		return outcome, fmt.Errorf("failed to scan results file: %w", err)
	}

	logger.Info("batch results processed",
		"task", task.Name(), "batch_id", job.ID,
		"applied", outcome.Applied, "failed", outcome.Failed, "backup", backup)
	return outcome, nil
}

// extractResult pulls the assistant content or the per-request error out of
// one result line.
func extractResult(result *resultLine) (string, error) {
	if result.Error != nil {
		return "", result.Error
	}
	if result.Response == nil {
		return "", fmt.Errorf("result line has neither response nor error")
	}
	if result.Response.Body.Error != nil {
		return "", result.Response.Body.Error
	}
	if result.Response.StatusCode != 0 && result.Response.StatusCode != 200 {
		return "", fmt.Errorf("request failed with status %d", result.Response.StatusCode)
	}
	if len(result.Response.Body.Choices) == 0 {
		return "", fmt.Errorf("response has no choices")
	}
	return result.Response.Body.Choices[0].Message.Content, nil
}
