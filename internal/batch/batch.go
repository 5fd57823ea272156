// Package batch drives the asynchronous batch-job lifecycle shared by the
// summarization and relevance-filter stages: prepare a JSONL request file,
// submit it, poll status, and apply the downloaded results row by row.
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"radar/internal/core"
	"radar/internal/llm"
	"radar/internal/logger"
	"radar/internal/store"
)

// Request is one line of a batch input file. custom_id carries the store
// row id so results can be applied back without extra bookkeeping.
type Request struct {
	CustomID string          `json:"custom_id"`
	Method   string          `json:"method"`
	URL      string          `json:"url"`
	Body     llm.ChatRequest `json:"body"`
}

// Task is the stage-specific half of the lifecycle: which rows go in, and
// how one result line is applied back.
type Task interface {
	// Name identifies the task in logs and artifacts.
	Name() string

	// RequestFile is the JSONL file name inside the data directory.
	RequestFile() string

	// BuildRequests selects the eligible rows and renders their requests.
	BuildRequests(s *store.Store) ([]Request, error)

	// MarkSubmitted stamps the job id onto the rows the file covers and
	// returns how many were stamped.
	MarkSubmitted(s *store.Store, batchID string) (int64, error)

	// LatestBatchID returns the job id recorded by the last submission.
	LatestBatchID(s *store.Store) (string, error)

	// Apply writes one result onto its row. content is the assistant
	// message for successful requests; apiErr is set for failed ones.
	Apply(s *store.Store, id int64, content string, apiErr error) error
}

// Runner executes the lifecycle for any Task.
type Runner struct {
	Store            *store.Store
	Client           *llm.Client
	DataDir          string
	CompletionWindow string
}

// Prepare writes the task's batch request file and returns the request
// count and file path. A zero count writes no file.
func (r *Runner) Prepare(task Task) (int, string, error) {
	requests, err := task.BuildRequests(r.Store)
	if err != nil {
		return 0, "", fmt.Errorf("failed to build %s requests: %w", task.Name(), err)
	}
	if len(requests) == 0 {
		return 0, "", nil
	}

	path := filepath.Join(r.DataDir, task.RequestFile())
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, req := range requests {
		if err := enc.Encode(req); err != nil {
			return 0, "", fmt.Errorf("failed to encode request %s: %w", req.CustomID, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return 0, "", fmt.Errorf("failed to write request file: %w", err)
	}

	logger.Info("batch request file written", "task", task.Name(), "path", path, "requests", len(requests))
	return len(requests), path, nil
}

// batchInfo is the submission record saved next to the request file.
type batchInfo struct {
	Task         string    `json:"task"`
	BatchID      string    `json:"batch_id"`
	InputFileID  string    `json:"input_file_id"`
	Status       string    `json:"status"`
	RequestCount int64     `json:"request_count"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Submit uploads the prepared request file, creates the batch job, and
// stamps the job id onto the covered rows.
func (r *Runner) Submit(ctx context.Context, task Task) (*llm.BatchJob, int64, error) {
	path := filepath.Join(r.DataDir, task.RequestFile())
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read request file (run prepare first): %w", err)
	}

	fileID, err := r.Client.UploadFile(ctx, task.RequestFile(), content, "batch")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to upload request file: %w", err)
	}

	window := r.CompletionWindow
	if window == "" {
		window = "24h"
	}
	job, err := r.Client.CreateBatch(ctx, fileID, "/v1/chat/completions", window)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create batch: %w", err)
	}

	marked, err := task.MarkSubmitted(r.Store, job.ID)
	if err != nil {
		return job, 0, fmt.Errorf("batch %s created but rows not marked: %w", job.ID, err)
	}

	info := batchInfo{
		Task:         task.Name(),
		BatchID:      job.ID,
		InputFileID:  fileID,
		Status:       job.Status,
		RequestCount: marked,
		SubmittedAt:  time.Now().UTC(),
	}
	infoPath := filepath.Join(r.DataDir, task.Name()+"_batch_info.json")
	if data, err := json.MarshalIndent(info, "", "  "); err == nil {
		if err := os.WriteFile(infoPath, data, 0644); err != nil {
			logger.Warn("failed to write batch info", "path", infoPath, "error", err.Error())
		}
	}

	logger.Info("batch submitted", "task", task.Name(), "batch_id", job.ID, "rows", marked)
	return job, marked, nil
}

// lastSubmission returns the job id from the task's batch info file. The
// store's stamped batch ids are the fallback when the file is gone; rows
// from an older, already-applied batch can still carry theirs, so the file
// is authoritative while it exists.
func (r *Runner) lastSubmission(task Task) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.DataDir, task.Name()+"_batch_info.json"))
	if os.IsNotExist(err) {
		return task.LatestBatchID(r.Store)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read batch info: %w", err)
	}
	var info batchInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("failed to parse batch info: %w", err)
	}
	return info.BatchID, nil
}

// Status retrieves the task's most recently submitted job.
func (r *Runner) Status(ctx context.Context, task Task) (*llm.BatchJob, core.BatchState, error) {
	batchID, err := r.lastSubmission(task)
	if err != nil {
		return nil, core.BatchNotSubmitted, err
	}
	if batchID == "" {
		return nil, core.BatchNotSubmitted, nil
	}

	job, err := r.Client.RetrieveBatch(ctx, batchID)
	if err != nil {
		return nil, core.BatchNotSubmitted, fmt.Errorf("failed to retrieve batch %s: %w", batchID, err)
	}
	return job, MapState(job.Status), nil
}

// MapState converts the service's status string to a BatchState.
func MapState(status string) core.BatchState {
	switch status {
	case "validating":
		return core.BatchValidating
	case "in_progress":
		return core.BatchInProgress
	case "finalizing":
		return core.BatchFinalizing
	case "completed":
		return core.BatchCompleted
	case "failed":
		return core.BatchFailed
	case "expired":
		return core.BatchExpired
	case "cancelled", "cancelling":
		return core.BatchCancelled
	default:
		return core.BatchNotSubmitted
	}
}
