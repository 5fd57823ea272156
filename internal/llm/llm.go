// Package llm is a thin HTTP client for the OpenAI-compatible chat and
// batch endpoints the pipeline uses.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultBaseURL is the hosted API root; overridable for tests and proxies.
const DefaultBaseURL = "https://api.openai.com/v1"

// Client talks to an OpenAI-compatible API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a chat completion call. It doubles as the body
// of one batch request line.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatResponse is the decoded chat completion response.
type ChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *APIError `json:"error,omitempty"`
}

// APIError is the error object the API embeds in failed responses.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%s): %s", e.Type, e.Message)
}

// ChatCompletion runs one synchronous chat completion and returns the
// assistant message content.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if chatResp.Error != nil {
		return "", chatResp.Error
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat request failed with status %d", resp.StatusCode)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// File is the metadata the API returns for an uploaded file.
type File struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Purpose  string `json:"purpose"`
	Bytes    int64  `json:"bytes"`
}

// UploadFile uploads content under filename with the given purpose
// ("batch" for batch input files) and returns the file id.
func (c *Client) UploadFile(ctx context.Context, filename string, content []byte, purpose string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", purpose); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("failed to write file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/files", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("file upload failed: %w", err)
	}
	defer resp.Body.Close()

	var file struct {
		File
		Error *APIError `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if file.Error != nil {
		return "", file.Error
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("file upload failed with status %d", resp.StatusCode)
	}
	return file.ID, nil
}

// BatchJob is the state of an asynchronous batch job as reported by the API.
type BatchJob struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	InputFileID   string `json:"input_file_id"`
	OutputFileID  string `json:"output_file_id"`
	ErrorFileID   string `json:"error_file_id"`
	CreatedAt     int64  `json:"created_at"`
	CompletedAt   int64  `json:"completed_at"`
	RequestCounts struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
	} `json:"request_counts"`
	Error *APIError `json:"error,omitempty"`
}

// CreateBatch submits a batch job over the uploaded input file.
func (c *Client) CreateBatch(ctx context.Context, inputFileID, endpoint, completionWindow string) (*BatchJob, error) {
	body, err := json.Marshal(map[string]string{
		"input_file_id":     inputFileID,
		"endpoint":          endpoint,
		"completion_window": completionWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/batches", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.doBatch(req)
}

// RetrieveBatch fetches the current state of a batch job.
func (c *Client) RetrieveBatch(ctx context.Context, batchID string) (*BatchJob, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/batches/"+batchID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.doBatch(req)
}

func (c *Client) doBatch(req *http.Request) (*BatchJob, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("batch request failed: %w", err)
	}
	defer resp.Body.Close()

	var job BatchJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}
	if job.Error != nil {
		return nil, job.Error
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("batch request failed with status %d", resp.StatusCode)
	}
	return &job, nil
}

// FileContent downloads the raw content of a file (batch output JSONL).
func (c *Client) FileContent(ctx context.Context, fileID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/files/"+fileID+"/content", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create file content request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file content request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file content request failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
