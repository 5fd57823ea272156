package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClient("test-key", url, 5*time.Second)
}

func TestChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" || len(req.Messages) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}

		fmt.Fprint(w, `{"id": "chatcmpl-1", "choices": [{"message": {"role": "assistant", "content": "A summary."}, "finish_reason": "stop"}]}`)
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).ChatCompletion(context.Background(), ChatRequest{
		Model: "gpt-4o-mini",
		Messages: []Message{
			{Role: "system", Content: SummarySystemPrompt},
			{Role: "user", Content: "summarize this"},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if got != "A summary." {
		t.Errorf("ChatCompletion() = %q", got)
	}
}

func TestChatCompletionAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "Rate limit reached", "type": "rate_limit_error"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ChatCompletion(context.Background(), ChatRequest{Model: "m"})
	if err == nil {
		t.Fatal("ChatCompletion() should fail on API error")
	}
	if !strings.Contains(err.Error(), "Rate limit reached") {
		t.Errorf("error = %v, want API message surfaced", err)
	}
}

func TestUploadFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files" {
			t.Errorf("path = %s, want /files", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		if purpose := r.FormValue("purpose"); purpose != "batch" {
			t.Errorf("purpose = %q, want batch", purpose)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "batch_requests.jsonl" {
			t.Errorf("filename = %q", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if !strings.Contains(string(content), `"custom_id"`) {
			t.Errorf("uploaded content = %q", content)
		}

		fmt.Fprint(w, `{"id": "file-123", "purpose": "batch", "filename": "batch_requests.jsonl"}`)
	}))
	defer server.Close()

	id, err := newTestClient(server.URL).UploadFile(context.Background(),
		"batch_requests.jsonl", []byte(`{"custom_id": "1"}`), "batch")
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if id != "file-123" {
		t.Errorf("UploadFile() = %q, want file-123", id)
	}
}

func TestCreateAndRetrieveBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/batches":
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["endpoint"] != "/v1/chat/completions" || body["completion_window"] != "24h" {
				t.Errorf("unexpected batch create body: %v", body)
			}
			fmt.Fprint(w, `{"id": "batch_1", "status": "validating", "input_file_id": "file-123"}`)
		case r.Method == "GET" && r.URL.Path == "/batches/batch_1":
			fmt.Fprint(w, `{"id": "batch_1", "status": "completed", "output_file_id": "file-out",
				"request_counts": {"total": 5, "completed": 4, "failed": 1}}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	job, err := c.CreateBatch(context.Background(), "file-123", "/v1/chat/completions", "24h")
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	if job.ID != "batch_1" || job.Status != "validating" {
		t.Errorf("CreateBatch() = %+v", job)
	}

	job, err = c.RetrieveBatch(context.Background(), "batch_1")
	if err != nil {
		t.Fatalf("RetrieveBatch() error = %v", err)
	}
	if job.Status != "completed" || job.OutputFileID != "file-out" {
		t.Errorf("RetrieveBatch() = %+v", job)
	}
	if job.RequestCounts.Completed != 4 || job.RequestCounts.Failed != 1 {
		t.Errorf("request counts = %+v", job.RequestCounts)
	}
}

func TestFileContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/file-out/content" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, "{\"custom_id\": \"1\"}\n{\"custom_id\": \"2\"}\n")
	}))
	defer server.Close()

	content, err := newTestClient(server.URL).FileContent(context.Background(), "file-out")
	if err != nil {
		t.Fatalf("FileContent() error = %v", err)
	}
	if lines := strings.Count(string(content), "\n"); lines != 2 {
		t.Errorf("FileContent() = %d lines, want 2", lines)
	}
}

func TestParseYesNo(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"YES", true},
		{"yes", true},
		{"Yes, this article is relevant.", true},
		{"NO", false},
		{"No.", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ParseYesNo(tt.answer); got != tt.want {
			t.Errorf("ParseYesNo(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}
