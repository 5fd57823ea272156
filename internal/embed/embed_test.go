package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func TestEmbedBatching(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		batchSizes = append(batchSizes, len(req.Input))
		if req.Model != "voyage-3.5-lite" {
			t.Errorf("model = %q", req.Model)
		}

		resp := embedResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float64 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float64{float64(i), 1}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewClient("key", server.URL, "voyage-3.5-lite", 2)
	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := c.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 5 {
		t.Fatalf("Embed() = %d vectors, want 5", len(vectors))
	}
	want := []int{2, 2, 1}
	if len(batchSizes) != 3 || batchSizes[0] != want[0] || batchSizes[1] != want[1] || batchSizes[2] != want[2] {
		t.Errorf("batch sizes = %v, want %v", batchSizes, want)
	}
}

func TestEmbedErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail": "Provided API key is invalid."}`)
	}))
	defer server.Close()

	c := NewClient("bad", server.URL, "voyage-3.5-lite", 128)
	if _, err := c.Embed(context.Background(), []string{"a"}); err == nil {
		t.Error("Embed() with invalid key should fail")
	}
}

func TestMatrixCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.gob")

	m := &Matrix{
		Model:   "voyage-3.5-lite",
		IDs:     []int64{1, 2, 3},
		Vectors: [][]float64{{0.1, 0.2}, {0.3, 0.4}, {0.5, 0.6}},
	}
	if err := SaveMatrix(path, m); err != nil {
		t.Fatalf("SaveMatrix() error = %v", err)
	}

	got, err := LoadMatrix(path)
	if err != nil {
		t.Fatalf("LoadMatrix() error = %v", err)
	}
	if got == nil || len(got.Vectors) != 3 || got.Vectors[1][0] != 0.3 {
		t.Errorf("LoadMatrix() = %+v", got)
	}

	missing, err := LoadMatrix(filepath.Join(t.TempDir(), "absent.gob"))
	if err != nil || missing != nil {
		t.Errorf("LoadMatrix(missing) = %+v, %v, want nil, nil", missing, err)
	}
}

func TestMatrixForUsesCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req embedRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := embedResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float64 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float64{1, 2}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "embeddings.gob")
	c := NewClient("key", server.URL, "voyage-3.5-lite", 128)

	ids := []int64{10, 20}
	texts := []string{"doc one", "doc two"}

	if _, err := c.MatrixFor(context.Background(), path, ids, texts); err != nil {
		t.Fatalf("MatrixFor() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("first MatrixFor() made %d API calls, want 1", calls)
	}

	// Identical row set hits the cache.
	if _, err := c.MatrixFor(context.Background(), path, ids, texts); err != nil {
		t.Fatalf("MatrixFor() second run error = %v", err)
	}
	if calls != 1 {
		t.Errorf("cache hit still made API calls, total = %d", calls)
	}

	// A changed row set recomputes.
	if _, err := c.MatrixFor(context.Background(), path, []int64{10, 21}, texts); err != nil {
		t.Fatalf("MatrixFor() changed rows error = %v", err)
	}
	if calls != 2 {
		t.Errorf("changed row set should recompute, calls = %d", calls)
	}
}
