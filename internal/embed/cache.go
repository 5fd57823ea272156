package embed

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"

	"radar/internal/logger"
)

// Matrix is a cached embedding matrix. IDs records which store rows each
// vector belongs to, in row order; the cache is valid only for an identical
// id sequence.
type Matrix struct {
	Model   string
	IDs     []int64
	Vectors [][]float64
}

// LoadMatrix reads a cached matrix from path. A missing file returns
// (nil, nil).
func LoadMatrix(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open embeddings cache: %w", err)
	}
	defer f.Close()

	var m Matrix
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings cache: %w", err)
	}
	return &m, nil
}

// SaveMatrix writes the matrix to path atomically.
func SaveMatrix(path string, m *Matrix) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create embeddings cache: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode embeddings cache: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// matches reports whether the cache covers exactly the given rows for the
// given model.
func (m *Matrix) matches(model string, ids []int64) bool {
	if m == nil || m.Model != model || len(m.IDs) != len(ids) {
		return false
	}
	for i, id := range ids {
		if m.IDs[i] != id {
			return false
		}
	}
	return true
}

// MatrixFor returns embeddings for the given rows, reusing the cache at
// cachePath when it covers exactly the same rows, and refreshing it through
// the API otherwise.
func (c *Client) MatrixFor(ctx context.Context, cachePath string, ids []int64, texts []string) (*Matrix, error) {
	if len(ids) != len(texts) {
		return nil, fmt.Errorf("id/text length mismatch: %d vs %d", len(ids), len(texts))
	}

	cached, err := LoadMatrix(cachePath)
	if err != nil {
		logger.Warn("embeddings cache unreadable, recomputing", "path", cachePath, "error", err.Error())
	} else if cached.matches(c.model, ids) {
		logger.Info("embeddings cache hit", "path", cachePath, "documents", len(ids))
		return cached, nil
	}

	logger.Info("computing embeddings", "documents", len(texts), "model", c.model)
	vectors, err := c.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	m := &Matrix{Model: c.model, IDs: ids, Vectors: vectors}
	if err := SaveMatrix(cachePath, m); err != nil {
		logger.Warn("failed to save embeddings cache", "path", cachePath, "error", err.Error())
	}
	return m, nil
}
