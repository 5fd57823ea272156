// Package mediacloud reads Media Cloud CSV exports into collectable rows.
package mediacloud

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Row is one usable line of a Media Cloud export.
type Row struct {
	Title       string
	URL         string
	MediaName   string
	PublishDate string
}

// ReadFile parses the export at path. Lines without a URL are skipped and
// counted; column order follows the header row.
func ReadFile(path string) ([]Row, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open Media Cloud export: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a Media Cloud export from r.
func Read(r io.Reader) ([]Row, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read export header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["url"]; !ok {
		return nil, 0, fmt.Errorf("export has no url column (header: %v)", header)
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []Row
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read export row: %w", err)
		}

		url := field(record, "url")
		if url == "" {
			skipped++
			continue
		}

		title := field(record, "title")
		if title == "" {
			title = url
		}
		rows = append(rows, Row{
			Title:       title,
			URL:         url,
			MediaName:   field(record, "media_name"),
			PublishDate: field(record, "publish_date"),
		})
	}
	return rows, skipped, nil
}
