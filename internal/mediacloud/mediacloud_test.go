package mediacloud

import (
	"strings"
	"testing"
)

func TestReadMapsColumnsByHeader(t *testing.T) {
	csv := `publish_date,title,url,media_name,language
2025-03-01,Culture piece,https://example.com/a,Example Media,en
2025-03-02,Another piece,https://example.com/b,Other Media,fr
`
	rows, skipped, err := Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(rows) != 2 {
		t.Fatalf("Read() = %d rows, want 2", len(rows))
	}
	if rows[0].Title != "Culture piece" || rows[0].URL != "https://example.com/a" ||
		rows[0].MediaName != "Example Media" || rows[0].PublishDate != "2025-03-01" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
}

func TestReadSkipsRowsWithoutURL(t *testing.T) {
	csv := `title,url,media_name,publish_date
Has URL,https://example.com/a,M,2025-01-01
No URL,,M,2025-01-02
,https://example.com/untitled,M,
`
	rows, skipped, err := Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(rows) != 2 {
		t.Fatalf("Read() = %d rows, want 2", len(rows))
	}
	// Untitled rows fall back to the URL so the NOT NULL title holds.
	if rows[1].Title != "https://example.com/untitled" {
		t.Errorf("untitled row title = %q, want URL fallback", rows[1].Title)
	}
}

func TestReadRejectsMissingURLColumn(t *testing.T) {
	csv := "title,media_name\nT,M\n"
	if _, _, err := Read(strings.NewReader(csv)); err == nil {
		t.Error("Read() without url column should fail")
	}
}
