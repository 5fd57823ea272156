// Package fetch retrieves article pages and extracts their main text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// maxBodyBytes caps page downloads; article pages past this are truncated.
const maxBodyBytes = 5 << 20

var newlineRegex = regexp.MustCompile(`\n\s*\n+`)

// Fetcher downloads article pages and extracts readable text.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads pageURL and returns the extracted main text. The text may
// be empty for pages with no recognizable article content.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: status code %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return ExtractText(string(body), pageURL), nil
}

// ExtractText extracts the main article text from HTML. Readability mode is
// tried first; pages it cannot parse fall back to selector-based extraction.
func ExtractText(htmlContent, pageURL string) string {
	parsedURL, _ := url.Parse(pageURL)

	article, err := readability.FromReader(strings.NewReader(htmlContent), parsedURL)
	if err == nil {
		text := cleanText(article.TextContent)
		if text != "" {
			return text
		}
	}

	return extractWithSelectors(htmlContent)
}

// extractWithSelectors pulls text out of common content containers, walking
// a selector list from most to least specific.
func extractWithSelectors(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner").Remove()

	selectors := []string{
		"article", "main", ".main-content", ".entry-content", ".post-content",
		".post-body", ".article-body", "[role='main']", ".content", "#content",
	}

	var textBuilder strings.Builder
	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			s.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote").Each(func(_ int, item *goquery.Selection) {
				textBuilder.WriteString(strings.TrimSpace(item.Text()))
				textBuilder.WriteString("\n\n")
			})
		})
		if textBuilder.Len() > 0 {
			break
		}
	}

	if textBuilder.Len() == 0 {
		doc.Find("body").Find("p, h1, h2, h3, h4, h5, h6, li, blockquote").Each(func(_ int, item *goquery.Selection) {
			textBuilder.WriteString(strings.TrimSpace(item.Text()))
			textBuilder.WriteString("\n\n")
		})
	}

	return cleanText(textBuilder.String())
}

// ExtractTitle tries common title locations in order.
func ExtractTitle(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if ogTitle, _ := doc.Find("meta[property='og:title']").Attr("content"); strings.TrimSpace(ogTitle) != "" {
		return strings.TrimSpace(ogTitle)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func cleanText(text string) string {
	return strings.TrimSpace(newlineRegex.ReplaceAllString(text, "\n\n"))
}
